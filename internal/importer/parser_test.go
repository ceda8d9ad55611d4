package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/gastos/internal/importer"
)

func TestParser_Planilla(t *testing.T) {
	csv := `Fecha;Categoría;Importe;Descripción
15/03/2024;supermercado;1.500,50;Compra semanal
2024-03-10;Combustible;$ 800;
31/02/2024;Otros;10;fecha imposible
`

	res, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "planilla", res.Profile)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, 2, res.Rows[0].Line)
	assert.Equal(t, "2024-03-15", res.Rows[0].Form.Date)
	assert.Equal(t, "Supermercado", res.Rows[0].Form.Category)
	assert.Equal(t, "1500.5", res.Rows[0].Form.Amount)
	assert.Equal(t, "Compra semanal", res.Rows[0].Form.Description)

	assert.Equal(t, "2024-03-10", res.Rows[1].Form.Date)
	assert.Equal(t, "800", res.Rows[1].Form.Amount)
	assert.Empty(t, res.Rows[1].Form.Description)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Line)
}

func TestParser_Export(t *testing.T) {
	csv := "date,category,amount,description\n2024-01-05,Farmacia,120.00,\"Farmacia, centro\"\n05/01/2024,Farmacia,1,no iso\n"

	res, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "export", res.Profile)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Farmacia, centro", res.Rows[0].Form.Description)
	assert.Equal(t, "120", res.Rows[0].Form.Amount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Line)
}

func TestParser_Tarjeta(t *testing.T) {
	csv := `Resumen de tarjeta;VISA 0000
Titular;JUAN PEREZ

Fecha;Descripción;Débito;Crédito
12/02/2024;MERCADO CENTRAL;2.345,10;
13/02/2024;PAGO RECIBIDO;;5.000,00
14/02/2024;FARMACIA;-150,00;
Total;;2.495,10;5.000,00
`

	res, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "tarjeta", res.Profile)
	require.Len(t, res.Rows, 2)
	assert.Empty(t, res.Errors)

	assert.Equal(t, "2024-02-12", res.Rows[0].Form.Date)
	assert.Equal(t, "MERCADO CENTRAL", res.Rows[0].Form.Description)
	assert.Equal(t, "2345.1", res.Rows[0].Form.Amount)
	assert.Equal(t, "Otros", res.Rows[0].Form.Category)

	assert.Equal(t, "150", res.Rows[1].Form.Amount)
}

func TestParser_Cuenta(t *testing.T) {
	csv := `Movimientos de cuenta - 31/01/2024;"=""0000"""

Fecha ;Concepto ;Importe ;Saldo ;
30/01/2024;TRANSFERENCIA ALQUILER ;-588,74;48.825,46;
09/01/2024;HABERES ;8.608,52;52.532,78;
`

	res, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "cuenta", res.Profile)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "2024-01-30", res.Rows[0].Form.Date)
	assert.Equal(t, "TRANSFERENCIA ALQUILER", res.Rows[0].Form.Description)
	assert.Equal(t, "588.74", res.Rows[0].Form.Amount)
}

func TestParser_Latin1(t *testing.T) {
	csv := "Fecha;Categoría;Importe;Descripción\n01/03/2024;Préstamos;300;Cuota única\n"

	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(csv))
	require.NoError(t, err)

	res, err := importer.NewParser().Parse(bytes.NewReader(latin1))
	require.NoError(t, err)

	assert.Equal(t, "planilla", res.Profile)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Préstamos", res.Rows[0].Form.Category)
	assert.Equal(t, "Cuota única", res.Rows[0].Form.Description)
}

func TestParser_LongConceptIsTruncated(t *testing.T) {
	long := strings.Repeat("x", 600)
	csv := "Fecha;Concepto;Importe\n30/01/2024;" + long + ";-1,00\n"

	res, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Len(t, res.Rows[0].Form.Description, 500)
}

func TestParser_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRows int
		wantErr  bool
	}{
		{name: "EmptyFile", input: ""},
		{name: "HeaderOnly", input: "Fecha;Categoría;Importe;Descripción"},
		{name: "DifferentColumnOrder", input: "Importe;Descripción;Fecha;Categoría\n10,00;orden;30/01/2024;Servicios\n", wantRows: 1},
		{name: "UnknownFormat", input: "a;b;c\n1;2;3\n", wantErr: true},
		{name: "BadAmount", input: "Fecha;Categoría;Importe;Descripción\n30/01/2024;Servicios;diez;\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := importer.NewParser().Parse(strings.NewReader(tt.input))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, res.Rows, tt.wantRows)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1.234,56", want: "1234.56"},
		{in: "1,234.56", want: "1234.56"},
		{in: "1234.56", want: "1234.56"},
		{in: "-588,74", want: "-588.74"},
		{in: "$ 10", want: "10"},
		{in: "1.234", want: "1234"},
		{in: "12.5", want: "12.5"},
		{in: "1 500,00", want: "1500"},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := importer.ParseAmount(tt.in)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
