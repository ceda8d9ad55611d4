package importer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
	"github.com/MrJamesThe3rd/gastos/internal/importer"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
}

func TestService_Import(t *testing.T) {
	csv := `Fecha;Categoría;Importe;Descripción
15/03/2024;Supermercado;1.500,50;Compra semanal
16/03/2024;Viajes;100;categoría inválida
20/04/2024;Cafecito;5;futuro
17/03/2024;Cafecito;3,5;rechazado
18/03/2024;Farmacia;42;
fecha;Farmacia;1;
`

	ctrl := gomock.NewController(t)
	ledger := expense.NewMockLedger(ctrl)

	saved := func(id string) func(context.Context, expense.FormData) (*expense.Expense, error) {
		return func(_ context.Context, f expense.FormData) (*expense.Expense, error) {
			return &expense.Expense{
				ID:       id,
				Amount:   decimal.RequireFromString(f.Amount),
				Category: expense.Category(f.Category),
				Date:     f.Date,
			}, nil
		}
	}

	gomock.InOrder(
		ledger.EXPECT().
			Add(gomock.Any(), expense.FormData{Amount: "1500.5", Category: "Supermercado", Description: "Compra semanal", Date: "2024-03-15"}).
			DoAndReturn(saved("a")),
		ledger.EXPECT().
			Add(gomock.Any(), gomock.Any()).
			Return(nil, &expense.WriteError{Op: "insert", Err: errors.New("denied")}),
		ledger.EXPECT().
			Add(gomock.Any(), gomock.Any()).
			DoAndReturn(saved("b")),
	)

	svc := importer.NewService(nil).WithClock(fixedClock)

	report, err := svc.Import(context.Background(), ledger, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "planilla", report.Profile)

	require.Len(t, report.Imported, 2)
	assert.Equal(t, "a", report.Imported[0].ID)
	assert.Equal(t, "b", report.Imported[1].ID)

	lines := make([]int, 0, len(report.Errors))
	for _, e := range report.Errors {
		lines = append(lines, e.Line)
	}

	assert.ElementsMatch(t, []int{3, 4, 5, 7}, lines)

	var werr *expense.WriteError
	for _, e := range report.Errors {
		if e.Line == 5 {
			assert.ErrorAs(t, e, &werr)
		}
	}
}

func TestService_ImportParseFailureWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := expense.NewMockLedger(ctrl)

	_, err := importer.NewService(nil).Import(context.Background(), ledger, strings.NewReader("x;y\n1;2\n"))
	assert.Error(t, err)
}

func TestService_ImportStopsOnCanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := expense.NewMockLedger(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	csv := "date,category,amount,description\n2024-03-01,Otros,1,\n"

	report, err := importer.NewService(nil).WithClock(fixedClock).Import(ctx, ledger, strings.NewReader(csv))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Imported)
}

func TestRowError_MarshalJSON(t *testing.T) {
	b, err := importer.RowError{Line: 3, Err: errors.New("invalid date")}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"line":3,"error":"invalid date"}`, string(b))
}
