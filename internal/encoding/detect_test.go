package encoding_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/MrJamesThe3rd/gastos/internal/encoding"
)

const header = "Fecha;Categoría;Importe;Descripción\n15/03/2024;Depilación;1.500,50;Peluquería\n"

func TestDetect(t *testing.T) {
	windows1252, err := charmap.Windows1252.NewEncoder().String(header)
	require.NoError(t, err)

	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(header)
	require.NoError(t, err)

	tests := []struct {
		name        string
		input       []byte
		wantCharset encoding.Charset
	}{
		{name: "utf8 passthrough", input: []byte(header), wantCharset: encoding.CharsetUTF8},
		{name: "utf8 bom stripped", input: append([]byte{0xEF, 0xBB, 0xBF}, header...), wantCharset: encoding.CharsetUTF8},
		{name: "utf16 little endian", input: []byte(utf16le), wantCharset: encoding.CharsetUTF16LE},
		// chardet may label short Latin text as Latin-5; both decode it identically.
		{name: "windows-1252", input: []byte(windows1252)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, charset, err := encoding.Detect(bytes.NewReader(tt.input))
			require.NoError(t, err)

			got, err := io.ReadAll(r)
			require.NoError(t, err)

			if tt.wantCharset != "" {
				assert.Equal(t, tt.wantCharset, charset)
			}

			assert.Equal(t, header, string(got))
		})
	}
}

func TestNewUTF8Reader_MultibyteAcrossSniffWindow(t *testing.T) {
	// Pad so a two-byte "ñ" straddles the end of the sniff window.
	input := strings.Repeat("a", 4095) + "ñandú\n"

	r, err := encoding.NewUTF8Reader(strings.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}

func TestNewUTF8Reader_Empty(t *testing.T) {
	r, err := encoding.NewUTF8Reader(strings.NewReader(""))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}
