package encoding_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/SEBSEB62/KAYE-sub000/internal/encoding"
)

func readAll(t *testing.T, input []byte) string {
	t.Helper()
	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(got)
}

func TestUTF8Passthrough(t *testing.T) {
	input := `{"settings":{"businessName":"Buvette de l'Étang 🍺"}}`
	assert.Equal(t, input, readAll(t, []byte(input)))
}

func TestUTF8BOMIsStripped(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"a":"é"}`)...)
	assert.Equal(t, `{"a":"é"}`, readAll(t, input))
}

func TestUTF16LEWithBOM(t *testing.T) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(`{"a":"Crêpe"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"Crêpe"}`, readAll(t, []byte(encoded)))
}

func TestWindows1252(t *testing.T) {
	// "Café" with é = 0xE9
	input := []byte{'{', '"', 'C', 'a', 'f', 0xE9, '"', ':', '1', '}'}
	assert.Equal(t, `{"Café":1}`, readAll(t, input))
}

func TestLongUTF8InputCutMidRune(t *testing.T) {
	// Push a multi-byte rune across the sniff window boundary.
	input := strings.Repeat("a", 8<<10-1) + "é" + strings.Repeat("b", 10)
	assert.Equal(t, input, readAll(t, []byte(input)))
}
