package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	r, g, b, err := ParseHex("#1f77b4")
	require.NoError(t, err)
	assert.Equal(t, 0x1f, r)
	assert.Equal(t, 0x77, g)
	assert.Equal(t, 0xb4, b)

	_, _, _, err = ParseHex("#zzz")
	assert.Error(t, err)

	_, _, _, err = ParseHex("blue")
	assert.Error(t, err)
}

func TestLighten(t *testing.T) {
	tests := []struct {
		name   string
		hex    string
		amount float64
		want   string
	}{
		{name: "zero amount is identity", hex: "#336699", amount: 0, want: "#336699"},
		{name: "full amount is white", hex: "#336699", amount: 1, want: "#ffffff"},
		{name: "half way toward white", hex: "#000000", amount: 0.5, want: "#7f7f7f"},
		{name: "amount is clamped high", hex: "#102030", amount: 2, want: "#ffffff"},
		{name: "amount is clamped low", hex: "#102030", amount: -1, want: "#102030"},
		{name: "invalid color passes through", hex: "oops", amount: 0.5, want: "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lighten(tt.hex, tt.amount))
		})
	}
}

func TestDefaultPaletteIsValid(t *testing.T) {
	require.NotEmpty(t, DefaultPalette)
	for _, hex := range DefaultPalette {
		_, _, _, err := ParseHex(hex)
		assert.NoError(t, err, hex)
	}
}
