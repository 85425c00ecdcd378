package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{15000, "R15,000"},
		{500, "R500"},
		{1250.5, "R1,250.50"},
		{1000000, "R1,000,000"},
		{0, "R0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format("R", tt.in))
	}
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "R37,500", FormatDecimal("R", decimal.NewFromInt(37500)))
}
