package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	assert.Equal(t, "$1,234.50", Currency(1234.5))
	assert.Equal(t, "$0.00", Currency(0))
	assert.Equal(t, "-$5.00", Currency(-5))
	assert.Equal(t, "$181.45", Currency(181.45))
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2_500_000, "2.50M"},
		{2.85e12, "2.85T"},
		{1.78e9, "1.78B"},
		{1000, "1.00K"},
		{999, "999"},
		{12.3456, "12.346"},
		{-2_500_000, "-2,500,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Number(tt.in), "Number(%v)", tt.in)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "-1.50%", Percent(-1.5))
	assert.Equal(t, "+0.00%", Percent(0))
	assert.Equal(t, "+2.92%", Percent(2.918))
}
