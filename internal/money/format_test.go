package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRupees(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.Zero, "₹0"},
		{decimal.NewFromInt(2600), "₹2,600"},
		{decimal.NewFromInt(999), "₹999"},
		{decimal.RequireFromString("12.5"), "₹12.50"},
		{decimal.RequireFromString("2599.999"), "₹2,600"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Rupees(tt.in))
		})
	}
}
