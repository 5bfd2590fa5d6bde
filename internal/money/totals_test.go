package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeBasic(t *testing.T) {
	lines := []Line{
		{Quantity: dec("2"), UnitPrice: dec("50")},
		{Quantity: dec("1"), UnitPrice: dec("100")},
	}

	got := Compute(lines, dec("10"), dec("5"))

	require.True(t, dec("200").Equal(got.Subtotal), "subtotal %s", got.Subtotal)
	require.True(t, dec("20").Equal(got.DiscountAmount), "discount %s", got.DiscountAmount)
	require.True(t, dec("9").Equal(got.TaxAmount), "tax %s", got.TaxAmount)
	require.True(t, dec("189").Equal(got.TotalAmount), "total %s", got.TotalAmount)
}

func TestComputeIdentity(t *testing.T) {
	lines := []Line{
		{Quantity: dec("3"), UnitPrice: dec("33.33")},
		{Quantity: dec("0.5"), UnitPrice: dec("19.90")},
	}

	got := Compute(lines, dec("12.5"), dec("18"))

	// totalAmount = (subtotal - discountAmount) + taxAmount, exactly.
	expect := got.Subtotal.Sub(got.DiscountAmount).Add(got.TaxAmount)
	require.True(t, expect.Equal(got.TotalAmount))
}

func TestComputeOrderInvariant(t *testing.T) {
	a := []Line{
		{Quantity: dec("1.25"), UnitPrice: dec("80")},
		{Quantity: dec("7"), UnitPrice: dec("12.49")},
		{Quantity: dec("2"), UnitPrice: dec("0.99")},
	}
	b := []Line{a[2], a[0], a[1]}

	ta := Compute(a, dec("5"), dec("12"))
	tb := Compute(b, dec("5"), dec("12"))

	require.True(t, ta.Subtotal.Equal(tb.Subtotal))
	require.True(t, ta.TotalAmount.Equal(tb.TotalAmount))
}

func TestComputeZeroPercentagesDefault(t *testing.T) {
	got := Compute([]Line{{Quantity: dec("4"), UnitPrice: dec("25")}}, decimal.Zero, decimal.Zero)

	require.True(t, dec("100").Equal(got.Subtotal))
	require.True(t, got.DiscountAmount.IsZero())
	require.True(t, got.TaxAmount.IsZero())
	require.True(t, dec("100").Equal(got.TotalAmount))
}

func TestComputeNoLines(t *testing.T) {
	got := Compute(nil, dec("10"), dec("10"))
	require.True(t, got.TotalAmount.IsZero())
}

func TestLineAmount(t *testing.T) {
	require.True(t, dec("24.98").Equal(LineAmount(dec("2"), dec("12.49"))))
	require.True(t, dec("6.25").Equal(LineAmount(dec("0.5"), dec("12.50"))))
}
