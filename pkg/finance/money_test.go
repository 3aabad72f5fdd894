package finance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/finance"
)

func TestMoneyAddSameCurrency(t *testing.T) {
	a := finance.NewMoney(1000, "USD")
	b := finance.NewMoney(250, "USD")
	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, int64(1250), sum.AmountMinor)
}

func TestMoneyAddCurrencyMismatch(t *testing.T) {
	a := finance.NewMoney(1000, "USD")
	b := finance.NewMoney(250, "EUR")
	_, err := a.Add(b)
	require.Error(t, err)
}

func TestMoneyScaleDiffersForCrypto(t *testing.T) {
	require.Equal(t, 2, finance.NewMoney(100, "USD").Scale)
	require.Equal(t, 8, finance.NewMoney(100, "BTC").Scale)
}

func TestMoneySignHelpers(t *testing.T) {
	require.True(t, finance.NewMoney(0, "USD").IsZero())
	require.True(t, finance.NewMoney(5, "USD").IsPositive())
	require.True(t, finance.NewMoney(-5, "USD").IsNegative())
}

func TestNotionalScalesByQuantityAndPrice(t *testing.T) {
	n := finance.Notional(2.5, 100, "USD")
	require.Equal(t, "USD", n.Currency)
	require.Equal(t, int64(25000), n.AmountMinor) // 2.5 * 100 * 100 cents
}

func TestPositionFractionOfPortfolio(t *testing.T) {
	n := finance.Notional(1, 20000, "USD")
	frac := finance.PositionFraction(n, 100000)
	require.InDelta(t, 0.2, frac, 1e-9)
}

func TestPositionFractionZeroPortfolioIsInfinite(t *testing.T) {
	n := finance.Notional(1, 100, "USD")
	frac := finance.PositionFraction(n, 0)
	require.True(t, frac > 1e300)
}
