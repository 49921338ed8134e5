package loancalc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skosovsky/plantool/domain"
)

func TestMonthlyPayment_ZeroRateDividesEvenly(t *testing.T) {
	assert.Equal(t, domain.MonetaryAmount(100_000), MonthlyPayment(1_200_000, 0, 12))
	assert.Equal(t, domain.MonetaryAmount(1_000_000), MonthlyPayment(360_000_000, 0, 360))
}

func TestMonthlyPayment_ZeroPrincipal(t *testing.T) {
	assert.Zero(t, MonthlyPayment(0, 3.5, 360))
	assert.Zero(t, MonthlyPayment(0, 0, 360))
	assert.Zero(t, MonthlyPayment(100, 3.5, 0))
}

func TestMaxPrincipal_InvertsMonthlyPayment(t *testing.T) {
	for _, rate := range []float64{0, 2.5, 3.5, 7} {
		payment := MonthlyPayment(250_000_000, rate, 240)
		back := MaxPrincipal(float64(payment), rate, 240)
		assert.InDelta(t, 250_000_000, float64(back), 500, "rate %v", rate)
	}
}

func TestDSR_RoundsHalfToEven(t *testing.T) {
	assert.InDelta(t, 0.12, DSR(1, 10_000), 1e-12)
	assert.InDelta(t, 12.34, DSR(12_345, 1_200_000), 1e-12) // 12.345
	assert.InDelta(t, 12.36, DSR(12_355, 1_200_000), 1e-12) // 12.355
	assert.Zero(t, DSR(100, 0))
}

func TestShortage(t *testing.T) {
	assert.Equal(t, domain.MonetaryAmount(200_000_000), Shortage(800_000_000, 400_000_000, 200_000_000))
	assert.Zero(t, Shortage(500_000_000, 400_000_000, 200_000_000))
}
