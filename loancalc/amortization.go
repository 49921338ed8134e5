package loancalc

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/skosovsky/plantool/domain"
)

// MonthlyRate converts an annual percentage (3.5) to a monthly fraction.
func MonthlyRate(annualPercent float64) float64 {
	return annualPercent / 100 / 12
}

// MonthlyPayment is the equal principal-and-interest installment for principal over months
// payments, rounded to the nearest won. A zero rate divides the principal evenly.
func MonthlyPayment(principal domain.MonetaryAmount, annualPercent float64, months int) domain.MonetaryAmount {
	if principal <= 0 || months <= 0 {
		return 0
	}
	p := float64(principal)
	r := MonthlyRate(annualPercent)
	if r == 0 {
		return domain.MonetaryAmount(math.Round(p / float64(months)))
	}
	payment := p * r / (1 - math.Pow(1+r, -float64(months)))
	return domain.MonetaryAmount(math.Round(payment))
}

// MaxPrincipal solves the amortization formula for the principal whose installment equals
// payment, truncated to whole won.
func MaxPrincipal(payment float64, annualPercent float64, months int) domain.MonetaryAmount {
	if payment <= 0 || months <= 0 {
		return 0
	}
	r := MonthlyRate(annualPercent)
	if r == 0 {
		return domain.MonetaryAmount(math.Floor(payment * float64(months)))
	}
	return domain.MonetaryAmount(math.Floor(payment * (1 - math.Pow(1+r, -float64(months))) / r))
}

// DSR returns yearly repayment as a percentage of annual income, rounded half-to-even to two decimals.
func DSR(monthlyPayment, annualIncome domain.MonetaryAmount) float64 {
	if annualIncome <= 0 {
		return 0
	}
	yearly := decimal.NewFromInt(int64(monthlyPayment)).Mul(decimal.NewFromInt(12))
	return yearly.
		Div(decimal.NewFromInt(int64(annualIncome))).
		Mul(decimal.NewFromInt(100)).
		RoundBank(2).
		InexactFloat64()
}

// Shortage is the part of price not covered by the loan and own capital, never negative.
func Shortage(price, loan, capital domain.MonetaryAmount) domain.MonetaryAmount {
	return max(0, price-(loan+capital))
}
