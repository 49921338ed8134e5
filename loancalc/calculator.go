// Package loancalc computes loan affordability: amortized installment, DSR, eligibility against a
// DSR ceiling, and the shortfall when the requested loan exceeds that ceiling.
package loancalc

import (
	"context"
	"errors"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/logger"
)

const opCalculate = "calculate_affordability"

// RateSource looks up the lowest annual interest rate (percent) offered for a loan type.
// found is false when the rate table has no product of that type.
type RateSource interface {
	LowestRate(ctx context.Context, loanType string) (rate float64, found bool, err error)
}

// Policy holds the business constants of the calculation.
type Policy struct {
	// MaxDSR is the eligibility ceiling in percent.
	MaxDSR float64
	// DefaultRate is the annual percent used when the rate table has no entry for a loan type.
	DefaultRate float64
}

// DefaultPolicy is a 40% DSR ceiling with a 4.5% fallback rate.
func DefaultPolicy() Policy {
	return Policy{MaxDSR: 40, DefaultRate: 4.5}
}

// Calculator computes affordability against a Policy. It keeps no per-call state and is safe for
// concurrent use.
type Calculator struct {
	rates  RateSource
	policy Policy
	log    *logger.Logger
}

// NewCalculator returns a Calculator. rates may be nil, in which case the default rate is always used.
func NewCalculator(rates RateSource, policy Policy, log *logger.Logger) *Calculator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Calculator{rates: rates, policy: policy, log: log.With("component", "loancalc")}
}

// Policy returns the calculator's policy constants.
func (c *Calculator) Policy() Policy { return c.policy }

// Calculate returns the affordability of q for a borrower earning monthlyIncome.
func (c *Calculator) Calculate(ctx context.Context, q domain.LoanQuery, monthlyIncome domain.MonetaryAmount) (domain.AffordabilityResult, error) {
	if monthlyIncome <= 0 {
		return domain.AffordabilityResult{}, domain.InvalidInputError(opCalculate, "monthly_income must be positive, got %d", monthlyIncome)
	}
	if q.LoanPeriodYears <= 0 {
		return domain.AffordabilityResult{}, domain.InvalidInputError(opCalculate, "loan_period must be positive, got %d", q.LoanPeriodYears)
	}
	if q.HousePrice < 0 || q.InitialCapital < 0 {
		return domain.AffordabilityResult{}, domain.InvalidInputError(opCalculate, "house_price and initial_capital must not be negative")
	}
	loan := q.HousePrice - q.InitialCapital
	if loan < 0 {
		return domain.AffordabilityResult{}, domain.InvalidInputError(opCalculate,
			"initial_capital %d exceeds house_price %d", q.InitialCapital, q.HousePrice)
	}

	rate, err := c.lowestRate(ctx, q)
	if err != nil {
		return domain.AffordabilityResult{}, err
	}

	annualIncome := monthlyIncome * 12
	months := q.LoanPeriodYears * 12
	payment := MonthlyPayment(loan, rate, months)
	dsr := DSR(payment, annualIncome)

	res := domain.AffordabilityResult{
		LoanAmount:      loan,
		InterestRate:    rate,
		DSRValue:        dsr,
		MonthlyPayment:  payment,
		IsEligible:      dsr <= c.policy.MaxDSR,
		RecommendedLoan: loan,
	}
	if !res.IsEligible {
		ceiling := float64(annualIncome) * c.policy.MaxDSR / 100 / 12
		maxLoan := MaxPrincipal(ceiling, rate, months)
		res.RecommendedLoan = min(maxLoan, loan)
		res.ShortageAmount = max(0, loan-maxLoan)
	}
	return res, nil
}

func (c *Calculator) lowestRate(ctx context.Context, q domain.LoanQuery) (float64, error) {
	if c.rates == nil {
		return c.policy.DefaultRate, nil
	}
	log := c.log
	if q.SessionID != "" {
		log = log.With("session_id", q.SessionID)
	}
	loanType := q.LoanType
	rate, found, err := c.rates.LowestRate(ctx, loanType)
	if err != nil {
		log.Error("rate lookup failed", "operation", opCalculate, "loan_type", loanType, "error", err)
		var de *domain.Error
		if errors.As(err, &de) {
			return 0, err
		}
		return 0, domain.StorageError(opCalculate, "rate lookup failed", err)
	}
	if !found {
		log.Info("no rate for loan type, using default", "loan_type", loanType, "default_rate", c.policy.DefaultRate)
		return c.policy.DefaultRate, nil
	}
	return rate, nil
}
