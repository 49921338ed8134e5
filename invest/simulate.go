// Package invest holds the savings-and-fund helpers used to close a housing shortfall.
package invest

import (
	"math"

	"github.com/skosovsky/plantool/domain"
)

// MaxMonths caps the simulation at fifty years.
const MaxMonths = 600

const (
	DefaultIncomeUsageRatio = 20.0
	DefaultSavingYield      = 3.0
	DefaultFundYield        = 6.0
	DefaultSavingRatio      = 0.5
	DefaultFundRatio        = 0.5
)

// SimulationInput describes a combined deposit/saving and fund plan. Yields are annual percents;
// SavingRatio and FundRatio split both the initial assets and every monthly contribution.
type SimulationInput struct {
	Shortage         domain.MonetaryAmount
	AvailableAssets  domain.MonetaryAmount
	MonthlyIncome    domain.MonetaryAmount
	IncomeUsageRatio float64
	SavingYield      float64
	FundYield        float64
	SavingRatio      float64
	FundRatio        float64
}

// DefaultSimulationInput returns an input with the default ratios and yields set.
func DefaultSimulationInput() SimulationInput {
	return SimulationInput{
		IncomeUsageRatio: DefaultIncomeUsageRatio,
		SavingYield:      DefaultSavingYield,
		FundYield:        DefaultFundYield,
		SavingRatio:      DefaultSavingRatio,
		FundRatio:        DefaultFundRatio,
	}
}

type Simulation struct {
	MonthsNeeded  int                   `json:"months_needed"`
	TotalBalance  domain.MonetaryAmount `json:"total_balance"`
	MonthlyInvest domain.MonetaryAmount `json:"monthly_invest"`
	SavingRatio   float64               `json:"saving_ratio"`
	FundRatio     float64               `json:"fund_ratio"`
	Reached       bool                  `json:"reached"`
}

// Simulate compounds both buckets monthly until their sum reaches the shortage or MaxMonths pass.
func Simulate(in SimulationInput) (Simulation, error) {
	const op = "simulate_investment"
	switch {
	case in.Shortage < 0 || in.AvailableAssets < 0 || in.MonthlyIncome < 0:
		return Simulation{}, domain.RangeError(op, "amounts must be non-negative")
	case in.IncomeUsageRatio < 0 || in.IncomeUsageRatio > 100:
		return Simulation{}, domain.RangeError(op, "income_usage_ratio %v out of range [0, 100]", in.IncomeUsageRatio)
	case in.SavingRatio < 0 || in.FundRatio < 0:
		return Simulation{}, domain.RangeError(op, "saving_ratio and fund_ratio must be non-negative")
	case in.SavingYield <= -1200 || in.FundYield <= -1200:
		return Simulation{}, domain.RangeError(op, "yield must be greater than -1200%%")
	}

	monthly := float64(in.MonthlyIncome) * in.IncomeUsageRatio / 100
	out := Simulation{
		MonthlyInvest: domain.MonetaryAmount(math.Floor(monthly)),
		SavingRatio:   in.SavingRatio,
		FundRatio:     in.FundRatio,
	}
	if in.Shortage <= 0 {
		out.TotalBalance = in.AvailableAssets
		out.Reached = true
		return out, nil
	}

	saving := float64(in.AvailableAssets) * in.SavingRatio
	fund := float64(in.AvailableAssets) * in.FundRatio
	savingMonthly, fundMonthly := monthly*in.SavingRatio, monthly*in.FundRatio
	savingGrowth, fundGrowth := 1+in.SavingYield/100/12, 1+in.FundYield/100/12

	total := saving + fund
	target := float64(in.Shortage)
	months := 0
	for total < target && months < MaxMonths {
		months++
		saving = (saving + savingMonthly) * savingGrowth
		fund = (fund + fundMonthly) * fundGrowth
		total = saving + fund
	}

	out.MonthsNeeded = months
	out.TotalBalance = domain.MonetaryAmount(math.Floor(total))
	out.Reached = total >= target
	return out, nil
}
