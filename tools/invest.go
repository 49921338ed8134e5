package tools

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/invest"
)

type topFundsArgs struct {
	Funds []invest.Fund `json:"funds" description:"Fund catalog entries with risk_level and expected_return"`
}

type topFundsResult struct {
	Recommendations  []invest.Recommendation `json:"recommendations"`
	TotalInputFunds  int                     `json:"total_input_funds"`
	UniqueRiskLevels int                     `json:"unique_risk_levels"`
}

func (s *service) topFundsTool() (plantool.Tool, error) {
	return plantool.NewTool("select_top_funds_by_risk",
		"Pick the fund with the highest expected return for every risk level.",
		func(_ context.Context, a topFundsArgs) (topFundsResult, error) {
			recs, err := invest.TopFundsByRisk(a.Funds)
			if err != nil {
				return topFundsResult{}, err
			}
			return topFundsResult{
				Recommendations:  recs,
				TotalInputFunds:  len(a.Funds),
				UniqueRiskLevels: len(recs),
			}, nil
		},
		plantool.WithTags("invest"), plantool.WithVersion(Version))
}

type simulateArgs struct {
	SessionID        string   `json:"session_id,omitempty" description:"Session whose profile supplies monthly_income when omitted"`
	Shortage         any      `json:"shortage" description:"Amount still missing for the purchase"`
	AvailableAssets  any      `json:"available_assets,omitempty" description:"Assets invested at month zero"`
	MonthlyIncome    any      `json:"monthly_income,omitempty"`
	IncomeUsageRatio *float64 `json:"income_usage_ratio,omitempty" description:"Percent of monthly income invested (default 20)"`
	SavingYield      *float64 `json:"saving_yield,omitempty" description:"Annual deposit/saving yield in percent (default 3)"`
	FundYield        *float64 `json:"fund_yield,omitempty" description:"Annual fund yield in percent (default 6)"`
	SavingRatio      *float64 `json:"saving_ratio,omitempty" description:"Share put into deposits/savings, 0 to 1 (default 0.5)"`
	FundRatio        *float64 `json:"fund_ratio,omitempty" description:"Share put into funds, 0 to 1 (default 0.5)"`
}

func (s *service) simulateTool() (plantool.Tool, error) {
	return plantool.NewTool("simulate_combined_investment",
		"Simulate monthly compounding of a deposit/saving plus fund portfolio until it covers the shortage (at most 600 months).",
		s.simulate,
		plantool.WithTags("invest"), plantool.WithVersion(Version))
}

func (s *service) simulate(ctx context.Context, a simulateArgs) (invest.Simulation, error) {
	const op = "simulate_combined_investment"
	in := invest.DefaultSimulationInput()
	var err error
	if in.Shortage, _, err = optionalAmount(a.Shortage); err != nil {
		return invest.Simulation{}, err
	}
	if in.AvailableAssets, _, err = optionalAmount(a.AvailableAssets); err != nil {
		return invest.Simulation{}, err
	}
	income, ok, err := optionalAmount(a.MonthlyIncome)
	if err != nil {
		return invest.Simulation{}, err
	}
	if !ok && strings.TrimSpace(a.SessionID) != "" && s.plans != nil {
		prof, err := s.sessionProfile(ctx, op, a.SessionID, nil)
		if err != nil {
			return invest.Simulation{}, err
		}
		income = prof.MonthlyIncome
	}
	in.MonthlyIncome = income
	in.IncomeUsageRatio = lo.FromPtrOr(a.IncomeUsageRatio, in.IncomeUsageRatio)
	in.SavingYield = lo.FromPtrOr(a.SavingYield, in.SavingYield)
	in.FundYield = lo.FromPtrOr(a.FundYield, in.FundYield)
	in.SavingRatio = lo.FromPtrOr(a.SavingRatio, in.SavingRatio)
	in.FundRatio = lo.FromPtrOr(a.FundRatio, in.FundRatio)
	return invest.Simulate(in)
}

// planHealth needs no arguments.
type planHealthArgs struct{}

type planHealth struct {
	Status   string `json:"status"`
	LLMModel string `json:"llm_model"`
}

func (s *service) healthTool() (plantool.Tool, error) {
	return plantool.NewTool("plan_health",
		"Report that the plan service is up and which LLM model drives the agent.",
		func(context.Context, planHealthArgs) (planHealth, error) {
			return planHealth{Status: "ok", LLMModel: s.llmModel}, nil
		},
		plantool.WithTags("plan"), plantool.WithVersion(Version))
}
