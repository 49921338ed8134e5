package tools

import (
	"context"
	"strings"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/normalize"
)

type affordabilityArgs struct {
	SessionID      string `json:"session_id,omitempty" description:"Session whose plan supplies the income and receives the result"`
	MonthlyIncome  any    `json:"monthly_income,omitempty" description:"Monthly income; read from the session profile when omitted"`
	HousePrice     any    `json:"house_price" description:"House price as a number of won or Korean text"`
	InitialCapital any    `json:"initial_capital" description:"Own capital put into the purchase"`
	LoanType       string `json:"loan_type" description:"Loan product type used to look up the lowest rate"`
	LoanPeriod     int    `json:"loan_period" jsonschema:"minimum=1,maximum=50" description:"Loan period in years"`
}

func (s *service) affordabilityTool() (plantool.Tool, error) {
	opts := []plantool.ToolOption{plantool.WithTags("loan", "plan"), plantool.WithVersion(Version)}
	if s.plans != nil {
		opts = append(opts, plantool.WithPlanWrites())
	}
	return plantool.NewTool("calculate_affordability",
		"Compute loan amount, monthly payment, DSR and eligibility for a house purchase using the lowest rate of the loan type. "+
			"With session_id the income comes from the stored profile and the result is saved to the plan.",
		s.calculateAffordability, opts...)
}

func (s *service) calculateAffordability(ctx context.Context, a affordabilityArgs) (domain.AffordabilityResult, error) {
	const op = "calculate_affordability"
	price, err := normalize.ParseAmount(a.HousePrice)
	if err != nil {
		return domain.AffordabilityResult{}, err
	}
	capital, err := normalize.ParseAmount(a.InitialCapital)
	if err != nil {
		return domain.AffordabilityResult{}, err
	}
	income, ok, err := optionalAmount(a.MonthlyIncome)
	if err != nil {
		return domain.AffordabilityResult{}, err
	}
	if !ok {
		prof, err := s.sessionProfile(ctx, op, a.SessionID, nil)
		if err != nil {
			return domain.AffordabilityResult{}, err
		}
		income = prof.MonthlyIncome
	}

	res, err := s.calc.Calculate(ctx, domain.LoanQuery{
		SessionID:       a.SessionID,
		HousePrice:      price,
		InitialCapital:  capital,
		LoanType:        strings.TrimSpace(a.LoanType),
		LoanPeriodYears: a.LoanPeriod,
	}, income)
	if err != nil {
		return domain.AffordabilityResult{}, err
	}
	if err := s.record(ctx, a.SessionID, domain.PlanPatch{Affordability: &res}); err != nil {
		return domain.AffordabilityResult{}, err
	}
	return res, nil
}
