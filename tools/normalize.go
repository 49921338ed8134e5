package tools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/loancalc"
	"github.com/skosovsky/plantool/normalize"
)

type valueArgs struct {
	Value any `json:"value" description:"Amount as a number of won or Korean text such as \"3억 5천만\" or \"120,000원\""`
}

type parsedAmount struct {
	Parsed    domain.MonetaryAmount `json:"parsed"`
	Formatted string                `json:"formatted"`
}

func (s *service) parseCurrencyTool() (plantool.Tool, error) {
	return plantool.NewTool("parse_currency",
		"Convert a Korean currency expression (억, 천만, 만, 천, commas, 원) or a number into an integer amount of won.",
		func(_ context.Context, a valueArgs) (parsedAmount, error) {
			n, err := normalize.ParseAmount(a.Value)
			if err != nil {
				return parsedAmount{}, err
			}
			return parsedAmount{Parsed: n, Formatted: normalize.FormatAmount(n)}, nil
		},
		plantool.WithTags("normalize"), plantool.WithVersion(Version))
}

type locationArgs struct {
	Location string `json:"location" description:"Free-form Korean district or city name"`
}

type locationResult struct {
	Normalized string `json:"normalized"`
	Matched    bool   `json:"matched"`
}

func (s *service) normalizeLocationTool() (plantool.Tool, error) {
	return plantool.NewTool("normalize_location",
		"Map a district or city alias to its canonical administrative name. Unknown names are returned trimmed.",
		func(_ context.Context, a locationArgs) (locationResult, error) {
			out, ok := s.norm.NormalizeLocation(a.Location)
			return locationResult{Normalized: out, Matched: ok}, nil
		},
		plantool.WithTags("normalize"), plantool.WithVersion(Version))
}

type ratioArgs struct {
	Value any `json:"value" description:"Percentage such as 30, \"30\" or \"30%\""`
}

type ratioResult struct {
	Ratio int `json:"ratio"`
}

func (s *service) parseRatioTool() (plantool.Tool, error) {
	return plantool.NewTool("parse_ratio",
		"Convert a percentage into an integer between 0 and 100.",
		func(_ context.Context, a ratioArgs) (ratioResult, error) {
			n, err := normalize.ParseRatio(a.Value)
			if err != nil {
				return ratioResult{}, err
			}
			return ratioResult{Ratio: n}, nil
		},
		plantool.WithTags("normalize"), plantool.WithVersion(Version))
}

var validateInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"session_id": map[string]any{
			"type":        "string",
			"description": "Session whose plan receives the normalized target when validation succeeds",
		},
		"data": map[string]any{
			"type":        "object",
			"description": "Questionnaire answers keyed by field: initial_prop, hope_location, hope_price, hope_housing_type, income_usage_ratio",
		},
	},
	"required": []any{"data"},
}

var validateOutputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"status":         map[string]any{"type": "string", "enum": []any{normalize.StatusSuccess, normalize.StatusIncomplete}},
		"data":           map[string]any{"type": "object"},
		"missing_fields": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

// validateInputTool is dynamic because the questionnaire answers are free-form values.
func (s *service) validateInputTool() (plantool.Tool, error) {
	opts := []plantool.ToolOption{
		plantool.WithOutputSchema(validateOutputSchema),
		plantool.WithTags("normalize"), plantool.WithVersion(Version),
	}
	if s.plans != nil {
		opts = append(opts, plantool.WithPlanWrites())
	}
	return plantool.NewDynamicTool("validate_input_data",
		"Check the housing questionnaire for missing fields and normalize amounts, the income usage ratio and the location. "+
			"With session_id a successful result is saved to the plan as the housing target.",
		validateInputSchema, s.validateInput, opts...)
}

func (s *service) validateInput(ctx context.Context, argsJSON []byte) ([]byte, error) {
	var args struct {
		SessionID string         `json:"session_id"`
		Data      map[string]any `json:"data"`
	}
	dec := json.NewDecoder(bytes.NewReader(argsJSON))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, domain.ParseError("validate_input", "decode data: %v", err)
	}
	res, err := s.norm.ValidateInput(args.Data)
	if err != nil {
		return nil, err
	}
	if res.Status == normalize.StatusSuccess && res.Data != nil {
		target := res.Data.Target(domain.TargetStatusInProgress)
		if err := s.record(ctx, args.SessionID, domain.PlanPatch{Target: &target}); err != nil {
			return nil, err
		}
	}
	return json.Marshal(res)
}

type shortageArgs struct {
	HopePrice   any `json:"hope_price" description:"Target house price"`
	LoanAmount  any `json:"loan_amount" description:"Expected loan amount"`
	InitialProp any `json:"initial_prop" description:"Assets available for the purchase"`
}

type shortageResult struct {
	ShortageAmount domain.MonetaryAmount `json:"shortage_amount"`
}

func (s *service) shortageTool() (plantool.Tool, error) {
	return plantool.NewTool("calc_shortage_amount",
		"Compute max(0, hope_price - (loan_amount + initial_prop)).",
		func(_ context.Context, a shortageArgs) (shortageResult, error) {
			var amounts [3]domain.MonetaryAmount
			for i, v := range []any{a.HopePrice, a.LoanAmount, a.InitialProp} {
				n, err := normalize.ParseAmount(v)
				if err != nil {
					return shortageResult{}, err
				}
				amounts[i] = n
			}
			return shortageResult{ShortageAmount: loancalc.Shortage(amounts[0], amounts[1], amounts[2])}, nil
		},
		plantool.WithTags("loan"), plantool.WithVersion(Version))
}
