package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skosovsky/plantool/domain"
)

// Status values reported by ValidateInput.
const (
	StatusSuccess    = "success"
	StatusIncomplete = "incomplete"
)

// TimestampLayout is the layout of NormalizedInput.ValidationTimestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// RequiredInputFields lists the housing plan fields ValidateInput checks, in report order.
var RequiredInputFields = []string{
	"initial_prop",
	"hope_location",
	"hope_price",
	"hope_housing_type",
	"income_usage_ratio",
}

// NormalizedInput is the canonical form of a housing plan questionnaire.
type NormalizedInput struct {
	InitialProp         domain.MonetaryAmount `json:"initial_prop"`
	HopeLocation        string                `json:"hope_location"`
	HopePrice           domain.MonetaryAmount `json:"hope_price"`
	HopeHousingType     string                `json:"hope_housing_type"`
	IncomeUsageRatio    int                   `json:"income_usage_ratio"`
	ValidationTimestamp string                `json:"validation_timestamp"`
}

// ValidationResult is returned by ValidateInput. Data is set only when Status is StatusSuccess.
type ValidationResult struct {
	Status        string           `json:"status"`
	Data          *NormalizedInput `json:"data,omitempty"`
	MissingFields []string         `json:"missing_fields"`
}

// Normalizer bundles the location table with the stateless parsers.
type Normalizer struct {
	locations *Locations
	now       func() time.Time
}

// New returns a Normalizer using locs, or the built-in aliases when locs is nil.
func New(locs *Locations) *Normalizer {
	if locs == nil {
		locs = builtin
	}
	return &Normalizer{locations: locs, now: time.Now}
}

// NormalizeLocation resolves s against the Normalizer's alias table.
func (n *Normalizer) NormalizeLocation(s string) (string, bool) {
	return n.locations.Normalize(s)
}

// ValidateInput checks the questionnaire for missing fields and normalizes amounts, the ratio and
// the location. Missing fields are not an error: the result carries StatusIncomplete.
func (n *Normalizer) ValidateInput(data map[string]any) (ValidationResult, error) {
	missing := make([]string, 0, len(RequiredInputFields))
	for _, field := range RequiredInputFields {
		if isBlank(data[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return ValidationResult{Status: StatusIncomplete, MissingFields: missing}, nil
	}

	initial, err := ParseAmount(data["initial_prop"])
	if err != nil {
		return ValidationResult{}, err
	}
	price, err := ParseAmount(data["hope_price"])
	if err != nil {
		return ValidationResult{}, err
	}
	ratio, err := ParseRatio(data["income_usage_ratio"])
	if err != nil {
		return ValidationResult{}, err
	}
	location, _ := n.locations.Normalize(fmt.Sprint(data["hope_location"]))

	return ValidationResult{
		Status: StatusSuccess,
		Data: &NormalizedInput{
			InitialProp:         initial,
			HopeLocation:        location,
			HopePrice:           price,
			HopeHousingType:     fmt.Sprint(data["hope_housing_type"]),
			IncomeUsageRatio:    ratio,
			ValidationTimestamp: n.now().Format(TimestampLayout),
		},
		MissingFields: []string{},
	}, nil
}

// Target returns the plan form of the questionnaire with the given planning status.
func (in NormalizedInput) Target(status string) domain.HousingTarget {
	return domain.HousingTarget{
		InitialProp:      in.InitialProp,
		Location:         in.HopeLocation,
		Price:            in.HopePrice,
		HousingType:      in.HopeHousingType,
		IncomeUsageRatio: in.IncomeUsageRatio,
		Status:           status,
		ValidatedAt:      in.ValidationTimestamp,
	}
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || x == "0"
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	case json.Number:
		return x.String() == "0"
	default:
		return false
	}
}
