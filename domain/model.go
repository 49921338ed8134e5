// Package domain holds the data model shared by the plan engine packages and its error taxonomy.
package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// MonetaryAmount is a non-negative count of won.
type MonetaryAmount int64

// InvestType is the user's declared risk appetite.
type InvestType string

const (
	InvestStable     InvestType = "stable"
	InvestBalanced   InvestType = "balanced"
	InvestAggressive InvestType = "aggressive"
)

// Valid reports whether t is one of the known invest types.
func (t InvestType) Valid() bool {
	switch t {
	case InvestStable, InvestBalanced, InvestAggressive:
		return true
	default:
		return false
	}
}

// Category identifies a product index.
type Category string

const (
	CategoryDeposit Category = "deposit"
	CategorySaving  Category = "saving"
	CategoryFund    Category = "fund"
)

// AllCategories is the fixed search order used when a caller does not name categories.
var AllCategories = []Category{CategoryDeposit, CategorySaving, CategoryFund}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(AllCategories, c) {
		return c, true
	}
	return "", false
}

// UserProfile is the session owner's profile as stored with the plan.
type UserProfile struct {
	Age           int            `json:"age" jsonschema:"minimum=0,maximum=150"`
	Occupation    string         `json:"occupation,omitempty"`
	MonthlyIncome MonetaryAmount `json:"monthly_income" jsonschema:"minimum=0"`
	InvestType    InvestType     `json:"invest_type" jsonschema:"enum=stable,enum=balanced,enum=aggressive"`
	FirstCustomer bool           `json:"is_first_customer,omitempty"`
}

// LoanQuery is built per affordability request. SessionID only tags logs.
type LoanQuery struct {
	SessionID       string         `json:"session_id,omitempty"`
	HousePrice      MonetaryAmount `json:"house_price"`
	InitialCapital  MonetaryAmount `json:"initial_capital"`
	LoanType        string         `json:"loan_type"`
	LoanPeriodYears int            `json:"loan_period"`
}

// AffordabilityResult is the calculator output. It is only ever persisted inside a Plan.
type AffordabilityResult struct {
	LoanAmount      MonetaryAmount `json:"loan_amount"`
	InterestRate    float64        `json:"interest_rate"`
	DSRValue        float64        `json:"dsr_value"`
	MonthlyPayment  MonetaryAmount `json:"monthly_payment"`
	IsEligible      bool           `json:"is_eligible"`
	ShortageAmount  MonetaryAmount `json:"shortage_amount"`
	RecommendedLoan MonetaryAmount `json:"recommended_loan"`
}

// ProductRecord is a financial product as stored in a category index.
type ProductRecord struct {
	ID                string    `json:"id"`
	BankName          string    `json:"bank_name"`
	ProductName       string    `json:"product_name,omitempty"`
	InterestRate      float64   `json:"interest_rate"`
	TermMonths        int       `json:"term_months"`
	Category          Category  `json:"category"`
	MinAge            int       `json:"min_age,omitempty"`
	FirstCustomerOnly bool      `json:"first_customer_only,omitempty"`
	Score             float64   `json:"score,omitempty"`
	Embedding         []float32 `json:"embedding_vector,omitempty"`
}

// TargetStatusInProgress marks a housing target that is still being planned.
const TargetStatusInProgress = "in_progress"

// HousingTarget is the validated housing goal of the questionnaire.
type HousingTarget struct {
	InitialProp      MonetaryAmount `json:"initial_prop"`
	Location         string         `json:"hope_location"`
	Price            MonetaryAmount `json:"hope_price"`
	HousingType      string         `json:"hope_housing_type"`
	IncomeUsageRatio int            `json:"income_usage_ratio"`
	Status           string         `json:"plan_status"`
	ValidatedAt      string         `json:"validation_timestamp,omitempty"`
}

// RankedProductSet holds at most three products ordered by interest rate descending,
// then term ascending, then id ascending.
type RankedProductSet []ProductRecord

// Plan is the session-scoped aggregate. Nil fields have not been produced yet.
type Plan struct {
	SessionID        string                        `json:"session_id"`
	Profile          *UserProfile                  `json:"profile,omitempty"`
	Affordability    *AffordabilityResult          `json:"affordability,omitempty"`
	Target           *HousingTarget                `json:"target,omitempty"`
	SelectedProducts map[Category]RankedProductSet `json:"selected_products,omitempty"`
	CreatedAt        time.Time                     `json:"created_at"`
	UpdatedAt        time.Time                     `json:"updated_at"`
}

// PlanPatch carries the fields a single stage produced. Nil fields are left untouched on merge;
// Products merges per category.
type PlanPatch struct {
	Profile       *UserProfile                  `json:"profile,omitempty"`
	Affordability *AffordabilityResult          `json:"affordability,omitempty"`
	Target        *HousingTarget                `json:"target,omitempty"`
	Products      map[Category]RankedProductSet `json:"products,omitempty"`
}

// Empty reports whether the patch carries no field.
func (p PlanPatch) Empty() bool {
	return p.Profile == nil && p.Affordability == nil && p.Target == nil && len(p.Products) == 0
}

// Apply merges p into plan in place.
func (p PlanPatch) Apply(plan *Plan) {
	if p.Profile != nil {
		prof := *p.Profile
		plan.Profile = &prof
	}
	if p.Affordability != nil {
		aff := *p.Affordability
		plan.Affordability = &aff
	}
	if p.Target != nil {
		target := *p.Target
		plan.Target = &target
	}
	if len(p.Products) > 0 {
		if plan.SelectedProducts == nil {
			plan.SelectedProducts = make(map[Category]RankedProductSet, len(p.Products))
		}
		for c, set := range p.Products {
			plan.SelectedProducts[c] = slices.Clone(set)
		}
	}
}

// CanonicalProducts returns p.Products keyed by canonical category names, so "DEPOSIT" and
// "deposit" address the same stored set. Keys that are not a known category are returned in
// unknown and left out of the map.
func (p PlanPatch) CanonicalProducts() (products map[Category]RankedProductSet, unknown []string) {
	if len(p.Products) == 0 {
		return nil, nil
	}
	products = make(map[Category]RankedProductSet, len(p.Products))
	for _, raw := range slices.Sorted(maps.Keys(p.Products)) {
		set := p.Products[raw]
		c, ok := ParseCategory(string(raw))
		if !ok {
			unknown = append(unknown, string(raw))
			continue
		}
		// an exact canonical key wins over a differently spelled duplicate
		if _, seen := products[c]; seen && raw != c {
			continue
		}
		products[c] = set
	}
	slices.Sort(unknown)
	return products, unknown
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := p
	if p.Profile != nil {
		prof := *p.Profile
		out.Profile = &prof
	}
	if p.Affordability != nil {
		aff := *p.Affordability
		out.Affordability = &aff
	}
	if p.Target != nil {
		target := *p.Target
		out.Target = &target
	}
	if p.SelectedProducts != nil {
		out.SelectedProducts = make(map[Category]RankedProductSet, len(p.SelectedProducts))
		for c, set := range p.SelectedProducts {
			out.SelectedProducts[c] = slices.Clone(set)
		}
	}
	return out
}
