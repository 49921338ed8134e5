package retrieval

import (
	"cmp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/skosovsky/plantool/domain"
)

// MaxRanked is the length cap of a RankedProductSet.
const MaxRanked = 3

// Constraints are hard filters applied to index candidates. Nil bounds are not applied;
// numeric bounds are inclusive and bank names compare case-insensitively.
type Constraints struct {
	MinInterestRate *float64 `json:"min_interest_rate,omitempty" description:"Minimum annual interest rate in percent (inclusive)"`
	MaxTermMonths   *int     `json:"max_term_months,omitempty" description:"Maximum product term in months (inclusive)"`
	MinTermMonths   *int     `json:"min_term_months,omitempty" description:"Minimum product term in months (inclusive)"`
	Banks           []string `json:"banks,omitempty" description:"Bank whitelist; empty means any bank"`
}

// Filter returns the candidates that satisfy c and are open to profile.
func Filter(candidates []domain.ProductRecord, c Constraints, profile domain.UserProfile) []domain.ProductRecord {
	banks := lo.FilterMap(c.Banks, func(b string, _ int) (string, bool) {
		b = strings.TrimSpace(b)
		return b, b != ""
	})
	return lo.Filter(candidates, func(p domain.ProductRecord, _ int) bool {
		if c.MinInterestRate != nil && p.InterestRate < *c.MinInterestRate {
			return false
		}
		if c.MaxTermMonths != nil && p.TermMonths > *c.MaxTermMonths {
			return false
		}
		if c.MinTermMonths != nil && p.TermMonths < *c.MinTermMonths {
			return false
		}
		if len(banks) > 0 && !lo.ContainsBy(banks, func(b string) bool {
			return strings.EqualFold(b, strings.TrimSpace(p.BankName))
		}) {
			return false
		}
		if p.MinAge > 0 && profile.Age < p.MinAge {
			return false
		}
		if p.FirstCustomerOnly && !profile.FirstCustomer {
			return false
		}
		return true
	})
}

// Rank orders products by interest rate descending, term ascending, id ascending, and keeps
// the first MaxRanked. The input is not modified.
func Rank(products []domain.ProductRecord) domain.RankedProductSet {
	out := slices.Clone(products)
	slices.SortStableFunc(out, compareProducts)
	if len(out) > MaxRanked {
		out = out[:MaxRanked]
	}
	for i := range out {
		out[i].Embedding = nil
	}
	if out == nil {
		out = []domain.ProductRecord{}
	}
	return out
}

func compareProducts(a, b domain.ProductRecord) int {
	if c := cmp.Compare(b.InterestRate, a.InterestRate); c != 0 {
		return c
	}
	if c := cmp.Compare(a.TermMonths, b.TermMonths); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
