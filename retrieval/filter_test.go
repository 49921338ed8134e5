package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skosovsky/plantool/domain"
)

func ptr[T any](v T) *T { return &v }

func TestFilter(t *testing.T) {
	candidates := []domain.ProductRecord{
		{ID: "a", BankName: "KB국민은행", InterestRate: 3.0, TermMonths: 12},
		{ID: "b", BankName: "신한은행", InterestRate: 2.5, TermMonths: 6},
		{ID: "c", BankName: "Toss Bank", InterestRate: 4.0, TermMonths: 36},
		{ID: "d", BankName: "하나은행", InterestRate: 3.8, TermMonths: 24, MinAge: 40},
		{ID: "e", BankName: "우리은행", InterestRate: 3.9, TermMonths: 12, FirstCustomerOnly: true},
	}
	profile := domain.UserProfile{Age: 30}

	tests := []struct {
		name string
		c    Constraints
		want []string
	}{
		{"no constraints drops age and first-customer gated", Constraints{}, []string{"a", "b", "c"}},
		{"min rate inclusive", Constraints{MinInterestRate: ptr(3.0)}, []string{"a", "c"}},
		{"max term inclusive", Constraints{MaxTermMonths: ptr(12)}, []string{"a", "b"}},
		{"min term inclusive", Constraints{MinTermMonths: ptr(12)}, []string{"a", "c"}},
		{"bank whitelist case-insensitive", Constraints{Banks: []string{"toss bank", " 신한은행 ", ""}}, []string{"b", "c"}},
		{"combined", Constraints{MinInterestRate: ptr(2.0), MaxTermMonths: ptr(24), Banks: []string{"kb국민은행"}}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(candidates, tt.c, profile)))
		})
	}
}

func TestFilter_ProfileGates(t *testing.T) {
	candidates := []domain.ProductRecord{
		{ID: "d", MinAge: 40},
		{ID: "e", FirstCustomerOnly: true},
	}
	got := Filter(candidates, Constraints{}, domain.UserProfile{Age: 40, FirstCustomer: true})
	assert.Equal(t, []string{"d", "e"}, ids(got))
}

func TestRank_TieBreaks(t *testing.T) {
	in := []domain.ProductRecord{
		{ID: "z", InterestRate: 3, TermMonths: 12},
		{ID: "y", InterestRate: 3, TermMonths: 6},
		{ID: "x", InterestRate: 3, TermMonths: 12},
		{ID: "w", InterestRate: 1, TermMonths: 1},
	}
	assert.Equal(t, []string{"y", "x", "z"}, ids(Rank(in)))
	assert.Equal(t, "z", in[0].ID, "input must not be reordered")
	assert.NotNil(t, Rank(nil))
	assert.Empty(t, Rank(nil))
}
