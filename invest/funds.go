package invest

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/skosovsky/plantool/domain"
)

// Fund is one entry of a fund catalog. ExpectedReturn may be a number or a percent string such as "12.5%".
type Fund struct {
	ProductName    string `json:"product_name,omitempty"`
	Name           string `json:"name,omitempty"`
	RiskLevel      string `json:"risk_level,omitempty"`
	ExpectedReturn any    `json:"expected_return,omitempty"`
	Description    string `json:"description,omitempty"`
}

type Recommendation struct {
	RiskLevel      string  `json:"risk_level"`
	ProductName    string  `json:"product_name"`
	ExpectedReturn any     `json:"expected_return"`
	ReturnPercent  float64 `json:"return_percent"`
	Description    string  `json:"description,omitempty"`
}

// TopFundsByRisk keeps the fund with the highest expected return per risk level, ordered by
// return descending then risk level ascending. Funds without a risk level are skipped.
func TopFundsByRisk(funds []Fund) ([]Recommendation, error) {
	if len(funds) == 0 {
		return nil, domain.InvalidInputError("select_top_funds", "fund list is empty")
	}
	byRisk := lo.GroupBy(lo.Filter(funds, func(f Fund, _ int) bool {
		return strings.TrimSpace(f.RiskLevel) != ""
	}), func(f Fund) string { return strings.TrimSpace(f.RiskLevel) })

	recs := make([]Recommendation, 0, len(byRisk))
	for risk, group := range byRisk {
		best := group[0]
		bestReturn := ParseReturn(best.ExpectedReturn)
		for _, f := range group[1:] {
			if r := ParseReturn(f.ExpectedReturn); r > bestReturn {
				best, bestReturn = f, r
			}
		}
		recs = append(recs, Recommendation{
			RiskLevel:      risk,
			ProductName:    lo.Ternary(best.ProductName != "", best.ProductName, best.Name),
			ExpectedReturn: best.ExpectedReturn,
			ReturnPercent:  bestReturn,
			Description:    best.Description,
		})
	}
	slices.SortFunc(recs, func(a, b Recommendation) int {
		if c := cmp.Compare(b.ReturnPercent, a.ReturnPercent); c != 0 {
			return c
		}
		return strings.Compare(a.RiskLevel, b.RiskLevel)
	})
	return recs, nil
}

// ParseReturn reads an expected return in percent. Values that cannot be read count as 0.
func ParseReturn(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		f, err := strconv.ParseFloat(fmt.Sprint(x), 64)
		if err != nil {
			return 0
		}
		return f
	}
}
