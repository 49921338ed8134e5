package retrieval

import (
	"fmt"

	"github.com/skosovsky/plantool/domain"
)

var investLabels = map[domain.InvestType]string{
	domain.InvestStable:     "안정형",
	domain.InvestBalanced:   "중립형",
	domain.InvestAggressive: "공격형",
}

// BuildQuery renders the search text from age, invest type and target amount, in that order.
func BuildQuery(p domain.UserProfile, target domain.MonetaryAmount) string {
	label, ok := investLabels[p.InvestType]
	if !ok {
		label = string(p.InvestType)
	}
	return fmt.Sprintf("나이 %d세, 투자성향 %s, 목표금액 %d원에 맞는 금융상품", p.Age, label, target)
}
