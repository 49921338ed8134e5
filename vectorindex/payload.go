package vectorindex

import "github.com/skosovsky/plantool/domain"

// productPayload is the point payload layout of a product collection.
type productPayload struct {
	ProductID         string          `json:"product_id"`
	BankName          string          `json:"bank_name"`
	ProductName       string          `json:"product_name,omitempty"`
	InterestRate      float64         `json:"interest_rate"`
	TermMonths        int             `json:"term_months"`
	Category          domain.Category `json:"category"`
	MinAge            int             `json:"min_age,omitempty"`
	FirstCustomerOnly bool            `json:"first_customer_only,omitempty"`
}

func payloadFromProduct(p domain.ProductRecord) productPayload {
	return productPayload{
		ProductID:         p.ID,
		BankName:          p.BankName,
		ProductName:       p.ProductName,
		InterestRate:      p.InterestRate,
		TermMonths:        p.TermMonths,
		Category:          p.Category,
		MinAge:            p.MinAge,
		FirstCustomerOnly: p.FirstCustomerOnly,
	}
}

func (pl productPayload) product() domain.ProductRecord {
	return domain.ProductRecord{
		ID:                pl.ProductID,
		BankName:          pl.BankName,
		ProductName:       pl.ProductName,
		InterestRate:      pl.InterestRate,
		TermMonths:        pl.TermMonths,
		Category:          pl.Category,
		MinAge:            pl.MinAge,
		FirstCustomerOnly: pl.FirstCustomerOnly,
	}
}
