// Package ratestore is the loan product rate collaborator: a gorm-backed catalog of loan products
// and a read-through Redis cache in front of it.
package ratestore

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/clause"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/loancalc"
)

// LoanProduct is one row of the loan product table.
type LoanProduct struct {
	ID           uint      `gorm:"primaryKey"`
	BankName     string    `gorm:"size:100;not null;uniqueIndex:idx_loan_products_bank_name_type"`
	ProductName  string    `gorm:"size:200;not null;uniqueIndex:idx_loan_products_bank_name_type"`
	LoanType     string    `gorm:"size:100;not null;index;uniqueIndex:idx_loan_products_bank_name_type"`
	InterestRate float64   `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (LoanProduct) TableName() string { return "loan_products" }

// OpenPostgres opens the catalog database with gorm's logger silenced.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Migrate creates or updates the loan product table.
func (c *Catalog) Migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&LoanProduct{}); err != nil {
		return domain.StorageError("rates.migrate", "migrate loan_products", err)
	}
	return nil
}

// Upsert inserts products, replacing the rate of rows with the same bank, name and loan type.
func (c *Catalog) Upsert(ctx context.Context, products ...LoanProduct) error {
	if len(products) == 0 {
		return nil
	}
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bank_name"}, {Name: "product_name"}, {Name: "loan_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"interest_rate", "updated_at"}),
		}).
		Create(&products).Error
	if err != nil {
		return domain.StorageError("rates.upsert", "upsert loan_products", err)
	}
	return nil
}

// LowestRate returns the minimum interest rate among products of loanType.
func (c *Catalog) LowestRate(ctx context.Context, loanType string) (float64, bool, error) {
	var p LoanProduct
	res := c.db.WithContext(ctx).
		Where("loan_type = ?", strings.TrimSpace(loanType)).
		Order("interest_rate ASC").
		Limit(1).
		Find(&p)
	if res.Error != nil {
		return 0, false, domain.StorageError("rates.lowest", "query loan_products", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return p.InterestRate, true, nil
}

var _ loancalc.RateSource = (*Catalog)(nil)
