package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanProduct представляет вид кредита с его лимитами
type LoanProduct struct {
	ID                   uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                 string          `gorm:"column:name;unique;not null;size:50" json:"name"`
	DisplayName          string          `gorm:"column:display_name;not null;size:100" json:"displayName"`
	Description          string          `gorm:"column:description;type:text" json:"description,omitempty"`
	BaseRatePercent      decimal.Decimal `gorm:"column:base_rate_percent;type:decimal(5,2);not null" json:"baseRatePercent"`
	MinAmount            decimal.Decimal `gorm:"column:min_amount;type:decimal(14,2);not null" json:"minAmount"`
	MaxAmount            decimal.Decimal `gorm:"column:max_amount;type:decimal(14,2);not null" json:"maxAmount"`
	MinTenureMonths      int             `gorm:"column:min_tenure_months;not null" json:"minTenureMonths"`
	MaxTenureMonths      int             `gorm:"column:max_tenure_months;not null" json:"maxTenureMonths"`
	ProcessingFeePercent decimal.Decimal `gorm:"column:processing_fee_percent;type:decimal(5,2);not null;default:0" json:"processingFeePercent"`
	IsActive             bool            `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt            time.Time       `gorm:"column:created_at" json:"-"`
	UpdatedAt            time.Time       `gorm:"column:updated_at" json:"-"`
}

// TableName возвращает имя таблицы для модели LoanProduct
func (LoanProduct) TableName() string {
	return "loan_products"
}
