package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoldRate представляет цену грамма золота заданной пробы на дату
type GoldRate struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Date        time.Time       `gorm:"column:date;not null;index" json:"date"`
	Purity      string          `gorm:"column:purity;size:5;not null" json:"purity"` // 24K, 22K, 18K, 14K
	RatePerGram decimal.Decimal `gorm:"column:rate_per_gram;type:decimal(10,2);not null" json:"ratePerGram"`
	City        string          `gorm:"column:city;size:50;not null;default:'Mumbai'" json:"city"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"-"`
}

// TableName возвращает имя таблицы для модели GoldRate
func (GoldRate) TableName() string {
	return "gold_rates"
}
