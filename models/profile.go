package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserProfile представляет анкету заемщика. PAN хранится зашифрованным,
// HMAC используется для поиска по номеру без расшифровки.
type UserProfile struct {
	gorm.Model
	UserID        uint            `gorm:"column:user_id;uniqueIndex;not null"`
	City          string          `gorm:"column:city;size:50"`
	State         string          `gorm:"column:state;size:50"`
	Occupation    string          `gorm:"column:occupation;size:100"`
	MonthlyIncome decimal.Decimal `gorm:"column:monthly_income;type:decimal(14,2);not null;default:0"`
	PANEncrypted  string          `gorm:"column:pan_encrypted;type:text"`
	PANHMAC       string          `gorm:"column:pan_hmac;size:64;index"`
}

// TableName возвращает имя таблицы для модели UserProfile
func (UserProfile) TableName() string {
	return "user_profiles"
}
