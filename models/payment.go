package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus представляет статус платежа
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed" // Платеж зачислен
	PaymentStatusFailed    PaymentStatus = "failed"    // Платеж не прошел
)

// Payment представляет поступление денег по строке графика
type Payment struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanID         uint            `gorm:"column:loan_id;not null;index" json:"loanId"`
	ScheduleLineID uint            `gorm:"column:schedule_line_id;not null;index" json:"scheduleLineId"`
	Reference      string          `gorm:"column:reference;unique;not null;size:64" json:"reference"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(14,2);not null" json:"amount"`
	Method         string          `gorm:"column:method;size:30;not null;default:'online'" json:"method"`
	PaymentDate    time.Time       `gorm:"column:payment_date;not null" json:"paymentDate"`
	Status         PaymentStatus   `gorm:"column:status;type:varchar(20);not null;default:'completed'" json:"status"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"createdAt"`
}

// TableName возвращает имя таблицы для модели Payment
func (Payment) TableName() string {
	return "payments"
}
