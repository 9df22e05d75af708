package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleLineStatus представляет статус строки графика
type ScheduleLineStatus string

const (
	ScheduleLineStatusPending ScheduleLineStatus = "pending" // Платеж ожидается
	ScheduleLineStatusPaid    ScheduleLineStatus = "paid"    // Платеж внесен
	ScheduleLineStatusOverdue ScheduleLineStatus = "overdue" // Платеж просрочен
)

// ScheduleLine представляет один ежемесячный платеж по кредиту
type ScheduleLine struct {
	ID                      uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanID                  uint               `gorm:"column:loan_id;not null;uniqueIndex:idx_schedule_loan_period" json:"loanId"`
	PeriodNumber            int                `gorm:"column:period_number;not null;uniqueIndex:idx_schedule_loan_period" json:"periodNumber"`
	DueDate                 time.Time          `gorm:"column:due_date;not null;index" json:"dueDate"`
	InstallmentAmount       decimal.Decimal    `gorm:"column:installment_amount;type:decimal(14,2);not null" json:"installmentAmount"`
	PrincipalComponent      decimal.Decimal    `gorm:"column:principal_component;type:decimal(14,2);not null" json:"principalComponent"`
	InterestComponent       decimal.Decimal    `gorm:"column:interest_component;type:decimal(14,2);not null" json:"interestComponent"`
	OutstandingBalanceAfter decimal.Decimal    `gorm:"column:outstanding_balance_after;type:decimal(14,2);not null" json:"outstandingBalanceAfter"`
	Status                  ScheduleLineStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	PaidAmount              *decimal.Decimal   `gorm:"column:paid_amount;type:decimal(14,2)" json:"paidAmount,omitempty"`
	PaidDate                *time.Time         `gorm:"column:paid_date" json:"paidDate,omitempty"`
	LateFee                 decimal.Decimal    `gorm:"column:late_fee;type:decimal(14,2);not null;default:0" json:"lateFee"`
	CreatedAt               time.Time          `gorm:"column:created_at" json:"-"`
	UpdatedAt               time.Time          `gorm:"column:updated_at" json:"-"`
}

// TableName возвращает имя таблицы для модели ScheduleLine
func (ScheduleLine) TableName() string {
	return "schedule_lines"
}

// IsUnpaid сообщает, можно ли еще внести платеж по строке
func (l ScheduleLine) IsUnpaid() bool {
	return l.Status == ScheduleLineStatusPending || l.Status == ScheduleLineStatusOverdue
}
