package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus представляет статус кредита
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"  // Заявка ожидает решения
	LoanStatusActive   LoanStatus = "active"   // Кредит выдан и погашается
	LoanStatusClosed   LoanStatus = "closed"   // Все платежи внесены
	LoanStatusRejected LoanStatus = "rejected" // Заявка отклонена
)

// Loan представляет кредит клиента вместе с графиком платежей
type Loan struct {
	ID                uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint            `gorm:"column:user_id;not null;index" json:"userId"`
	User              User            `gorm:"foreignKey:UserID" json:"-"`
	ProductID         uint            `gorm:"column:product_id;not null" json:"productId"`
	Product           LoanProduct     `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ApplicationNumber string          `gorm:"column:application_number;unique;not null;size:32" json:"applicationNumber"`
	Principal         decimal.Decimal `gorm:"column:principal;type:decimal(14,2);not null" json:"principal"`
	AnnualRatePercent decimal.Decimal `gorm:"column:annual_rate_percent;type:decimal(5,2);not null" json:"annualRatePercent"`
	TenureMonths      int             `gorm:"column:tenure_months;not null" json:"tenureMonths"`
	InstallmentAmount decimal.Decimal `gorm:"column:installment_amount;type:decimal(14,2);not null" json:"installmentAmount"`
	ProcessingFee     decimal.Decimal `gorm:"column:processing_fee;type:decimal(14,2);not null;default:0" json:"processingFee"`
	Status            LoanStatus      `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	Purpose           string          `gorm:"column:purpose;size:255" json:"purpose,omitempty"`
	ApplicationDate   time.Time       `gorm:"column:application_date;not null" json:"applicationDate"`
	ApprovalDate      *time.Time      `gorm:"column:approval_date" json:"approvalDate,omitempty"`
	DisbursalDate     *time.Time      `gorm:"column:disbursal_date" json:"disbursalDate,omitempty"`
	MaturityDate      *time.Time      `gorm:"column:maturity_date" json:"maturityDate,omitempty"`
	LastPaymentDate   *time.Time      `gorm:"column:last_payment_date" json:"lastPaymentDate,omitempty"`
	OutstandingAmount decimal.Decimal `gorm:"column:outstanding_amount;type:decimal(14,2);not null;default:0" json:"outstandingAmount"`
	TotalPaidAmount   decimal.Decimal `gorm:"column:total_paid_amount;type:decimal(14,2);not null;default:0" json:"totalPaidAmount"`
	Notes             string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Schedule          []ScheduleLine  `gorm:"foreignKey:LoanID;constraint:OnDelete:CASCADE" json:"schedule,omitempty"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName возвращает имя таблицы для модели Loan
func (Loan) TableName() string {
	return "loans"
}
