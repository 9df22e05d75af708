package services

import (
	"context"

	"loanDesk/apperrors"
	"loanDesk/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardStats сводка для администратора
type DashboardStats struct {
	Users            int64                       `json:"users"`
	LoansByStatus    map[models.LoanStatus]int64 `json:"loansByStatus"`
	TotalDisbursed   decimal.Decimal             `json:"totalDisbursed"`
	TotalOutstanding decimal.Decimal             `json:"totalOutstanding"`
	TotalCollected   decimal.Decimal             `json:"totalCollected"`
	OverdueLines     int64                       `json:"overdueLines"`
	LateFees         decimal.Decimal             `json:"lateFees"`
}

// DashboardService собирает статистику по портфелю
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService создает новый экземпляр DashboardService
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats возвращает сводку по пользователям, кредитам и платежам
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{LoansByStatus: make(map[models.LoanStatus]int64)}

	if err := db.Model(&models.User{}).Where("role = ?", models.RoleUser).Count(&stats.Users).Error; err != nil {
		return nil, apperrors.Persistence("ошибка при подсчете пользователей", err)
	}

	// Кредиты по статусам
	var byStatus []struct {
		Status models.LoanStatus
		Count  int64
	}
	if err := db.Model(&models.Loan{}).Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, apperrors.Persistence("ошибка при подсчете кредитов", err)
	}
	for _, row := range byStatus {
		stats.LoansByStatus[row.Status] = row.Count
	}

	// Выдано и остаток по активным и закрытым кредитам
	var totals struct {
		Disbursed   decimal.Decimal
		Outstanding decimal.Decimal
	}
	err := db.Model(&models.Loan{}).
		Select("COALESCE(SUM(principal), 0) AS disbursed, COALESCE(SUM(outstanding_amount), 0) AS outstanding").
		Where("status IN ?", []models.LoanStatus{models.LoanStatusActive, models.LoanStatusClosed}).
		Scan(&totals).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при подсчете сумм кредитов", err)
	}
	stats.TotalDisbursed = totals.Disbursed
	stats.TotalOutstanding = totals.Outstanding

	err = db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", models.PaymentStatusCompleted).
		Scan(&stats.TotalCollected).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при подсчете платежей", err)
	}

	// Просрочки
	var overdue struct {
		Lines int64
		Fees  decimal.Decimal
	}
	err = db.Model(&models.ScheduleLine{}).
		Select("COUNT(*) AS lines, COALESCE(SUM(late_fee), 0) AS fees").
		Where("status = ?", models.ScheduleLineStatusOverdue).
		Scan(&overdue).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при подсчете просрочек", err)
	}
	stats.OverdueLines = overdue.Lines
	stats.LateFees = overdue.Fees

	return stats, nil
}
