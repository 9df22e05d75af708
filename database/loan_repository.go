package database

import (
	"context"
	"errors"
	"time"

	"loanDesk/amortization"
	"loanDesk/apperrors"
	"loanDesk/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanRepository описывает хранилище кредитов, графиков и платежей.
// Все методы, вызванные на репозитории из Transaction, выполняются в одной транзакции.
type LoanRepository interface {
	Transaction(ctx context.Context, fn func(repo LoanRepository) error) error

	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, id uint) (*models.Loan, error)
	// GetLoanForUpdate читает кредит с блокировкой строки до конца транзакции
	GetLoanForUpdate(ctx context.Context, id uint) (*models.Loan, error)
	SaveLoanWithSchedule(ctx context.Context, loan *models.Loan, lines []models.ScheduleLine) error
	UpdateLoanBalance(ctx context.Context, loanID uint, outstanding, totalPaid decimal.Decimal, lastPaymentDate time.Time) error
	UpdateLoanStatus(ctx context.Context, loanID uint, status models.LoanStatus, notes string) error
	ListLoansByUser(ctx context.Context, userID uint) ([]models.Loan, error)
	// ListLoans возвращает кредиты с указанным статусом, пустой статус - все кредиты
	ListLoans(ctx context.Context, status models.LoanStatus) ([]models.Loan, error)

	GetScheduleLine(ctx context.Context, lineID uint) (*models.ScheduleLine, error)
	ListSchedule(ctx context.Context, loanID uint) ([]models.ScheduleLine, error)
	UpdateScheduleLineStatus(ctx context.Context, lineID uint, status models.ScheduleLineStatus, paidAmount *decimal.Decimal, paidDate *time.Time) error
	CountUnpaidLines(ctx context.Context, loanID uint) (int64, error)
	// MarkOverdue переводит ожидаемые платежи активных кредитов со сроком до now в просрочку
	// и начисляет пени feePercent% от платежа. Возвращает число измененных строк.
	MarkOverdue(ctx context.Context, now time.Time, feePercent decimal.Decimal) (int64, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	ListPayments(ctx context.Context, loanID uint) ([]models.Payment, error)

	GetProduct(ctx context.Context, id uint) (*models.LoanProduct, error)
	// ListProducts возвращает активные продукты
	ListProducts(ctx context.Context) ([]models.LoanProduct, error)
}

// GormLoanRepository реализует LoanRepository поверх GORM
type GormLoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository создает новый экземпляр GormLoanRepository
func NewLoanRepository(db *gorm.DB) *GormLoanRepository {
	return &GormLoanRepository{db: db}
}

// Transaction выполняет fn в транзакции. Ошибка fn откатывает все изменения.
func (r *GormLoanRepository) Transaction(ctx context.Context, fn func(repo LoanRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormLoanRepository{db: tx})
	})
	if err != nil {
		return apperrors.Persistence("ошибка выполнения транзакции", err)
	}
	return nil
}

// CreateLoan сохраняет новую заявку
func (r *GormLoanRepository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(loan).Error; err != nil {
		return apperrors.Persistence("ошибка при создании кредита", err)
	}
	return nil
}

// GetLoan возвращает кредит с продуктом
func (r *GormLoanRepository) GetLoan(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).Preload("Product").First(&loan, id).Error; err != nil {
		return nil, notFoundOr(err, "кредит %d не найден", id)
	}
	return &loan, nil
}

// GetLoanForUpdate возвращает кредит, заблокированный для изменения (SELECT ... FOR UPDATE)
func (r *GormLoanRepository) GetLoanForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error
	if err != nil {
		return nil, notFoundOr(err, "кредит %d не найден", id)
	}
	return &loan, nil
}

// SaveLoanWithSchedule сохраняет изменения кредита и создает его график
func (r *GormLoanRepository) SaveLoanWithSchedule(ctx context.Context, loan *models.Loan, lines []models.ScheduleLine) error {
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Save(loan).Error; err != nil {
		return apperrors.Persistence("ошибка при обновлении кредита", err)
	}

	for i := range lines {
		lines[i].LoanID = loan.ID
	}
	if len(lines) > 0 {
		if err := db.CreateInBatches(lines, 100).Error; err != nil {
			return apperrors.Persistence("ошибка при сохранении графика платежей", err)
		}
	}

	loan.Schedule = lines
	return nil
}

// UpdateLoanBalance обновляет остаток долга и сумму выплат
func (r *GormLoanRepository) UpdateLoanBalance(ctx context.Context, loanID uint, outstanding, totalPaid decimal.Decimal, lastPaymentDate time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ?", loanID).
		Updates(map[string]interface{}{
			"outstanding_amount": outstanding,
			"total_paid_amount":  totalPaid,
			"last_payment_date":  lastPaymentDate,
			"updated_at":         time.Now(),
		})
	return rowsAffectedOr(result, "кредит %d не найден", loanID)
}

// UpdateLoanStatus меняет статус кредита
func (r *GormLoanRepository) UpdateLoanStatus(ctx context.Context, loanID uint, status models.LoanStatus, notes string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if notes != "" {
		updates["notes"] = notes
	}

	result := r.db.WithContext(ctx).Model(&models.Loan{}).Where("id = ?", loanID).Updates(updates)
	return rowsAffectedOr(result, "кредит %d не найден", loanID)
}

// ListLoansByUser возвращает кредиты пользователя, новые первыми
func (r *GormLoanRepository) ListLoansByUser(ctx context.Context, userID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&loans).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при получении кредитов пользователя", err)
	}
	return loans, nil
}

// ListLoans возвращает кредиты по статусу
func (r *GormLoanRepository) ListLoans(ctx context.Context, status models.LoanStatus) ([]models.Loan, error) {
	query := r.db.WithContext(ctx).Preload("Product").Order("created_at DESC, id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var loans []models.Loan
	if err := query.Find(&loans).Error; err != nil {
		return nil, apperrors.Persistence("ошибка при получении списка кредитов", err)
	}
	return loans, nil
}

// GetScheduleLine возвращает строку графика
func (r *GormLoanRepository) GetScheduleLine(ctx context.Context, lineID uint) (*models.ScheduleLine, error) {
	var line models.ScheduleLine
	if err := r.db.WithContext(ctx).First(&line, lineID).Error; err != nil {
		return nil, notFoundOr(err, "платеж %d не найден в графике", lineID)
	}
	return &line, nil
}

// ListSchedule возвращает график кредита по порядку периодов
func (r *GormLoanRepository) ListSchedule(ctx context.Context, loanID uint) ([]models.ScheduleLine, error) {
	var lines []models.ScheduleLine
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("period_number ASC").
		Find(&lines).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при получении графика платежей", err)
	}
	return lines, nil
}

// UpdateScheduleLineStatus меняет статус строки графика
func (r *GormLoanRepository) UpdateScheduleLineStatus(ctx context.Context, lineID uint, status models.ScheduleLineStatus, paidAmount *decimal.Decimal, paidDate *time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.ScheduleLine{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{
			"status":      status,
			"paid_amount": paidAmount,
			"paid_date":   paidDate,
			"updated_at":  time.Now(),
		})
	return rowsAffectedOr(result, "платеж %d не найден в графике", lineID)
}

// CountUnpaidLines считает непогашенные строки графика
func (r *GormLoanRepository) CountUnpaidLines(ctx context.Context, loanID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ScheduleLine{}).
		Where("loan_id = ? AND status IN ?", loanID, []models.ScheduleLineStatus{
			models.ScheduleLineStatusPending,
			models.ScheduleLineStatusOverdue,
		}).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Persistence("ошибка при проверке оставшихся платежей", err)
	}
	return count, nil
}

// MarkOverdue помечает просроченные платежи и начисляет пени
func (r *GormLoanRepository) MarkOverdue(ctx context.Context, now time.Time, feePercent decimal.Decimal) (int64, error) {
	var marked int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Получаем все платежи, срок которых прошел
		var lines []models.ScheduleLine
		err := tx.Where("status = ? AND due_date < ?", models.ScheduleLineStatusPending, now).
			Where("loan_id IN (?)", tx.Model(&models.Loan{}).Select("id").Where("status = ?", models.LoanStatusActive)).
			Find(&lines).Error
		if err != nil {
			return err
		}

		for _, line := range lines {
			fee := amortization.Percent(line.InstallmentAmount, feePercent)
			result := tx.Model(&models.ScheduleLine{}).
				Where("id = ? AND status = ?", line.ID, models.ScheduleLineStatusPending).
				Updates(map[string]interface{}{
					"status":     models.ScheduleLineStatusOverdue,
					"late_fee":   fee,
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			marked += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Persistence("ошибка при обработке просроченных платежей", err)
	}

	return marked, nil
}

// CreatePayment сохраняет квитанцию о платеже
func (r *GormLoanRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return apperrors.Persistence("ошибка при сохранении платежа", err)
	}
	return nil
}

// ListPayments возвращает платежи по кредиту
func (r *GormLoanRepository) ListPayments(ctx context.Context, loanID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при получении платежей", err)
	}
	return payments, nil
}

// GetProduct возвращает кредитный продукт
func (r *GormLoanRepository) GetProduct(ctx context.Context, id uint) (*models.LoanProduct, error) {
	var product models.LoanProduct
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, notFoundOr(err, "кредитный продукт %d не найден", id)
	}
	return &product, nil
}

// ListProducts возвращает активные кредитные продукты
func (r *GormLoanRepository) ListProducts(ctx context.Context) ([]models.LoanProduct, error) {
	var products []models.LoanProduct
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&products).Error; err != nil {
		return nil, apperrors.Persistence("ошибка при получении продуктов", err)
	}
	return products, nil
}

// notFoundOr превращает gorm.ErrRecordNotFound в NotFound, остальное - в Persistence
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(format, args...)
	}
	return apperrors.Persistence("ошибка обращения к базе данных", err)
}

func rowsAffectedOr(result *gorm.DB, format string, args ...interface{}) error {
	if result.Error != nil {
		return apperrors.Persistence("ошибка обращения к базе данных", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(format, args...)
	}
	return nil
}
