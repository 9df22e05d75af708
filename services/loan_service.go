package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"loanDesk/amortization"
	"loanDesk/apperrors"
	"loanDesk/database"
	"loanDesk/models"
	"loanDesk/tracing"
	"loanDesk/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ApplyLoanDTO представляет заявку на кредит
type ApplyLoanDTO struct {
	UserID       uint             `json:"-" validate:"required"`
	ProductID    uint             `json:"productId" validate:"required"`
	Amount       decimal.Decimal  `json:"amount"`
	TenureMonths int              `json:"tenureMonths" validate:"required,gt=0"`
	RatePercent  *decimal.Decimal `json:"ratePercent,omitempty"`
	Purpose      string           `json:"purpose" validate:"max=255"`
}

// PaymentReceipt представляет результат внесения платежа
type PaymentReceipt struct {
	Payment           models.Payment      `json:"payment"`
	Line              models.ScheduleLine `json:"line"`
	OutstandingAmount decimal.Decimal     `json:"outstandingAmount"`
	TotalPaidAmount   decimal.Decimal     `json:"totalPaidAmount"`
	LoanStatus        models.LoanStatus   `json:"loanStatus"`
}

// LoanNotifier получает события жизненного цикла кредита после фиксации транзакции
type LoanNotifier interface {
	LoanApproved(ctx context.Context, loan *models.Loan) error
	LoanRejected(ctx context.Context, loan *models.Loan, reason string) error
	PaymentReceived(ctx context.Context, loan *models.Loan, receipt *PaymentReceipt) error
	LoanClosed(ctx context.Context, loan *models.Loan) error
}

// LoanService управляет жизненным циклом кредита: заявка, одобрение, платежи, закрытие
type LoanService struct {
	repo     database.LoanRepository
	notifier LoanNotifier
	now      func() time.Time
}

// NewLoanService создает новый экземпляр LoanService
func NewLoanService(repo database.LoanRepository, notifier LoanNotifier) *LoanService {
	return &LoanService{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

// startSpan открывает спан операции
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracing.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan фиксирует результат операции в спане
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// generateApplicationNumber формирует номер заявки вида BF<мс><3 цифры>
func generateApplicationNumber(now time.Time) string {
	return fmt.Sprintf("BF%d%03d", now.UnixMilli(), rand.Intn(1000))
}

// Apply создает заявку на кредит в статусе pending
func (s *LoanService) Apply(ctx context.Context, dto ApplyLoanDTO) (loan *models.Loan, err error) {
	ctx, span := startSpan(ctx, "LoanService.Apply", attribute.Int("product.id", int(dto.ProductID)))
	startTime := time.Now()
	defer func() {
		endSpan(span, err)
		utils.RecordLoanOperation("apply", err)
		utils.LogOperation("LoanService.Apply", startTime, err)
	}()

	// Валидируем DTO
	if err := validateDTO(dto); err != nil {
		return nil, err
	}
	if !dto.Amount.IsPositive() {
		return nil, apperrors.InvalidInput("amount", "сумма кредита должна быть больше 0")
	}

	product, err := s.repo.GetProduct(ctx, dto.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperrors.InvalidState("продукт %s недоступен для новых заявок", product.Name)
	}

	// Проверяем лимиты продукта
	if dto.Amount.LessThan(product.MinAmount) || dto.Amount.GreaterThan(product.MaxAmount) {
		return nil, apperrors.InvalidInput("amount", "сумма должна быть от %s до %s", product.MinAmount, product.MaxAmount)
	}
	if dto.TenureMonths < product.MinTenureMonths || dto.TenureMonths > product.MaxTenureMonths {
		return nil, apperrors.InvalidInput("tenureMonths", "срок должен быть от %d до %d месяцев", product.MinTenureMonths, product.MaxTenureMonths)
	}

	rate := product.BaseRatePercent
	if dto.RatePercent != nil {
		rate = *dto.RatePercent
	}

	installment, err := amortization.ComputeInstallment(dto.Amount, rate, dto.TenureMonths)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loan = &models.Loan{
		UserID:            dto.UserID,
		ProductID:         product.ID,
		Product:           *product,
		ApplicationNumber: generateApplicationNumber(now),
		Principal:         dto.Amount,
		AnnualRatePercent: rate,
		TenureMonths:      dto.TenureMonths,
		InstallmentAmount: installment,
		ProcessingFee:     amortization.Percent(dto.Amount, product.ProcessingFeePercent),
		Status:            models.LoanStatusPending,
		Purpose:           dto.Purpose,
		ApplicationDate:   now,
	}

	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}

	return loan, nil
}

// Approve одобряет заявку: строит график, активирует кредит и выставляет остаток долга.
// Повторное одобрение возвращает InvalidState, график создается ровно один раз.
func (s *LoanService) Approve(ctx context.Context, loanID uint, disbursalDate *time.Time) (approved *models.Loan, err error) {
	ctx, span := startSpan(ctx, "LoanService.Approve", attribute.Int("loan.id", int(loanID)))
	startTime := time.Now()
	defer func() {
		endSpan(span, err)
		utils.RecordLoanOperation("approve", err)
		utils.LogOperation("LoanService.Approve", startTime, err)
	}()

	err = s.repo.Transaction(ctx, func(tx database.LoanRepository) error {
		loan, err := tx.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		if loan.Status != models.LoanStatusPending {
			return apperrors.InvalidState("кредит %d нельзя одобрить в статусе %s", loan.ID, loan.Status)
		}

		now := s.now()
		startDate := now
		if disbursalDate != nil {
			startDate = *disbursalDate
		}

		// Строим график платежей
		lines, err := amortization.GenerateSchedule(loan.Principal, loan.AnnualRatePercent, loan.TenureMonths, startDate)
		if err != nil {
			return err
		}

		installment, err := amortization.ComputeInstallment(loan.Principal, loan.AnnualRatePercent, loan.TenureMonths)
		if err != nil {
			return err
		}

		maturity := lines[len(lines)-1].DueDate
		loan.Status = models.LoanStatusActive
		loan.InstallmentAmount = installment
		loan.OutstandingAmount = loan.Principal
		loan.TotalPaidAmount = decimal.Zero
		loan.ApprovalDate = &now
		loan.DisbursalDate = &startDate
		loan.MaturityDate = &maturity

		if err := tx.SaveLoanWithSchedule(ctx, loan, toScheduleLines(lines, startDate)); err != nil {
			return err
		}

		approved = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Уведомляем клиента после фиксации транзакции
	if s.notifier != nil {
		if err := s.notifier.LoanApproved(ctx, approved); err != nil {
			utils.LogError("Ошибка при отправке уведомления об одобрении кредита %d: %v", approved.ID, err)
		}
	}

	return approved, nil
}

// Reject отклоняет заявку в статусе pending
func (s *LoanService) Reject(ctx context.Context, loanID uint, reason string) (rejected *models.Loan, err error) {
	ctx, span := startSpan(ctx, "LoanService.Reject", attribute.Int("loan.id", int(loanID)))
	startTime := time.Now()
	defer func() {
		endSpan(span, err)
		utils.RecordLoanOperation("reject", err)
		utils.LogOperation("LoanService.Reject", startTime, err)
	}()

	err = s.repo.Transaction(ctx, func(tx database.LoanRepository) error {
		loan, err := tx.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusPending {
			return apperrors.InvalidState("кредит %d нельзя отклонить в статусе %s", loan.ID, loan.Status)
		}

		if err := tx.UpdateLoanStatus(ctx, loan.ID, models.LoanStatusRejected, reason); err != nil {
			return err
		}

		loan.Status = models.LoanStatusRejected
		if reason != "" {
			loan.Notes = reason
		}
		rejected = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.LoanRejected(ctx, rejected, reason); err != nil {
			utils.LogError("Ошибка при отправке уведомления об отказе по кредиту %d: %v", rejected.ID, err)
		}
	}

	return rejected, nil
}

// ApplyPayment вносит платеж по строке графика. Остаток долга уменьшается на основную часть
// строки, а не на внесенную сумму; остальные строки графика не пересчитываются.
func (s *LoanService) ApplyPayment(ctx context.Context, loanID, lineID uint, paidAmount decimal.Decimal, paidDate time.Time) (receipt *PaymentReceipt, err error) {
	ctx, span := startSpan(ctx, "LoanService.ApplyPayment",
		attribute.Int("loan.id", int(loanID)),
		attribute.Int("line.id", int(lineID)),
	)
	startTime := time.Now()
	defer func() {
		endSpan(span, err)
		utils.RecordLoanOperation("payment", err)
		utils.LogOperation("LoanService.ApplyPayment", startTime, err)
	}()

	if !paidAmount.IsPositive() {
		return nil, apperrors.InvalidInput("paidAmount", "сумма платежа должна быть больше 0, получено %s", paidAmount)
	}
	if paidDate.IsZero() {
		paidDate = s.now()
	}

	var loan *models.Loan
	err = s.repo.Transaction(ctx, func(tx database.LoanRepository) error {
		var err error
		loan, err = tx.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		line, err := tx.GetScheduleLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line.LoanID != loan.ID {
			return apperrors.NotFound("платеж %d не относится к кредиту %d", lineID, loanID)
		}

		if loan.Status != models.LoanStatusActive {
			return apperrors.InvalidState("кредит %d не активен (статус %s)", loan.ID, loan.Status)
		}
		if !line.IsUnpaid() {
			return apperrors.InvalidState("платеж %d уже внесен", line.ID)
		}

		// Отмечаем строку оплаченной
		if err := tx.UpdateScheduleLineStatus(ctx, line.ID, models.ScheduleLineStatusPaid, &paidAmount, &paidDate); err != nil {
			return err
		}
		line.Status = models.ScheduleLineStatusPaid
		line.PaidAmount = &paidAmount
		line.PaidDate = &paidDate

		// Обновляем остаток и сумму выплат
		outstanding := loan.OutstandingAmount.Sub(line.PrincipalComponent)
		totalPaid := loan.TotalPaidAmount.Add(paidAmount)
		if err := tx.UpdateLoanBalance(ctx, loan.ID, outstanding, totalPaid, paidDate); err != nil {
			return err
		}
		loan.OutstandingAmount = outstanding
		loan.TotalPaidAmount = totalPaid
		loan.LastPaymentDate = &paidDate

		payment := models.Payment{
			LoanID:         loan.ID,
			ScheduleLineID: line.ID,
			Reference:      "PAY-" + uuid.NewString(),
			Amount:         paidAmount,
			Method:         "online",
			PaymentDate:    paidDate,
			Status:         models.PaymentStatusCompleted,
		}
		if err := tx.CreatePayment(ctx, &payment); err != nil {
			return err
		}

		// Если все платежи внесены, закрываем кредит
		unpaid, err := tx.CountUnpaidLines(ctx, loan.ID)
		if err != nil {
			return err
		}
		if unpaid == 0 {
			if err := tx.UpdateLoanStatus(ctx, loan.ID, models.LoanStatusClosed, ""); err != nil {
				return err
			}
			loan.Status = models.LoanStatusClosed
		}

		receipt = &PaymentReceipt{
			Payment:           payment,
			Line:              *line,
			OutstandingAmount: outstanding,
			TotalPaidAmount:   totalPaid,
			LoanStatus:        loan.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.RecordPayment(paidAmount.InexactFloat64())

	if s.notifier != nil {
		if err := s.notifier.PaymentReceived(ctx, loan, receipt); err != nil {
			utils.LogError("Ошибка при отправке уведомления о платеже по кредиту %d: %v", loan.ID, err)
		}
		if loan.Status == models.LoanStatusClosed {
			if err := s.notifier.LoanClosed(ctx, loan); err != nil {
				utils.LogError("Ошибка при отправке уведомления о погашении кредита %d: %v", loan.ID, err)
			}
		}
	}

	return receipt, nil
}

// Get возвращает кредит по ID
func (s *LoanService) Get(ctx context.Context, loanID uint) (*models.Loan, error) {
	return s.repo.GetLoan(ctx, loanID)
}

// ListForUser возвращает кредиты пользователя
func (s *LoanService) ListForUser(ctx context.Context, userID uint) ([]models.Loan, error) {
	return s.repo.ListLoansByUser(ctx, userID)
}

// ListAll возвращает кредиты по статусу, пустой статус - все
func (s *LoanService) ListAll(ctx context.Context, status models.LoanStatus) ([]models.Loan, error) {
	switch status {
	case "", models.LoanStatusPending, models.LoanStatusActive, models.LoanStatusClosed, models.LoanStatusRejected:
	default:
		return nil, apperrors.InvalidInput("status", "неизвестный статус %q", status)
	}
	return s.repo.ListLoans(ctx, status)
}

// Schedule возвращает график платежей кредита
func (s *LoanService) Schedule(ctx context.Context, loanID uint) ([]models.ScheduleLine, error) {
	if _, err := s.repo.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListSchedule(ctx, loanID)
}

// Payments возвращает платежи по кредиту
func (s *LoanService) Payments(ctx context.Context, loanID uint) ([]models.Payment, error) {
	return s.repo.ListPayments(ctx, loanID)
}

// Products возвращает активные кредитные продукты
func (s *LoanService) Products(ctx context.Context) ([]models.LoanProduct, error) {
	return s.repo.ListProducts(ctx)
}

// toScheduleLines переводит расчет в строки графика. Строки с нулевым платежом
// (долг погашен раньше срока) сразу считаются оплаченными на дату выдачи.
func toScheduleLines(lines []amortization.Line, settledAt time.Time) []models.ScheduleLine {
	result := make([]models.ScheduleLine, len(lines))
	for i, line := range lines {
		result[i] = models.ScheduleLine{
			PeriodNumber:            line.PeriodNumber,
			DueDate:                 line.DueDate,
			InstallmentAmount:       line.InstallmentAmount,
			PrincipalComponent:      line.PrincipalComponent,
			InterestComponent:       line.InterestComponent,
			OutstandingBalanceAfter: line.OutstandingBalanceAfter,
			Status:                  models.ScheduleLineStatusPending,
			LateFee:                 decimal.Zero,
		}
		if line.InstallmentAmount.IsZero() {
			paid := decimal.Zero
			paidDate := settledAt
			result[i].Status = models.ScheduleLineStatusPaid
			result[i].PaidAmount = &paid
			result[i].PaidDate = &paidDate
		}
	}
	return result
}
