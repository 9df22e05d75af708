package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"loanDesk/amortization"
	"loanDesk/apperrors"
	"loanDesk/database"
	"loanDesk/models"

	"github.com/shopspring/decimal"
)

// memoryRepository - реализация LoanRepository в памяти для тестов.
// Транзакции выполняются по одной; при ошибке состояние откатывается к снимку.
type memoryRepository struct {
	txMu sync.Mutex
	mu   sync.Mutex

	loans    map[uint]models.Loan
	lines    map[uint]models.ScheduleLine
	payments []models.Payment
	products map[uint]models.LoanProduct
	nextID   uint

	// failOn заставляет метод с этим именем вернуть ошибку хранилища
	failOn string
}

var _ database.LoanRepository = (*memoryRepository)(nil)

func newMemoryRepository() *memoryRepository {
	repo := &memoryRepository{
		loans:    make(map[uint]models.Loan),
		lines:    make(map[uint]models.ScheduleLine),
		products: make(map[uint]models.LoanProduct),
	}
	for i, product := range database.DefaultProducts() {
		product.ID = uint(i + 1)
		repo.products[product.ID] = product
	}
	return repo
}

func (m *memoryRepository) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memoryRepository) fail(method string) error {
	if m.failOn == method {
		return apperrors.Persistence("ошибка при выполнении "+method, context.DeadlineExceeded)
	}
	return nil
}

type memorySnapshot struct {
	loans    map[uint]models.Loan
	lines    map[uint]models.ScheduleLine
	payments []models.Payment
}

func (m *memoryRepository) snapshot() memorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := memorySnapshot{
		loans:    make(map[uint]models.Loan, len(m.loans)),
		lines:    make(map[uint]models.ScheduleLine, len(m.lines)),
		payments: append([]models.Payment(nil), m.payments...),
	}
	for k, v := range m.loans {
		s.loans[k] = v
	}
	for k, v := range m.lines {
		s.lines[k] = v
	}
	return s
}

func (m *memoryRepository) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans = s.loans
	m.lines = s.lines
	m.payments = s.payments
}

func (m *memoryRepository) Transaction(ctx context.Context, fn func(repo database.LoanRepository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	saved := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(saved)
		return err
	}
	return nil
}

func (m *memoryRepository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateLoan"); err != nil {
		return err
	}

	loan.ID = m.id()
	stored := *loan
	stored.Product = models.LoanProduct{}
	stored.Schedule = nil
	m.loans[loan.ID] = stored
	return nil
}

func (m *memoryRepository) GetLoan(ctx context.Context, id uint) (*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loan, ok := m.loans[id]
	if !ok {
		return nil, apperrors.NotFound("кредит %d не найден", id)
	}
	loan.Product = m.products[loan.ProductID]
	return &loan, nil
}

func (m *memoryRepository) GetLoanForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	return m.GetLoan(ctx, id)
}

func (m *memoryRepository) SaveLoanWithSchedule(ctx context.Context, loan *models.Loan, lines []models.ScheduleLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveLoanWithSchedule"); err != nil {
		return err
	}

	for i := range lines {
		lines[i].ID = m.id()
		lines[i].LoanID = loan.ID
		m.lines[lines[i].ID] = lines[i]
	}
	stored := *loan
	stored.Product = models.LoanProduct{}
	stored.Schedule = nil
	m.loans[loan.ID] = stored
	loan.Schedule = lines
	return nil
}

func (m *memoryRepository) UpdateLoanBalance(ctx context.Context, loanID uint, outstanding, totalPaid decimal.Decimal, lastPaymentDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateLoanBalance"); err != nil {
		return err
	}

	loan, ok := m.loans[loanID]
	if !ok {
		return apperrors.NotFound("кредит %d не найден", loanID)
	}
	loan.OutstandingAmount = outstanding
	loan.TotalPaidAmount = totalPaid
	loan.LastPaymentDate = &lastPaymentDate
	m.loans[loanID] = loan
	return nil
}

func (m *memoryRepository) UpdateLoanStatus(ctx context.Context, loanID uint, status models.LoanStatus, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	loan, ok := m.loans[loanID]
	if !ok {
		return apperrors.NotFound("кредит %d не найден", loanID)
	}
	loan.Status = status
	if notes != "" {
		loan.Notes = notes
	}
	m.loans[loanID] = loan
	return nil
}

func (m *memoryRepository) ListLoansByUser(ctx context.Context, userID uint) ([]models.Loan, error) {
	return m.filterLoans(func(l models.Loan) bool { return l.UserID == userID }), nil
}

func (m *memoryRepository) ListLoans(ctx context.Context, status models.LoanStatus) ([]models.Loan, error) {
	return m.filterLoans(func(l models.Loan) bool { return status == "" || l.Status == status }), nil
}

func (m *memoryRepository) filterLoans(keep func(models.Loan) bool) []models.Loan {
	m.mu.Lock()
	defer m.mu.Unlock()

	var loans []models.Loan
	for _, loan := range m.loans {
		if keep(loan) {
			loans = append(loans, loan)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID > loans[j].ID })
	return loans
}

func (m *memoryRepository) GetScheduleLine(ctx context.Context, lineID uint) (*models.ScheduleLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	line, ok := m.lines[lineID]
	if !ok {
		return nil, apperrors.NotFound("платеж %d не найден в графике", lineID)
	}
	return &line, nil
}

func (m *memoryRepository) ListSchedule(ctx context.Context, loanID uint) ([]models.ScheduleLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lines []models.ScheduleLine
	for _, line := range m.lines {
		if line.LoanID == loanID {
			lines = append(lines, line)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].PeriodNumber < lines[j].PeriodNumber })
	return lines, nil
}

func (m *memoryRepository) UpdateScheduleLineStatus(ctx context.Context, lineID uint, status models.ScheduleLineStatus, paidAmount *decimal.Decimal, paidDate *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateScheduleLineStatus"); err != nil {
		return err
	}

	line, ok := m.lines[lineID]
	if !ok {
		return apperrors.NotFound("платеж %d не найден в графике", lineID)
	}
	line.Status = status
	line.PaidAmount = paidAmount
	line.PaidDate = paidDate
	m.lines[lineID] = line
	return nil
}

func (m *memoryRepository) CountUnpaidLines(ctx context.Context, loanID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, line := range m.lines {
		if line.LoanID == loanID && line.IsUnpaid() {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepository) MarkOverdue(ctx context.Context, now time.Time, feePercent decimal.Decimal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkOverdue"); err != nil {
		return 0, err
	}

	var count int64
	for id, line := range m.lines {
		if line.Status != models.ScheduleLineStatusPending || !line.DueDate.Before(now) {
			continue
		}
		if m.loans[line.LoanID].Status != models.LoanStatusActive {
			continue
		}
		line.Status = models.ScheduleLineStatusOverdue
		line.LateFee = amortization.Percent(line.InstallmentAmount, feePercent)
		m.lines[id] = line
		count++
	}
	return count, nil
}

func (m *memoryRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreatePayment"); err != nil {
		return err
	}

	payment.ID = m.id()
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *memoryRepository) ListPayments(ctx context.Context, loanID uint) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payments []models.Payment
	for _, payment := range m.payments {
		if payment.LoanID == loanID {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

func (m *memoryRepository) GetProduct(ctx context.Context, id uint) (*models.LoanProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[id]
	if !ok {
		return nil, apperrors.NotFound("кредитный продукт %d не найден", id)
	}
	return &product, nil
}

func (m *memoryRepository) ListProducts(ctx context.Context) ([]models.LoanProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var products []models.LoanProduct
	for _, product := range m.products {
		if product.IsActive {
			products = append(products, product)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}
