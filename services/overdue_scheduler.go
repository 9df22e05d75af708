package services

import (
	"context"
	"time"

	"loanDesk/database"
	"loanDesk/utils"

	"github.com/shopspring/decimal"
)

// OverdueScheduler периодически переводит неоплаченные платежи с прошедшим сроком
// в просрочку и начисляет пени. Остатки по кредитам не меняются.
type OverdueScheduler struct {
	repo       database.LoanRepository
	interval   time.Duration
	feePercent decimal.Decimal
	now        func() time.Time
}

// NewOverdueScheduler создает новый экземпляр OverdueScheduler
func NewOverdueScheduler(repo database.LoanRepository, interval time.Duration, feePercent float64) *OverdueScheduler {
	return &OverdueScheduler{
		repo:       repo,
		interval:   interval,
		feePercent: decimal.NewFromFloat(feePercent),
		now:        time.Now,
	}
}

// Start запускает планировщик в отдельной горутине. Канал закрывается после остановки.
func (s *OverdueScheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}

// Run обрабатывает просрочки сразу и затем каждые interval, пока не отменен ctx
func (s *OverdueScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			utils.LogInfo("Планировщик просрочек остановлен")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *OverdueScheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		utils.LogError("Ошибка при обработке просроченных платежей: %v", err)
	}
}

// RunOnce выполняет одну проверку и возвращает число просроченных строк
func (s *OverdueScheduler) RunOnce(ctx context.Context) (count int64, err error) {
	ctx, span := startSpan(ctx, "OverdueScheduler.RunOnce")
	startTime := time.Now()
	defer func() {
		endSpan(span, err)
		utils.LogOperation("OverdueScheduler.RunOnce", startTime, err)
	}()

	count, err = s.repo.MarkOverdue(ctx, s.now(), s.feePercent)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		utils.LogInfo("Просрочено платежей: %d", count)
	}
	utils.RecordOverdue(count)
	return count, nil
}
