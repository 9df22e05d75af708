package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"loanDesk/apperrors"
	"loanDesk/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverdueScheduler_RunOnce(t *testing.T) {
	svc, repo, _ := newTestLoanService()
	loan := approvedLoan(t, svc, "100000", 12)

	scheduler := NewOverdueScheduler(repo, time.Hour, 2)
	scheduler.now = func() time.Time { return testNow.AddDate(0, 3, 1) }

	count, err := scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	lines, err := repo.ListSchedule(context.Background(), loan.ID)
	require.NoError(t, err)
	for _, line := range lines[:3] {
		assert.Equal(t, models.ScheduleLineStatusOverdue, line.Status)
		// 2% от 8839 = 176.78, округляется вверх
		assert.True(t, line.LateFee.Equal(decimal.NewFromInt(177)), "got %s", line.LateFee)
	}
	for _, line := range lines[3:] {
		assert.Equal(t, models.ScheduleLineStatusPending, line.Status)
		assert.True(t, line.LateFee.IsZero())
	}

	// Остатки не меняются
	got, err := svc.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.True(t, got.OutstandingAmount.Equal(decimal.NewFromInt(100000)))

	// Повторный запуск не трогает уже просроченные строки
	count, err = scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOverdueScheduler_SkipsInactiveLoans(t *testing.T) {
	svc, repo, _ := newTestLoanService()
	loan := approvedLoan(t, svc, "100000", 12)
	require.NoError(t, repo.UpdateLoanStatus(context.Background(), loan.ID, models.LoanStatusClosed, ""))

	scheduler := NewOverdueScheduler(repo, time.Hour, 2)
	scheduler.now = func() time.Time { return testNow.AddDate(2, 0, 0) }

	count, err := scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOverdueScheduler_RunOnceError(t *testing.T) {
	repo := newMemoryRepository()
	repo.failOn = "MarkOverdue"

	scheduler := NewOverdueScheduler(repo, time.Hour, 2)
	_, err := scheduler.RunOnce(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrPersistence))
}

func TestOverdueScheduler_StartStopsOnCancel(t *testing.T) {
	svc, repo, _ := newTestLoanService()
	loan := approvedLoan(t, svc, "100000", 12)

	scheduler := NewOverdueScheduler(repo, 10*time.Millisecond, 1)
	scheduler.now = func() time.Time { return testNow.AddDate(0, 1, 1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := scheduler.Start(ctx)

	// Первая проверка выполняется сразу после запуска
	require.Eventually(t, func() bool {
		line, err := repo.GetScheduleLine(context.Background(), loan.Schedule[0].ID)
		return err == nil && line.Status == models.ScheduleLineStatusOverdue
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("планировщик не остановился")
	}
}
