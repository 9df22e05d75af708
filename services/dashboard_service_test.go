package services

import (
	"context"
	"testing"
	"time"

	"loanDesk/database"
	"loanDesk/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Stats(t *testing.T) {
	db := newTestDatabase(t)
	user := createTestUser(t, db, "stats")
	repo := database.NewLoanRepository(db.DB)
	loans := NewLoanService(repo, nil)
	loans.now = func() time.Time { return testNow }
	ctx := context.Background()

	_, err := loans.Apply(ctx, ApplyLoanDTO{UserID: user.ID, ProductID: personalLoanID, Amount: decimal.NewFromInt(30000), TenureMonths: 6})
	require.NoError(t, err)

	applied, err := loans.Apply(ctx, ApplyLoanDTO{UserID: user.ID, ProductID: personalLoanID, Amount: decimal.NewFromInt(100000), TenureMonths: 12})
	require.NoError(t, err)
	active, err := loans.Approve(ctx, applied.ID, nil)
	require.NoError(t, err)

	first := active.Schedule[0]
	_, err = loans.ApplyPayment(ctx, active.ID, first.ID, first.InstallmentAmount, testNow)
	require.NoError(t, err)

	scheduler := NewOverdueScheduler(repo, time.Hour, 2)
	scheduler.now = func() time.Time { return testNow.AddDate(0, 2, 1) }
	marked, err := scheduler.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), marked)

	stats, err := NewDashboardService(db.DB).Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Users)
	assert.Equal(t, int64(1), stats.LoansByStatus[models.LoanStatusPending])
	assert.Equal(t, int64(1), stats.LoansByStatus[models.LoanStatusActive])
	assert.True(t, stats.TotalDisbursed.Equal(decimal.NewFromInt(100000)), "got %s", stats.TotalDisbursed)
	assert.True(t, stats.TotalOutstanding.Equal(decimal.NewFromInt(100000).Sub(first.PrincipalComponent)))
	assert.True(t, stats.TotalCollected.Equal(first.InstallmentAmount), "got %s", stats.TotalCollected)
	assert.Equal(t, int64(1), stats.OverdueLines)
	assert.True(t, stats.LateFees.Equal(decimal.NewFromInt(177)), "got %s", stats.LateFees)
}
