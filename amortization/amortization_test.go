package amortization

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"loanDesk/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var start = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func TestComputeInstallment(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		months    int
		want      string
	}{
		{name: "home loan 8.5% over 10 years", principal: "500000", rate: "8.5", months: 120, want: "6200"},
		{name: "zero rate rounds up", principal: "100000", rate: "0", months: 12, want: "8334"},
		{name: "zero rate exact split", principal: "240000", rate: "0", months: 24, want: "10000"},
		{name: "personal loan 12% for a year", principal: "100000", rate: "12", months: 12, want: "8885"},
		{name: "single period", principal: "1000", rate: "36", months: 1, want: "1030"},
		{name: "car loan 9.5% over 5 years", principal: "1200000", rate: "9.5", months: 60, want: "25203"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeInstallment(dec(tt.principal), dec(tt.rate), tt.months)
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestComputeInstallment_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		months    int
		field     string
	}{
		{name: "zero principal", principal: "0", rate: "8", months: 12, field: "principal"},
		{name: "negative principal", principal: "-10", rate: "8", months: 12, field: "principal"},
		{name: "zero tenure", principal: "1000", rate: "8", months: 0, field: "tenureMonths"},
		{name: "negative rate", principal: "1000", rate: "-0.5", months: 12, field: "annualRatePercent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeInstallment(dec(tt.principal), dec(tt.rate), tt.months)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

			var appErr *apperrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestGenerateSchedule_ZeroRate(t *testing.T) {
	lines, err := GenerateSchedule(dec("100000"), decimal.Zero, 12, start)
	require.NoError(t, err)
	require.Len(t, lines, 12)

	for _, line := range lines[:11] {
		assert.True(t, line.InstallmentAmount.Equal(dec("8334")), "period %d: got %s", line.PeriodNumber, line.InstallmentAmount)
		assert.True(t, line.InterestComponent.IsZero())
	}

	last := lines[11]
	assert.True(t, last.InstallmentAmount.Equal(dec("8326")), "got %s", last.InstallmentAmount)
	assert.True(t, last.OutstandingBalanceAfter.IsZero())

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.PrincipalComponent)
	}
	assert.True(t, total.Equal(dec("100000")))
}

func TestGenerateSchedule_HomeLoan(t *testing.T) {
	lines, err := GenerateSchedule(dec("500000"), dec("8.5"), 120, start)
	require.NoError(t, err)
	require.Len(t, lines, 120)

	first := lines[0]
	assert.Equal(t, 1, first.PeriodNumber)
	assert.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), first.DueDate)
	assert.True(t, first.InterestComponent.Equal(dec("3542")), "got %s", first.InterestComponent)
	assert.True(t, first.PrincipalComponent.Equal(dec("2658")), "got %s", first.PrincipalComponent)
	assert.True(t, first.OutstandingBalanceAfter.Equal(dec("497342")), "got %s", first.OutstandingBalanceAfter)

	last := lines[119]
	assert.Equal(t, 120, last.PeriodNumber)
	assert.Equal(t, time.Date(2035, 1, 15, 0, 0, 0, 0, time.UTC), last.DueDate)
	assert.True(t, last.OutstandingBalanceAfter.IsZero())
	assert.True(t, last.InstallmentAmount.Equal(last.PrincipalComponent.Add(last.InterestComponent)))
}

func TestGenerateSchedule_SinglePeriod(t *testing.T) {
	for _, rate := range []string{"0", "7.25", "12", "36"} {
		lines, err := GenerateSchedule(dec("75000"), dec(rate), 1, start)
		require.NoError(t, err)
		require.Len(t, lines, 1)

		want, err := ComputeInstallment(dec("75000"), dec(rate), 1)
		require.NoError(t, err)

		assert.True(t, lines[0].PrincipalComponent.Equal(dec("75000")), "rate %s", rate)
		assert.True(t, lines[0].InstallmentAmount.Equal(want), "rate %s: %s != %s", rate, lines[0].InstallmentAmount, want)
		assert.True(t, lines[0].OutstandingBalanceAfter.IsZero())
	}
}

func TestGenerateSchedule_TinyPrincipalLongTenure(t *testing.T) {
	lines, err := GenerateSchedule(dec("100"), decimal.Zero, 120, start)
	require.NoError(t, err)
	require.Len(t, lines, 120)

	assert.True(t, lines[99].OutstandingBalanceAfter.IsZero())
	for _, line := range lines[100:] {
		assert.True(t, line.InstallmentAmount.IsZero())
		assert.True(t, line.PrincipalComponent.IsZero())
	}
}

func TestGenerateSchedule_InvalidStartDate(t *testing.T) {
	_, err := GenerateSchedule(dec("1000"), dec("10"), 12, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// Свойства графика на случайных условиях
func TestGenerateSchedule_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rates := []string{"0", "0.5", "6.75", "8.5", "12", "24", "36", "99.9"}

	for i := 0; i < 500; i++ {
		principal := decimal.NewFromInt(rng.Int63n(5_000_000) + 1)
		rate := dec(rates[rng.Intn(len(rates))])
		months := rng.Intn(360) + 1

		lines, err := GenerateSchedule(principal, rate, months, start)
		require.NoError(t, err)
		require.Len(t, lines, months)

		installment, err := ComputeInstallment(principal, rate, months)
		require.NoError(t, err)

		sum := decimal.Zero
		previous := principal
		for j, line := range lines {
			require.Equal(t, j+1, line.PeriodNumber)
			require.False(t, line.PrincipalComponent.IsNegative())
			require.False(t, line.InterestComponent.IsNegative())
			require.True(t, line.OutstandingBalanceAfter.LessThanOrEqual(previous),
				"case %d period %d: balance grew", i, line.PeriodNumber)
			require.True(t, line.InstallmentAmount.Equal(line.PrincipalComponent.Add(line.InterestComponent)))
			if j < len(lines)-1 && !line.OutstandingBalanceAfter.IsZero() {
				require.True(t, line.InstallmentAmount.Equal(installment))
			}
			previous = line.OutstandingBalanceAfter
			sum = sum.Add(line.PrincipalComponent)
		}

		require.True(t, sum.Equal(principal), "case %d: principal %s, repaid %s", i, principal, sum)
		require.True(t, lines[months-1].OutstandingBalanceAfter.IsZero())
	}
}

func TestSummarize(t *testing.T) {
	quote, err := Summarize(dec("500000"), dec("8.5"), 120)
	require.NoError(t, err)

	assert.True(t, quote.InstallmentAmount.Equal(dec("6200")))
	assert.True(t, quote.TotalPayable.Equal(dec("743957")), "got %s", quote.TotalPayable)
	assert.True(t, quote.TotalInterest.Equal(dec("243957")), "got %s", quote.TotalInterest)

	zero, err := Summarize(dec("100000"), decimal.Zero, 12)
	require.NoError(t, err)
	assert.True(t, zero.TotalPayable.Equal(dec("100000")))
	assert.True(t, zero.TotalInterest.IsZero())
}

// Итоги без построения графика совпадают с суммой по графику
func TestSummarize_MatchesSchedule(t *testing.T) {
	cases := []struct {
		principal, rate string
		months          int
	}{
		{"500000", "8.5", 120},
		{"1000", "0", 60},
		{"2500000", "9.5", 360},
		{"75000", "36", 1},
	}

	for _, tc := range cases {
		lines, err := GenerateSchedule(dec(tc.principal), dec(tc.rate), tc.months, start)
		require.NoError(t, err)

		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.InstallmentAmount)
		}

		quote, err := Summarize(dec(tc.principal), dec(tc.rate), tc.months)
		require.NoError(t, err)
		assert.True(t, quote.TotalPayable.Equal(total), "%+v: got %s, want %s", tc, quote.TotalPayable, total)
		assert.True(t, quote.TotalInterest.Equal(total.Sub(dec(tc.principal))))
	}
}

func TestSummarize_InvalidInput(t *testing.T) {
	_, err := Summarize(dec("1000"), dec("10"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(dec("500000"), dec("0.5")).Equal(dec("2500")))
	assert.True(t, Percent(dec("12345"), dec("2")).Equal(dec("247")))
}
