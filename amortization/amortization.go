// Package amortization рассчитывает аннуитетный платеж (EMI) и график погашения кредита.
//
// Все денежные значения округляются вверх до целой единицы валюты. Правило одно и применяется
// и к ежемесячному платежу, и к процентам каждого периода. Последний период корректируется так,
// чтобы остаток долга стал ровно нулевым.
package amortization

import (
	"math"
	"time"

	"loanDesk/apperrors"

	"github.com/shopspring/decimal"
)

var (
	monthsTimesPercent = decimal.NewFromInt(1200)
	hundred            = decimal.NewFromInt(100)
)

// Terms представляет условия кредита
type Terms struct {
	Principal         decimal.Decimal `json:"principal"`
	AnnualRatePercent decimal.Decimal `json:"annualRatePercent"`
	TenureMonths      int             `json:"tenureMonths"`
}

// Validate проверяет условия кредита
func (t Terms) Validate() error {
	if !t.Principal.IsPositive() {
		return apperrors.InvalidInput("principal", "сумма кредита должна быть больше 0, получено %s", t.Principal)
	}
	if t.TenureMonths < 1 {
		return apperrors.InvalidInput("tenureMonths", "срок должен быть не меньше 1 месяца, получено %d", t.TenureMonths)
	}
	if t.AnnualRatePercent.IsNegative() {
		return apperrors.InvalidInput("annualRatePercent", "ставка не может быть отрицательной, получено %s", t.AnnualRatePercent)
	}
	return nil
}

// Line представляет один период графика платежей
type Line struct {
	PeriodNumber            int             `json:"periodNumber"`
	DueDate                 time.Time       `json:"dueDate"`
	InstallmentAmount       decimal.Decimal `json:"installmentAmount"`
	PrincipalComponent      decimal.Decimal `json:"principalComponent"`
	InterestComponent       decimal.Decimal `json:"interestComponent"`
	OutstandingBalanceAfter decimal.Decimal `json:"outstandingBalanceAfter"`
}

// Quote представляет итог расчета для калькулятора
type Quote struct {
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	TotalPayable      decimal.Decimal `json:"totalPayable"`
	TotalInterest     decimal.Decimal `json:"totalInterest"`
}

// RoundUp округляет сумму вверх до целой единицы валюты
func RoundUp(amount decimal.Decimal) decimal.Decimal {
	return amount.Ceil()
}

// Percent возвращает percent% от amount, округленные вверх
func Percent(amount, percent decimal.Decimal) decimal.Decimal {
	return RoundUp(amount.Mul(percent).Div(hundred))
}

// ComputeInstallment рассчитывает размер ежемесячного аннуитетного платежа
func ComputeInstallment(principal, annualRatePercent decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	terms := Terms{Principal: principal, AnnualRatePercent: annualRatePercent, TenureMonths: tenureMonths}
	if err := terms.Validate(); err != nil {
		return decimal.Zero, err
	}
	return installment(terms), nil
}

func installment(t Terms) decimal.Decimal {
	// Беспроцентный кредит: делим сумму на число платежей
	if t.AnnualRatePercent.IsZero() {
		return RoundUp(t.Principal.Div(decimal.NewFromInt(int64(t.TenureMonths))))
	}

	// Месячная ставка в долях
	r := t.AnnualRatePercent.InexactFloat64() / 1200
	p := t.Principal.InexactFloat64()

	factor := math.Pow(1+r, float64(t.TenureMonths))
	var payment float64
	if math.IsInf(factor, 1) {
		// При очень большом сроке коэффициент аннуитета стремится к r
		payment = p * r
	} else {
		payment = p * r * factor / (factor - 1)
	}

	return RoundUp(decimal.NewFromFloat(payment))
}

// periodInterest рассчитывает проценты за месяц на остаток долга.
// Умножаем до деления, чтобы целые результаты оставались точными.
func periodInterest(balance, annualRatePercent decimal.Decimal) decimal.Decimal {
	return RoundUp(balance.Mul(annualRatePercent).Div(monthsTimesPercent))
}

// GenerateSchedule строит график погашения. Первый платеж через месяц после startDate.
func GenerateSchedule(principal, annualRatePercent decimal.Decimal, tenureMonths int, startDate time.Time) ([]Line, error) {
	terms := Terms{Principal: principal, AnnualRatePercent: annualRatePercent, TenureMonths: tenureMonths}
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if startDate.IsZero() {
		return nil, apperrors.InvalidInput("startDate", "дата начала не задана")
	}

	lines := make([]Line, 0, tenureMonths)
	amortize(terms, func(line Line) {
		line.DueDate = startDate.AddDate(0, line.PeriodNumber, 0)
		lines = append(lines, line)
	})
	return lines, nil
}

// amortize проходит по периодам графика и передает каждую строку в emit без дат
func amortize(t Terms, emit func(Line)) {
	payment := installment(t)
	balance := t.Principal

	for period := 1; period <= t.TenureMonths; period++ {
		interest := periodInterest(balance, t.AnnualRatePercent)
		principalPart := payment.Sub(interest)
		amount := payment

		if principalPart.IsNegative() {
			principalPart = decimal.Zero
		}

		// Последний период (или досрочно исчерпанный долг) забирает весь остаток
		if period == t.TenureMonths || principalPart.GreaterThan(balance) {
			principalPart = balance
			amount = principalPart.Add(interest)
		}

		balance = balance.Sub(principalPart)

		emit(Line{
			PeriodNumber:            period,
			InstallmentAmount:       amount,
			PrincipalComponent:      principalPart,
			InterestComponent:       interest,
			OutstandingBalanceAfter: balance,
		})
	}
}

// Summarize возвращает платеж, общую сумму выплат и переплату по кредиту.
// График не материализуется, память не зависит от срока.
func Summarize(principal, annualRatePercent decimal.Decimal, tenureMonths int) (*Quote, error) {
	terms := Terms{Principal: principal, AnnualRatePercent: annualRatePercent, TenureMonths: tenureMonths}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	total := decimal.Zero
	amortize(terms, func(line Line) {
		total = total.Add(line.InstallmentAmount)
	})

	return &Quote{
		InstallmentAmount: installment(terms),
		TotalPayable:      total,
		TotalInterest:     total.Sub(principal),
	}, nil
}
