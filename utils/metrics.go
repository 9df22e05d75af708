package utils

import (
	"strconv"
	"time"

	"loanDesk/apperrors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests счетчик HTTP запросов
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_http_requests_total",
			Help: "Количество HTTP запросов",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPLatency время обработки HTTP запросов
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loandesk_http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// LoanOperations счетчик операций с кредитами
	LoanOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_loan_operations_total",
			Help: "Операции с кредитами по результату",
		},
		[]string{"operation", "result"},
	)

	// CalculatorCalls счетчик вызовов публичных калькуляторов
	CalculatorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_calculator_calls_total",
			Help: "Вызовы калькуляторов",
		},
		[]string{"calculator", "result"},
	)

	// AmountCollected сумма принятых платежей
	AmountCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loandesk_amount_collected_total",
			Help: "Сумма принятых платежей",
		},
	)

	// OverdueLines количество строк графика, переведенных в просрочку
	OverdueLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loandesk_overdue_lines_total",
			Help: "Строки графика, помеченные просроченными",
		},
	)
)

// resultLabel возвращает метку результата по виду ошибки
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch apperrors.KindOf(err) {
	case apperrors.ErrInvalidInput:
		return "invalid_input"
	case apperrors.ErrInvalidState:
		return "invalid_state"
	case apperrors.ErrNotFound:
		return "not_found"
	case apperrors.ErrForbidden:
		return "forbidden"
	default:
		return "error"
	}
}

// RecordRequest записывает метрики запроса
func RecordRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLoanOperation записывает результат операции с кредитом
func RecordLoanOperation(operation string, err error) {
	LoanOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// RecordCalculatorCall записывает результат расчета
func RecordCalculatorCall(calculator string, err error) {
	CalculatorCalls.WithLabelValues(calculator, resultLabel(err)).Inc()
}

// RecordPayment учитывает сумму принятого платежа
func RecordPayment(amount float64) {
	AmountCollected.Add(amount)
}

// RecordOverdue учитывает строки, переведенные в просрочку
func RecordOverdue(count int64) {
	if count > 0 {
		OverdueLines.Add(float64(count))
	}
}
