package controllers

import (
	"context"
	"net/http"
	"time"

	"loanDesk/apperrors"
	"loanDesk/middleware"
	"loanDesk/models"
	"loanDesk/services"

	"github.com/shopspring/decimal"
)

// PayRequest представляет запрос на внесение платежа
type PayRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	PaidDate *time.Time      `json:"paidDate,omitempty"`
}

// LoanController обрабатывает запросы заемщика по кредитам
type LoanController struct {
	loans *services.LoanService
}

// NewLoanController создает новый экземпляр LoanController
func NewLoanController(loans *services.LoanService) *LoanController {
	return &LoanController{loans: loans}
}

// Apply обрабатывает заявку на кредит
func (c *LoanController) Apply(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var dto services.ApplyLoanDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	// Устанавливаем ID пользователя
	dto.UserID = userID

	loan, err := c.loans.Apply(r.Context(), dto)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, loan)
}

// List возвращает кредиты текущего пользователя
func (c *LoanController) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	loans, err := c.loans.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loans)
}

// Get возвращает кредит вместе с графиком
func (c *LoanController) Get(w http.ResponseWriter, r *http.Request) {
	loan, ok := c.ownedLoan(w, r)
	if !ok {
		return
	}

	schedule, err := c.loans.Schedule(r.Context(), loan.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	loan.Schedule = schedule

	writeJSON(w, http.StatusOK, loan)
}

// Schedule возвращает график платежей
func (c *LoanController) Schedule(w http.ResponseWriter, r *http.Request) {
	loan, ok := c.ownedLoan(w, r)
	if !ok {
		return
	}

	schedule, err := c.loans.Schedule(r.Context(), loan.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

// Payments возвращает квитанции по кредиту
func (c *LoanController) Payments(w http.ResponseWriter, r *http.Request) {
	loan, ok := c.ownedLoan(w, r)
	if !ok {
		return
	}

	payments, err := c.loans.Payments(r.Context(), loan.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payments)
}

// Pay вносит платеж по строке графика
func (c *LoanController) Pay(w http.ResponseWriter, r *http.Request) {
	loan, ok := c.ownedLoan(w, r)
	if !ok {
		return
	}

	lineID, err := pathID(r, "lineId")
	if err != nil {
		writeError(w, err)
		return
	}

	var req PayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var paidDate time.Time
	if req.PaidDate != nil {
		paidDate = *req.PaidDate
	}

	receipt, err := c.loans.ApplyPayment(r.Context(), loan.ID, lineID, req.Amount, paidDate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// ownedLoan загружает кредит из пути. Чужой кредит для обычного пользователя не существует.
func (c *LoanController) ownedLoan(w http.ResponseWriter, r *http.Request) (*models.Loan, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}

	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	loan, err := c.loanFor(r.Context(), loanID, userID, middleware.IsAdmin(r))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return loan, true
}

func (c *LoanController) loanFor(ctx context.Context, loanID, userID uint, admin bool) (*models.Loan, error) {
	loan, err := c.loans.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !admin && loan.UserID != userID {
		return nil, apperrors.NotFound("кредит %d не найден", loanID)
	}
	return loan, nil
}
