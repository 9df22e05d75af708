package controllers

import (
	"io"
	"net/http"
	"time"

	"loanDesk/models"
	"loanDesk/services"
)

// maxRateSheetSize ограничивает размер загружаемого листа ставок
const maxRateSheetSize = 1 << 20

// ApproveRequest тело запроса на одобрение
type ApproveRequest struct {
	DisbursalDate *time.Time `json:"disbursalDate,omitempty"`
}

// RejectRequest тело запроса на отказ
type RejectRequest struct {
	Reason string `json:"reason"`
}

// AdminController обрабатывает запросы администратора
type AdminController struct {
	loans     *services.LoanService
	dashboard *services.DashboardService
	rates     *services.RateSheetService
	profiles  *services.ProfileService
}

// NewAdminController создает новый экземпляр AdminController
func NewAdminController(loans *services.LoanService, dashboard *services.DashboardService, rates *services.RateSheetService, profiles *services.ProfileService) *AdminController {
	return &AdminController{
		loans:     loans,
		dashboard: dashboard,
		rates:     rates,
		profiles:  profiles,
	}
}

// Approve одобряет заявку и строит график
func (c *AdminController) Approve(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	// Тело необязательно
	var req ApproveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	loan, err := c.loans.Approve(r.Context(), loanID, req.DisbursalDate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

// Reject отклоняет заявку
func (c *AdminController) Reject(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req RejectRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	loan, err := c.loans.Reject(r.Context(), loanID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

// ListLoans возвращает все кредиты, ?status= фильтрует по статусу
func (c *AdminController) ListLoans(w http.ResponseWriter, r *http.Request) {
	status := models.LoanStatus(r.URL.Query().Get("status"))

	loans, err := c.loans.ListAll(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loans)
}

// Stats возвращает сводку по портфелю
func (c *AdminController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ImportRates загружает XML-лист ставок из тела запроса
func (c *AdminController) ImportRates(w http.ResponseWriter, r *http.Request) {
	result, err := c.rates.Import(r.Context(), io.LimitReader(r.Body, maxRateSheetSize))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ExportRates выгружает текущие ставки в XML
func (c *AdminController) ExportRates(w http.ResponseWriter, r *http.Request) {
	sheet, err := c.rates.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sheet)
}

// LookupPAN находит пользователя по номеру PAN
func (c *AdminController) LookupPAN(w http.ResponseWriter, r *http.Request) {
	userID, err := c.profiles.FindUserByPAN(r.Context(), r.URL.Query().Get("pan"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint{"userId": userID})
}
