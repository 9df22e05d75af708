package controllers

import (
	"net/http"
	"time"

	"loanDesk/amortization"
	"loanDesk/services"
	"loanDesk/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// maxScheduleMonths ограничивает срок в публичных калькуляторах
const maxScheduleMonths = 600

var errTenureTooLong = gin.H{"error": "срок не может превышать 600 месяцев"}

// CalculatorRequest параметры расчета аннуитетного платежа
type CalculatorRequest struct {
	Principal         decimal.Decimal `json:"principal"`
	AnnualRatePercent decimal.Decimal `json:"annualRatePercent"`
	TenureMonths      int             `json:"tenureMonths"`
	StartDate         *time.Time      `json:"startDate,omitempty"`
}

// ScheduleResponse график с итогами
type ScheduleResponse struct {
	amortization.Quote
	Lines []amortization.Line `json:"lines"`
}

// CalculatorController публичные калькуляторы на gin
type CalculatorController struct {
	loans *services.LoanService
	gold  *services.GoldLoanService
	now   func() time.Time
}

// NewCalculatorController создает новый экземпляр CalculatorController
func NewCalculatorController(loans *services.LoanService, gold *services.GoldLoanService) *CalculatorController {
	return &CalculatorController{loans: loans, gold: gold, now: time.Now}
}

// RegisterRoutes подключает маршруты калькуляторов к группе
func (c *CalculatorController) RegisterRoutes(group gin.IRoutes) {
	group.POST("/emi", c.EMI)
	group.POST("/schedule", c.Schedule)
	group.POST("/gold-loan", c.GoldLoan)
	group.GET("/gold-rates", c.GoldRates)
	group.GET("/products", c.Products)
}

// EMI рассчитывает ежемесячный платеж и итоги
func (c *CalculatorController) EMI(ctx *gin.Context) {
	var req CalculatorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.TenureMonths > maxScheduleMonths {
		ctx.JSON(http.StatusBadRequest, errTenureTooLong)
		return
	}

	quote, err := amortization.Summarize(req.Principal, req.AnnualRatePercent, req.TenureMonths)
	utils.RecordCalculatorCall("emi", err)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, quote)
}

// Schedule рассчитывает полный график погашения
func (c *CalculatorController) Schedule(ctx *gin.Context) {
	var req CalculatorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.TenureMonths > maxScheduleMonths {
		ctx.JSON(http.StatusBadRequest, errTenureTooLong)
		return
	}

	startDate := c.now()
	if req.StartDate != nil {
		startDate = *req.StartDate
	}

	lines, err := amortization.GenerateSchedule(req.Principal, req.AnnualRatePercent, req.TenureMonths, startDate)
	utils.RecordCalculatorCall("schedule", err)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	// Условия уже проверены при построении графика
	quote, err := amortization.Summarize(req.Principal, req.AnnualRatePercent, req.TenureMonths)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, ScheduleResponse{Quote: *quote, Lines: lines})
}

// GoldLoan рассчитывает сумму под залог золота
func (c *CalculatorController) GoldLoan(ctx *gin.Context) {
	var req services.GoldLoanDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	quote, err := c.gold.Quote(ctx.Request.Context(), req)
	utils.RecordCalculatorCall("gold-loan", err)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, quote)
}

// GoldRates возвращает текущие цены на золото
func (c *CalculatorController) GoldRates(ctx *gin.Context) {
	rates, err := c.gold.Rates(ctx.Request.Context())
	if err != nil {
		_ = ctx.Error(err)
		ctx.JSON(statusFor(err), gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, rates)
}

// Products возвращает линейку кредитных продуктов
func (c *CalculatorController) Products(ctx *gin.Context) {
	products, err := c.loans.Products(ctx.Request.Context())
	if err != nil {
		_ = ctx.Error(err)
		ctx.JSON(statusFor(err), gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, products)
}
