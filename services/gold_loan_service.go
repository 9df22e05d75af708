package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"loanDesk/amortization"
	"loanDesk/apperrors"
	"loanDesk/database"
	"loanDesk/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoldLoanDTO представляет запрос расчета кредита под залог золота
type GoldLoanDTO struct {
	WeightGrams decimal.Decimal `json:"weightGrams"`
	Purity      string          `json:"purity" validate:"required,oneof=24K 22K 18K 14K"`
}

// GoldLoanQuote представляет результат расчета
type GoldLoanQuote struct {
	Purity         string          `json:"purity"`
	WeightGrams    decimal.Decimal `json:"weightGrams"`
	RatePerGram    decimal.Decimal `json:"ratePerGram"`
	RateDate       *time.Time      `json:"rateDate,omitempty"`
	GoldValue      decimal.Decimal `json:"goldValue"`
	LTVPercent     decimal.Decimal `json:"ltvPercent"`
	EligibleAmount decimal.Decimal `json:"eligibleAmount"`
}

// GoldLoanService рассчитывает сумму кредита под залог золота по текущей цене грамма
type GoldLoanService struct {
	db         *gorm.DB
	ltvPercent decimal.Decimal
}

// NewGoldLoanService создает новый экземпляр GoldLoanService
func NewGoldLoanService(db *gorm.DB, ltvPercent float64) *GoldLoanService {
	return &GoldLoanService{db: db, ltvPercent: decimal.NewFromFloat(ltvPercent)}
}

// Quote возвращает сумму, доступную под залог: вес × цена грамма × LTV%, с округлением вверх
func (s *GoldLoanService) Quote(ctx context.Context, dto GoldLoanDTO) (*GoldLoanQuote, error) {
	dto.Purity = strings.ToUpper(strings.TrimSpace(dto.Purity))
	if err := validateDTO(dto); err != nil {
		return nil, err
	}
	if !dto.WeightGrams.IsPositive() {
		return nil, apperrors.InvalidInput("weightGrams", "вес должен быть больше 0")
	}

	rate, err := s.latestRate(ctx, dto.Purity)
	if err != nil {
		return nil, err
	}

	goldValue := dto.WeightGrams.Mul(rate.RatePerGram).Round(2)
	quote := &GoldLoanQuote{
		Purity:         dto.Purity,
		WeightGrams:    dto.WeightGrams,
		RatePerGram:    rate.RatePerGram,
		GoldValue:      goldValue,
		LTVPercent:     s.ltvPercent,
		EligibleAmount: amortization.Percent(goldValue, s.ltvPercent),
	}
	if !rate.Date.IsZero() {
		quote.RateDate = &rate.Date
	}
	return quote, nil
}

// Rates возвращает последние цены по всем пробам
func (s *GoldLoanService) Rates(ctx context.Context) ([]models.GoldRate, error) {
	defaults := database.DefaultGoldRates()
	purities := make([]string, 0, len(defaults))
	for purity := range defaults {
		purities = append(purities, purity)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(purities)))

	rates := make([]models.GoldRate, 0, len(purities))
	for _, purity := range purities {
		rate, err := s.latestRate(ctx, purity)
		if err != nil {
			return nil, err
		}
		rates = append(rates, *rate)
	}
	return rates, nil
}

// latestRate берет последнюю цену пробы, при пустой таблице - значение по умолчанию
func (s *GoldLoanService) latestRate(ctx context.Context, purity string) (*models.GoldRate, error) {
	var rate models.GoldRate
	err := s.db.WithContext(ctx).
		Where("purity = ?", purity).
		Order("date DESC, id DESC").
		First(&rate).Error
	if err == nil {
		return &rate, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Persistence("ошибка при получении цены золота", err)
	}

	fallback, ok := database.DefaultGoldRates()[purity]
	if !ok {
		return nil, apperrors.InvalidInput("purity", "неизвестная проба %s", purity)
	}
	return &models.GoldRate{Purity: purity, RatePerGram: fallback}, nil
}
