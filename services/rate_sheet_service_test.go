package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"loanDesk/apperrors"
	"loanDesk/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateSheetService_Import(t *testing.T) {
	db := newTestDatabase(t)
	service := NewRateSheetService(db.DB)
	ctx := context.Background()

	sheet := `<?xml version="1.0"?>
<rates>
  <product name="home-loan" rate="8.75"/>
  <product name="car-loan" rate="9.25"/>
  <gold purity="22K" rate="6100" date="2030-01-01"/>
</rates>`

	result, err := service.Import(ctx, strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ProductsUpdated)
	assert.Equal(t, 1, result.GoldRatesAdded)

	var home models.LoanProduct
	require.NoError(t, db.DB.Where("name = ?", "home-loan").First(&home).Error)
	assert.True(t, home.BaseRatePercent.Equal(decimal.RequireFromString("8.75")))

	// Новая цена становится последней для расчета
	quote, err := NewGoldLoanService(db.DB, 75).Quote(ctx, GoldLoanDTO{WeightGrams: decimal.NewFromInt(10), Purity: "22K"})
	require.NoError(t, err)
	assert.True(t, quote.RatePerGram.Equal(decimal.NewFromInt(6100)))
}

func TestRateSheetService_ImportIsAtomic(t *testing.T) {
	tests := []struct {
		name  string
		sheet string
		kind  error
	}{
		{name: "not xml", sheet: "rates", kind: apperrors.ErrInvalidInput},
		{name: "wrong root", sheet: `<prices/>`, kind: apperrors.ErrInvalidInput},
		{name: "unknown product", sheet: `<rates><product name="home-loan" rate="7"/><product name="boat-loan" rate="7"/></rates>`, kind: apperrors.ErrNotFound},
		{name: "bad rate", sheet: `<rates><product name="home-loan" rate="7"/><product name="car-loan" rate="abc"/></rates>`, kind: apperrors.ErrInvalidInput},
		{name: "rate above 100", sheet: `<rates><product name="home-loan" rate="150"/></rates>`, kind: apperrors.ErrInvalidInput},
		{name: "bad purity", sheet: `<rates><product name="home-loan" rate="7"/><gold purity="9K" rate="100"/></rates>`, kind: apperrors.ErrInvalidInput},
		{name: "bad date", sheet: `<rates><gold purity="24K" rate="100" date="01.01.2030"/></rates>`, kind: apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDatabase(t)
			service := NewRateSheetService(db.DB)

			_, err := service.Import(context.Background(), strings.NewReader(tt.sheet))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "unexpected error: %v", err)

			var home models.LoanProduct
			require.NoError(t, db.DB.Where("name = ?", "home-loan").First(&home).Error)
			assert.True(t, home.BaseRatePercent.Equal(decimal.RequireFromString("8.5")))
		})
	}
}

func TestRateSheetService_Export(t *testing.T) {
	db := newTestDatabase(t)
	service := NewRateSheetService(db.DB)
	service.now = func() time.Time { return testNow }

	xml, err := service.Export(context.Background())
	require.NoError(t, err)
	assert.Contains(t, xml, `<rates generated="2025-01-15T10:00:00Z">`)
	assert.Contains(t, xml, `<product name="home-loan" rate="8.50"/>`)
	assert.Contains(t, xml, `<product name="education-loan" rate="9.00"/>`)

	// Выгрузка читается обратно без изменений
	result, err := service.Import(context.Background(), strings.NewReader(xml))
	require.NoError(t, err)
	assert.Equal(t, 6, result.ProductsUpdated)
}
