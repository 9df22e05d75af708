package services

import (
	"context"
	"io"
	"time"

	"loanDesk/apperrors"
	"loanDesk/models"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateSheetResult итог импорта листа ставок
type RateSheetResult struct {
	ProductsUpdated int `json:"productsUpdated"`
	GoldRatesAdded  int `json:"goldRatesAdded"`
}

// RateSheetService импортирует и выгружает XML-лист ставок:
//
//	<rates>
//	  <product name="home-loan" rate="8.50"/>
//	  <gold purity="24K" rate="6500" date="2025-01-15" city="Mumbai"/>
//	</rates>
type RateSheetService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRateSheetService создает новый экземпляр RateSheetService
func NewRateSheetService(db *gorm.DB) *RateSheetService {
	return &RateSheetService{db: db, now: time.Now}
}

// Import применяет лист ставок целиком или не применяет ничего
func (s *RateSheetService) Import(ctx context.Context, r io.Reader) (*RateSheetResult, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, apperrors.InvalidInput("", "некорректный XML: %v", err)
	}

	root := doc.SelectElement("rates")
	if root == nil {
		return nil, apperrors.InvalidInput("", "ожидается корневой элемент <rates>")
	}

	result := &RateSheetResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Обновляем базовые ставки продуктов
		for _, el := range root.SelectElements("product") {
			name := el.SelectAttrValue("name", "")
			rate, err := parseRate(el, "rate")
			if err != nil {
				return err
			}
			if rate.GreaterThan(decimal.NewFromInt(100)) {
				return apperrors.InvalidInput("rate", "ставка %s для %s больше 100%%", rate, name)
			}

			res := tx.Model(&models.LoanProduct{}).Where("name = ?", name).Update("base_rate_percent", rate)
			if res.Error != nil {
				return apperrors.Persistence("ошибка при обновлении ставки продукта", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperrors.NotFound("кредитный продукт %q не найден", name)
			}
			result.ProductsUpdated++
		}

		// Добавляем цены на золото
		for _, el := range root.SelectElements("gold") {
			goldRate, err := s.parseGoldRate(el)
			if err != nil {
				return err
			}
			if err := tx.Create(goldRate).Error; err != nil {
				return apperrors.Persistence("ошибка при сохранении цены золота", err)
			}
			result.GoldRatesAdded++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Export выгружает текущие ставки продуктов в том же формате
func (s *RateSheetService) Export(ctx context.Context) (string, error) {
	var products []models.LoanProduct
	if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return "", apperrors.Persistence("ошибка при получении продуктов", err)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("rates")
	root.CreateAttr("generated", s.now().UTC().Format(time.RFC3339))
	for _, product := range products {
		el := root.CreateElement("product")
		el.CreateAttr("name", product.Name)
		el.CreateAttr("rate", product.BaseRatePercent.StringFixed(2))
	}
	doc.Indent(2)

	return doc.WriteToString()
}

func (s *RateSheetService) parseGoldRate(el *etree.Element) (*models.GoldRate, error) {
	purity := el.SelectAttrValue("purity", "")
	switch purity {
	case "24K", "22K", "18K", "14K":
	default:
		return nil, apperrors.InvalidInput("purity", "неизвестная проба %q", purity)
	}

	rate, err := parseRate(el, "rate")
	if err != nil {
		return nil, err
	}
	if rate.IsZero() {
		return nil, apperrors.InvalidInput("rate", "цена грамма должна быть больше 0")
	}

	date := s.now().UTC().Truncate(24 * time.Hour)
	if value := el.SelectAttrValue("date", ""); value != "" {
		date, err = time.Parse("2006-01-02", value)
		if err != nil {
			return nil, apperrors.InvalidInput("date", "некорректная дата %q", value)
		}
	}

	return &models.GoldRate{
		Date:        date,
		Purity:      purity,
		RatePerGram: rate,
		City:        el.SelectAttrValue("city", "Mumbai"),
	}, nil
}

// parseRate читает неотрицательное число из атрибута
func parseRate(el *etree.Element, attr string) (decimal.Decimal, error) {
	value := el.SelectAttrValue(attr, "")
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, apperrors.InvalidInput(attr, "некорректное значение %q в <%s>", value, el.Tag)
	}
	if rate.IsNegative() {
		return decimal.Zero, apperrors.InvalidInput(attr, "значение не может быть отрицательным: %s", rate)
	}
	return rate, nil
}
