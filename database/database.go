package database

import (
	"errors"
	"fmt"
	"time"

	"loanDesk/config"
	"loanDesk/models"
	"loanDesk/utils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database представляет подключение к базе данных
type Database struct {
	DB *gorm.DB
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Connect устанавливает соединение с базой данных и выполняет миграции
func Connect(cfg *config.Config) (*Database, error) {
	if cfg.DB.Driver == "sqlite" {
		return OpenSQLite(cfg.DB.SQLitePath)
	}

	// Формируем строку подключения
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	// Настраиваем пул соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %v", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Выполняем SQL миграции
	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("ошибка выполнения SQL миграций: %v", err)
	}

	return &Database{DB: db}, nil
}

// OpenSQLite открывает базу SQLite, создает схему и справочники.
// Используется для локального запуска и тестов.
func OpenSQLite(dsn string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	// SQLite допускает одного писателя
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	if err := seedReferenceData(db); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// newGormLogger пишет SQL-лог через zap
func newGormLogger() logger.Interface {
	return logger.New(
		zap.NewStdLog(utils.Logger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// runMigrations выполняет SQL миграции
func runMigrations(cfg *config.Config) error {
	// Формируем URL для миграций
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.DBName,
	)

	m, err := migrate.New(cfg.DB.MigrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %v", err)
	}

	return nil
}

// AutoMigrate создает таблицы по моделям
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.LoanProduct{},
		&models.Loan{},
		&models.ScheduleLine{},
		&models.Payment{},
		&models.Notification{},
		&models.GoldRate{},
	)
	if err != nil {
		return fmt.Errorf("ошибка автоматической миграции: %v", err)
	}

	return nil
}

// DefaultProducts возвращает стандартную линейку кредитных продуктов
func DefaultProducts() []models.LoanProduct {
	product := func(name, display, rate, minAmount, maxAmount string, minTenure, maxTenure int, fee string) models.LoanProduct {
		return models.LoanProduct{
			Name:                 name,
			DisplayName:          display,
			BaseRatePercent:      decimal.RequireFromString(rate),
			MinAmount:            decimal.RequireFromString(minAmount),
			MaxAmount:            decimal.RequireFromString(maxAmount),
			MinTenureMonths:      minTenure,
			MaxTenureMonths:      maxTenure,
			ProcessingFeePercent: decimal.RequireFromString(fee),
			IsActive:             true,
		}
	}

	return []models.LoanProduct{
		product("home-loan", "Home Loan", "8.50", "500000", "50000000", 60, 360, "0.50"),
		product("car-loan", "Car Loan", "9.50", "100000", "5000000", 12, 84, "1.00"),
		product("personal-loan", "Personal Loan", "11.00", "25000", "5000000", 6, 60, "2.00"),
		product("gold-loan", "Gold Loan", "12.00", "10000", "2000000", 6, 36, "0.50"),
		product("business-loan", "Business Loan", "10.50", "100000", "10000000", 12, 120, "1.50"),
		product("education-loan", "Education Loan", "9.00", "50000", "2000000", 12, 180, "0.00"),
	}
}

// DefaultGoldRates возвращает стартовые цены грамма золота по пробам
func DefaultGoldRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"24K": decimal.NewFromInt(6500),
		"22K": decimal.NewFromInt(5950),
		"18K": decimal.NewFromInt(4875),
		"14K": decimal.NewFromInt(3790),
	}
}

// seedReferenceData заполняет справочники, если они пусты
func seedReferenceData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.LoanProduct{}).Count(&count).Error; err != nil {
		return fmt.Errorf("ошибка проверки справочника продуктов: %v", err)
	}
	if count > 0 {
		return nil
	}

	products := DefaultProducts()
	if err := db.Create(&products).Error; err != nil {
		return fmt.Errorf("ошибка заполнения справочника продуктов: %v", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for purity, rate := range DefaultGoldRates() {
		goldRate := models.GoldRate{Date: today, Purity: purity, RatePerGram: rate, City: "Mumbai"}
		if err := db.Create(&goldRate).Error; err != nil {
			return fmt.Errorf("ошибка заполнения цен на золото: %v", err)
		}
	}

	return nil
}
