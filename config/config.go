package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}
	DB struct {
		Driver         string // postgres или sqlite
		SQLitePath     string
		Host           string
		Port           int
		User           string
		Password       string
		DBName         string
		MigrationsPath string
	}
	JWT struct {
		SecretKey string
		ExpiresIn int // в часах
	}
	SMTP struct {
		Enabled  bool
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	Log struct {
		Level string
		Dir   string
	}
	OTEL struct {
		Endpoint    string
		ServiceName string
	}
	Loans struct {
		LateFeePercent  float64       // Пени за просрочку, % от платежа
		OverdueInterval time.Duration // Период проверки просроченных платежей
		GoldLTVPercent  float64       // Доля стоимости золота, выдаваемая в кредит
	}
	Admin struct {
		Email    string // Администратор, создаваемый при старте
		Password string
	}
	RateLimit struct {
		Requests int
		Window   time.Duration
	}
	PANPrivateKey string // Приватный ключ PGP для расшифровки PAN
	PANPublicKey  string // Публичный ключ PGP для шифрования PAN
	PANHMACKey    string // Ключ для HMAC-поиска по PAN
}

// NewConfig создает новый экземпляр конфигурации.
// Источники по приоритету: переменные окружения, .env, config.yaml, значения по умолчанию.
func NewConfig() (*Config, error) {
	// Загружаем .env файл, если он существует
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения config.yaml: %v", err)
		}
	}

	// SERVER_PORT перекрывает server.port и т.д.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}

	// Настройки сервера
	cfg.Server.Port = v.GetInt("server.port")
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("неверный формат порта сервера: %d", cfg.Server.Port)
	}
	cfg.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	cfg.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")

	// Настройки базы данных
	cfg.DB.Driver = v.GetString("db.driver")
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite" {
		return nil, fmt.Errorf("неизвестный драйвер базы данных: %q", cfg.DB.Driver)
	}
	cfg.DB.SQLitePath = v.GetString("db.sqlite_path")
	cfg.DB.Host = v.GetString("db.host")
	cfg.DB.Port = v.GetInt("db.port")
	if cfg.DB.Port <= 0 {
		return nil, fmt.Errorf("неверный формат порта базы данных: %d", cfg.DB.Port)
	}
	cfg.DB.User = v.GetString("db.user")
	cfg.DB.Password = v.GetString("db.password")
	cfg.DB.DBName = v.GetString("db.name")
	cfg.DB.MigrationsPath = v.GetString("db.migrations_path")

	// Настройки JWT
	cfg.JWT.SecretKey = v.GetString("jwt.secret_key")
	cfg.JWT.ExpiresIn = v.GetInt("jwt.expires_in")
	if cfg.JWT.ExpiresIn <= 0 {
		return nil, fmt.Errorf("неверный формат времени жизни JWT: %d", cfg.JWT.ExpiresIn)
	}

	// Настройки SMTP
	cfg.SMTP.Enabled = v.GetBool("smtp.enabled")
	cfg.SMTP.Host = v.GetString("smtp.host")
	cfg.SMTP.Port = v.GetInt("smtp.port")
	cfg.SMTP.Username = v.GetString("smtp.username")
	cfg.SMTP.Password = v.GetString("smtp.password")
	cfg.SMTP.From = v.GetString("smtp.from")

	// Логирование и трейсинг
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Dir = v.GetString("log.dir")
	cfg.OTEL.Endpoint = v.GetString("otel.endpoint")
	cfg.OTEL.ServiceName = v.GetString("otel.service_name")

	// Параметры кредитов
	cfg.Loans.LateFeePercent = v.GetFloat64("loans.late_fee_percent")
	if cfg.Loans.LateFeePercent < 0 {
		return nil, fmt.Errorf("процент пени не может быть отрицательным: %v", cfg.Loans.LateFeePercent)
	}
	cfg.Loans.OverdueInterval = v.GetDuration("loans.overdue_interval")
	if cfg.Loans.OverdueInterval <= 0 {
		return nil, fmt.Errorf("неверный интервал проверки просрочек: %v", cfg.Loans.OverdueInterval)
	}
	cfg.Loans.GoldLTVPercent = v.GetFloat64("loans.gold_ltv_percent")

	cfg.Admin.Email = v.GetString("admin.email")
	cfg.Admin.Password = v.GetString("admin.password")

	cfg.RateLimit.Requests = v.GetInt("ratelimit.requests")
	cfg.RateLimit.Window = v.GetDuration("ratelimit.window")

	// Ключи для PAN
	cfg.PANPrivateKey = v.GetString("pan.private_key")
	cfg.PANPublicKey = v.GetString("pan.public_key")
	cfg.PANHMACKey = v.GetString("pan.hmac_key")

	return cfg, nil
}

// setDefaults задает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.sqlite_path", "loan_desk.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "loan_desk")
	v.SetDefault("db.migrations_path", "file://migrations")

	v.SetDefault("jwt.secret_key", "your-secret-key-here")
	v.SetDefault("jwt.expires_in", 24)

	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "your-email@gmail.com")
	v.SetDefault("smtp.password", "your-app-password")
	v.SetDefault("smtp.from", "your-email@gmail.com")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "loan-desk")

	v.SetDefault("loans.late_fee_percent", 2)
	v.SetDefault("loans.overdue_interval", time.Hour)
	v.SetDefault("loans.gold_ltv_percent", 75)

	v.SetDefault("admin.email", "admin@gmail.com")
	v.SetDefault("admin.password", "Admin@123")

	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("pan.private_key", "")
	v.SetDefault("pan.public_key", "")
	v.SetDefault("pan.hmac_key", "your-pan-hmac-key-here")
}
