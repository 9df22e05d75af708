package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"loanDesk/config"
	"loanDesk/controllers"
	"loanDesk/database"
	"loanDesk/middleware"
	"loanDesk/services"
	"loanDesk/tracing"
	"loanDesk/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// application связывает сервисы и контроллеры
type application struct {
	users     *services.UserService
	scheduler *services.OverdueScheduler

	auth       *controllers.AuthController
	loanAPI    *controllers.LoanController
	admin      *controllers.AdminController
	account    *controllers.AccountController
	calculator *controllers.CalculatorController
}

// newApplication создает сервисы поверх открытой базы данных
func newApplication(cfg *config.Config, db *database.Database) *application {
	// Инициализируем сервис email
	emailService := services.NewEmailService(cfg)
	notificationService := services.NewNotificationService(db.DB, emailService)

	repo := database.NewLoanRepository(db.DB)
	loanService := services.NewLoanService(repo, notificationService)
	userService := services.NewUserService(db.DB, cfg.JWT.SecretKey, time.Duration(cfg.JWT.ExpiresIn)*time.Hour)
	goldService := services.NewGoldLoanService(db.DB, cfg.Loans.GoldLTVPercent)
	profileService := services.NewProfileService(db.DB, cfg.PANPublicKey, cfg.PANPrivateKey, cfg.PANHMACKey)

	return &application{
		users:     userService,
		scheduler: services.NewOverdueScheduler(repo, cfg.Loans.OverdueInterval, cfg.Loans.LateFeePercent),

		auth:    controllers.NewAuthController(userService),
		loanAPI: controllers.NewLoanController(loanService),
		admin: controllers.NewAdminController(
			loanService,
			services.NewDashboardService(db.DB),
			services.NewRateSheetService(db.DB),
			profileService,
		),
		account:    controllers.NewAccountController(notificationService, profileService),
		calculator: controllers.NewCalculatorController(loanService, goldService),
	}
}

// newRouter регистрирует маршруты API
func newRouter(cfg *config.Config, app *application) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Публичные калькуляторы обслуживает gin со своим ограничением частоты
	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.CORSMiddleware(),
		middleware.Logger(),
		middleware.RateLimit(utils.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)),
	)
	app.calculator.RegisterRoutes(engine.Group("/api/calculator"))
	router.PathPrefix("/api/calculator/").Handler(engine)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.LoggingMiddleware)

	// Публичные маршруты для аутентификации
	api.HandleFunc("/auth/register", app.auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", app.auth.Login).Methods(http.MethodPost)

	// Защищенные маршруты
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.SecretKey))

	protected.HandleFunc("/auth/me", app.auth.Me).Methods(http.MethodGet)

	// Маршруты для работы с кредитами
	protected.HandleFunc("/loans", app.loanAPI.Apply).Methods(http.MethodPost)
	protected.HandleFunc("/loans", app.loanAPI.List).Methods(http.MethodGet)
	protected.HandleFunc("/loans/{id}", app.loanAPI.Get).Methods(http.MethodGet)
	protected.HandleFunc("/loans/{id}/schedule", app.loanAPI.Schedule).Methods(http.MethodGet)
	protected.HandleFunc("/loans/{id}/payments", app.loanAPI.Payments).Methods(http.MethodGet)
	protected.HandleFunc("/loans/{id}/lines/{lineId}/pay", app.loanAPI.Pay).Methods(http.MethodPost)

	// Уведомления и анкета
	protected.HandleFunc("/notifications", app.account.Notifications).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/{id}/read", app.account.MarkRead).Methods(http.MethodPost)
	protected.HandleFunc("/profile", app.account.Profile).Methods(http.MethodGet)
	protected.HandleFunc("/profile", app.account.UpdateProfile).Methods(http.MethodPut)

	// Маршруты администратора
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/loans", app.admin.ListLoans).Methods(http.MethodGet)
	admin.HandleFunc("/loans/{id}/approve", app.admin.Approve).Methods(http.MethodPost)
	admin.HandleFunc("/loans/{id}/reject", app.admin.Reject).Methods(http.MethodPost)
	admin.HandleFunc("/stats", app.admin.Stats).Methods(http.MethodGet)
	admin.HandleFunc("/rates/import", app.admin.ImportRates).Methods(http.MethodPost)
	admin.HandleFunc("/rates/export", app.admin.ExportRates).Methods(http.MethodGet)
	admin.HandleFunc("/profiles/lookup", app.admin.LookupPAN).Methods(http.MethodGet)

	return router
}

func run() error {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %v", err)
	}

	if err := utils.InitLogger(cfg.Log.Level, cfg.Log.Dir); err != nil {
		return fmt.Errorf("ошибка инициализации логгера: %v", err)
	}
	defer utils.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации трейсинга: %v", err)
	}

	// Инициализируем подключение к базе данных
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	gin.SetMode(gin.ReleaseMode)
	app := newApplication(cfg, db)

	if err := app.users.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return fmt.Errorf("ошибка создания администратора: %v", err)
	}

	// Запускаем планировщик просрочек
	schedulerDone := app.scheduler.Start(ctx)
	utils.LogInfo("Планировщик просрочек запущен, интервал %v", cfg.Loans.OverdueInterval)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(cfg, app),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		utils.LogInfo("Сервер запущен на порту %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("ошибка запуска сервера: %v", err)
		}
	case <-ctx.Done():
		utils.LogInfo("Получен сигнал остановки")
	}

	// Корректно останавливаем сервер и фоновые задачи
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.LogError("Ошибка при остановке сервера: %v", err)
	}
	stop()
	<-schedulerDone

	if err := shutdownTracing(shutdownCtx); err != nil {
		utils.LogError("Ошибка при остановке трейсинга: %v", err)
	}

	utils.LogInfo("Сервер остановлен")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
