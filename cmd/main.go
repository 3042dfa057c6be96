package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	cancelReservationHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/cancel_reservation"
	createReservationHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/create_reservation"
	getAvailabilityHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/get_availability"
	getCourtReservationsHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/get_court_reservations"
	getCourtSettingsHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/get_court_settings"
	getReservationHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/get_reservation"
	getUserReservationsHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/get_user_reservations"
	healthHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/health"
	paymentReturnHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/payment_return"
	paymentWebhookHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/payment_webhook"
	updateCourtSettingsHandler "github.com/m04kA/SMC-CourtReservationService/internal/api/handlers/update_court_settings"
	"github.com/m04kA/SMC-CourtReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-CourtReservationService/internal/config"
	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/infra/broadcast"
	"github.com/m04kA/SMC-CourtReservationService/internal/infra/idempotency"
	"github.com/m04kA/SMC-CourtReservationService/internal/infra/migrations"
	"github.com/m04kA/SMC-CourtReservationService/internal/infra/redisclient"
	reservationRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/reservation"
	settingsRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/settings"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/paypal"
	reservationsService "github.com/m04kA/SMC-CourtReservationService/internal/service/reservations"
	settingsService "github.com/m04kA/SMC-CourtReservationService/internal/service/settings"
	createReservationUC "github.com/m04kA/SMC-CourtReservationService/internal/usecase/create_reservation"
	getAvailabilityUC "github.com/m04kA/SMC-CourtReservationService/internal/usecase/get_availability"
	handlePaymentUC "github.com/m04kA/SMC-CourtReservationService/internal/usecase/handle_payment"
	"github.com/m04kA/SMC-CourtReservationService/internal/worker"
	"github.com/m04kA/SMC-CourtReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-CourtReservationService/pkg/logger"
	"github.com/m04kA/SMC-CourtReservationService/pkg/metrics"
	"github.com/m04kA/SMC-CourtReservationService/pkg/txmanager"
)

const reconciliationRunTimeout = 4 * time.Minute

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-CourtReservationService...")
	log.Info("Configuration loaded from config.toml")

	// Часовой пояс бизнеса загружается один раз и передается вниз
	location, err := cfg.Booking.Location()
	if err != nil {
		log.Fatal("Failed to load business timezone: %v", err)
	}
	log.Info("Business timezone: %s", location)

	// Инициализируем метрики (если включены). nil-коллектор ничего не пишет
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(db); err != nil {
			log.Fatal("Failed to apply migrations: %v", err)
		}
		log.Info("Database migrations applied")
	}

	// Redis: кеш справочника, уведомления, отметки вебхуков
	rdb := redisclient.New(cfg.Redis)
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisclient.Ping(pingCtx, rdb); err != nil {
		log.Warn("Redis is unavailable at %s, running degraded: %v", cfg.Redis.Addr, err)
	} else {
		log.Info("Successfully connected to redis (addr=%s)", cfg.Redis.Addr)
	}
	pingCancel()

	// Инициализируем интеграционных клиентов
	directoryClient := directoryservice.NewCachedClient(
		directoryservice.NewClient(cfg.Directory.URL, time.Duration(cfg.Directory.Timeout)*time.Second, log),
		rdb,
		time.Duration(cfg.Directory.CacheTTLSeconds)*time.Second,
		log,
	)
	paymentTimeout := time.Duration(cfg.PayPal.Timeout) * time.Second
	paypalClient := paypal.NewClient(paypal.Config{
		BaseURL:      cfg.PayPal.BaseURL,
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		Currency:     cfg.PayPal.Currency,
		ReturnURL:    cfg.PayPal.ReturnURL,
		CancelURL:    cfg.PayPal.CancelURL,
		Timeout:      paymentTimeout,
	}, log)
	webhookVerifier := paypal.NewVerifier(
		cfg.PayPal.WebhookID,
		cfg.PayPal.CertAllowedHosts,
		&http.Client{Timeout: paymentTimeout},
	)
	log.Info("Integration clients initialized (Directory=%s timeout=%ds, PayPal=%s timeout=%ds)",
		cfg.Directory.URL, cfg.Directory.Timeout, cfg.PayPal.BaseURL, cfg.PayPal.Timeout)

	notifier := broadcast.NewPublisher(rdb, cfg.Notifications.Channel, metricsCollector, log)
	webhookEvents := idempotency.NewStore(rdb, time.Duration(cfg.PayPal.WebhookEventTTL)*time.Hour)

	// Репозитории и менеджер транзакций поверх обёртки с метриками
	wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
	reservationRepository := reservationRepo.NewRepository(wrappedDB)
	settingsRepository := settingsRepo.NewRepository(wrappedDB)
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	defaults := domain.CourtBookingSettings{
		SlotIntervalMinutes: cfg.Booking.SlotIntervalMinutes,
		LeadTimeMinutes:     cfg.Booking.LeadTimeMinutes,
		AdvanceBookingDays:  cfg.Booking.AdvanceBookingDays,
	}

	// Инициализируем сервисы
	reservationSvc := reservationsService.NewService(
		reservationRepository,
		directoryClient,
		txMgr,
		notifier,
		metricsCollector,
		cfg.Booking.CancellationPolicy == config.CancellationPolicyAllow,
		location,
		log,
	)
	settingsSvc := settingsService.NewService(
		settingsRepository,
		directoryClient,
		defaults,
		log,
	)

	// Инициализируем use cases
	getAvailabilityUseCase := getAvailabilityUC.NewUseCase(
		reservationRepository,
		settingsRepository,
		directoryClient,
		defaults,
		location,
		log,
	)
	createReservationUseCase := createReservationUC.NewUseCase(
		reservationRepository,
		settingsRepository,
		directoryClient,
		paypalClient,
		notifier,
		metricsCollector,
		txMgr,
		defaults,
		location,
		paymentTimeout,
		log,
	)
	handlePaymentUseCase := handlePaymentUC.NewUseCase(
		reservationRepository,
		paypalClient,
		directoryClient,
		notifier,
		metricsCollector,
		paymentTimeout,
		log,
	)

	// Фоновая сверка платежей
	scheduler, err := worker.NewScheduler(log)
	if err != nil {
		log.Fatal("Failed to create scheduler: %v", err)
	}
	if cfg.Reconciliation.Enabled {
		sweeper := worker.NewReconciliationSweeper(
			reservationRepository,
			handlePaymentUseCase,
			time.Duration(cfg.Reconciliation.StaleAfterMinutes)*time.Minute,
			cfg.Reconciliation.BatchSize,
			reconciliationRunTimeout,
			log,
		)
		if err := sweeper.Register(scheduler, cfg.Reconciliation.Cron); err != nil {
			log.Fatal("Failed to register reconciliation job: %v", err)
		}
	}
	scheduler.Start()

	// Инициализируем handlers
	getAvailability := getAvailabilityHandler.NewHandler(getAvailabilityUseCase, log)
	createReservation := createReservationHandler.NewHandler(createReservationUseCase, log)
	getReservation := getReservationHandler.NewHandler(reservationSvc, log)
	cancelReservation := cancelReservationHandler.NewHandler(reservationSvc, log)
	getUserReservations := getUserReservationsHandler.NewHandler(reservationSvc, log)
	getCourtReservations := getCourtReservationsHandler.NewHandler(reservationSvc, location, log)
	getCourtSettings := getCourtSettingsHandler.NewHandler(settingsSvc, log)
	updateCourtSettings := updateCourtSettingsHandler.NewHandler(settingsSvc, log)
	paymentReturn := paymentReturnHandler.NewHandler(handlePaymentUseCase, log)
	paymentWebhook := paymentWebhookHandler.NewHandler(handlePaymentUseCase, webhookVerifier, webhookEvents, log)
	health := healthHandler.NewHandler(map[string]healthHandler.Check{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisclient.Ping(ctx, rdb)
		},
	}, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		log.Info("HTTP metrics middleware enabled")

		// Metrics endpoint (публичный, без аутентификации)
		r.Handle(cfg.Metrics.Path, metricsCollector.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/health", health.Handle).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		api.Use(limiter.Middleware)
		log.Info("Rate limiting enabled (rps=%.1f, burst=%d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	public := api.PathPrefix("").Subrouter()
	public.Use(middleware.OptionalUserID)

	// Доступность слотов (с X-User-ID различаются свои и чужие даты)
	public.HandleFunc("/availability", getAvailability.Handle).Methods(http.MethodGet)

	// Настройки бронирования корта
	public.HandleFunc("/courts/{courtId}/settings", getCourtSettings.Handle).Methods(http.MethodGet)

	// Возврат пользователя от платежного провайдера
	public.HandleFunc("/payments/return", paymentReturn.Handle).Methods(http.MethodGet)

	// Вебхук провайдера (проверка подписи внутри)
	public.HandleFunc("/payments/webhook", paymentWebhook.Handle).Methods(http.MethodPost)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Бронирования ---
	// Создание бронирования
	protected.HandleFunc("/reservations", createReservation.Handle).Methods(http.MethodPost)

	// Получение бронирования по ID
	protected.HandleFunc("/reservations/{reservationId}", getReservation.Handle).Methods(http.MethodGet)

	// Отмена бронирования
	protected.HandleFunc("/reservations/{reservationId}/cancel", cancelReservation.Handle).Methods(http.MethodPost)

	// История бронирований пользователя
	protected.HandleFunc("/users/{userId}/reservations", getUserReservations.Handle).Methods(http.MethodGet)

	// --- Управление кортом (для владельцев) ---
	// Список бронирований корта
	protected.HandleFunc("/courts/{courtId}/reservations", getCourtReservations.Handle).Methods(http.MethodGet)

	// Обновление настроек бронирования корта
	protected.HandleFunc("/courts/{courtId}/settings", updateCourtSettings.Handle).Methods(http.MethodPut)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Дожидаемся текущего прохода сверки
	if err := scheduler.Stop(); err != nil {
		log.Error("Scheduler stopped with error: %v", err)
	}

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	log.Info("Server stopped gracefully")
}
