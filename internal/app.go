package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"oikotie-parser-service/internal/adapters/filestorage"
	logger_adapter "oikotie-parser-service/internal/adapters/logger"
	"oikotie-parser-service/internal/adapters/oikotiefetcher"
	postgres_adapter "oikotie-parser-service/internal/adapters/postgres"
	rabbitmq_adapter "oikotie-parser-service/internal/adapters/rabbitmq"
	"oikotie-parser-service/internal/configs"
	"oikotie-parser-service/internal/constants"
	"oikotie-parser-service/internal/contextkeys"
	"oikotie-parser-service/internal/core/domain"
	"oikotie-parser-service/internal/core/port"
	usecases_port "oikotie-parser-service/internal/core/port/usecases"
	"oikotie-parser-service/internal/core/usecase"
	fluentlogger "oikotie-parser-service/pkg/fluent_logger"
	"oikotie-parser-service/pkg/postgres"
	"oikotie-parser-service/pkg/rabbitmq/rabbitmq_common"
	"oikotie-parser-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App – структура приложения
type App struct {
	config        *configs.AppConfig
	dbPool        *pgxpool.Pool
	connManager   *rabbitmq_common.ConnectionManager
	eventProducer *rabbitmq_producer.Publisher
	fluentClient  *fluent.Fluent
	logger        port.LoggerPort

	collectListings usecases_port.CollectListingsPort
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	application := &App{config: appConfig}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   appConfig.StdoutLogger.IsJSON,
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	if appConfig.FluentBit.Enabled {
		fluentClient, err := fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
			Async:     true,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}
		application.fluentClient = fluentClient

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			application.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		application.Close()
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	// --- 2. БАЗОВЫЙ ЛОГГЕР ПРИЛОЖЕНИЯ ---
	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	application.logger = appLogger

	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	// --- 3. НЕОБЯЗАТЕЛЬНЫЕ ВЫХОДНЫЕ АДАПТЕРЫ ---
	var journal port.RunJournalPort
	if appConfig.Database.URL != "" {
		dbPool, err := postgres.NewClient(context.Background(), postgres.Config{
			DatabaseURL:    appConfig.Database.URL,
			MaxConns:       2,
			ConnectTimeout: 10 * time.Second,
		})
		if err != nil {
			appLogger.Error("Failed to connect to PostgreSQL", err, nil)
			application.Close()
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		application.dbPool = dbPool

		pgJournal, err := postgres_adapter.NewPostgresRunJournal(dbPool)
		if err != nil {
			application.Close()
			return nil, err
		}
		if err := pgJournal.EnsureSchema(context.Background()); err != nil {
			appLogger.Error("Failed to prepare run journal schema", err, nil)
			application.Close()
			return nil, err
		}
		journal = pgJournal
		appLogger.Info("PostgreSQL run journal initialized.", nil)
	} else {
		appLogger.Debug("DATABASE_URL is not set, run journal disabled.", nil)
	}

	var notifier port.SnapshotNotifierPort
	if appConfig.RabbitMQ.URL != "" {
		connManagerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
		connManager, err := rabbitmq_common.NewManager(appConfig.RabbitMQ.URL, rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger))
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			application.Close()
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}
		application.connManager = connManager

		producerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})
		eventProducer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			ExchangeName:             constants.ParserExchange,
			ExchangeType:             "direct",
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			ConfirmPublish:           true,
			Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(producerLogger),
		}, connManager)
		if err != nil {
			appLogger.Error("Failed to create event producer", err, nil)
			application.Close()
			return nil, fmt.Errorf("failed to create event producer: %w", err)
		}
		application.eventProducer = eventProducer

		snapshotNotifier, err := rabbitmq_adapter.NewSnapshotNotifierAdapter(eventProducer, constants.RoutingKeySnapshotSaved)
		if err != nil {
			application.Close()
			return nil, err
		}
		notifier = snapshotNotifier
		appLogger.Info("RabbitMQ snapshot notifier initialized.", nil)
	} else {
		appLogger.Debug("RABBITMQ_URL is not set, snapshot notifications disabled.", nil)
	}

	// --- 4. ОСНОВНЫЕ АДАПТЕРЫ ---
	oikotieAdapter, err := oikotiefetcher.NewOikotieFetcherAdapter(oikotiefetcher.Config{
		BaseURL:        appConfig.Oikotie.BaseURL,
		RequestTimeout: appConfig.Oikotie.RequestTimeout,
	})
	if err != nil {
		appLogger.Error("Failed to create Oikotie Fetcher Adapter", err, nil)
		application.Close()
		return nil, fmt.Errorf("failed to initialize oikotie fetcher: %w", err)
	}

	snapshotWriter, err := filestorage.NewSnapshotWriterAdapter(
		appConfig.Storage.DataDir,
		constants.SnapshotPrefix,
		constants.SnapshotFileExt,
	)
	if err != nil {
		application.Close()
		return nil, fmt.Errorf("failed to initialize snapshot writer: %w", err)
	}
	appLogger.Info("All outgoing adapters initialized.", port.Fields{"data_dir": appConfig.Storage.DataDir})

	// --- 5. USE CASE ---
	application.collectListings = usecase.NewCollectListingsUseCase(
		oikotieAdapter,
		snapshotWriter,
		journal,
		notifier,
		usecase.CollectorSettings{
			BatchSize:    constants.MaxAdsRequest,
			RequestDelay: appConfig.Oikotie.RequestDelay,
			Locations:    constants.DefaultLocations,
		},
	)

	return application, nil
}

// Run выполняет один запуск сборщика и освобождает ресурсы.
// SIGINT/SIGTERM отменяют контекст: текущий запрос или пауза прерываются, снимок не пишется
func (a *App) Run(nAdverts int) error {
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = contextkeys.ContextWithLogger(ctx, a.logger)

	a.logger.Info("Application is starting...", port.Fields{"n_adverts": nAdverts})

	run, err := a.collectListings.Execute(ctx, domain.CollectRequest{AdsAmount: nAdverts})
	if err != nil {
		a.logger.Error("Collection run failed", err, nil)
		return err
	}

	a.logger.Info("Collection run finished", port.Fields{
		"run_id":    run.RunID.String(),
		"path":      run.FilePath,
		"collected": run.CollectedCount,
		"duration":  run.FinishedAt.Sub(run.StartedAt).String(),
	})
	return nil
}

// Close закрывает все открытые ресурсы. Повторный вызов безопасен
func (a *App) Close() {
	logf := func(msg string, err error) {
		if a.logger != nil {
			a.logger.Error(msg, err, nil)
			return
		}
		log.Printf("App: %s: %v\n", msg, err)
	}

	if a.eventProducer != nil {
		if err := a.eventProducer.Close(); err != nil {
			logf("Error closing event producer", err)
		}
		a.eventProducer = nil
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			logf("Error closing RabbitMQ connection manager", err)
		}
		a.connManager = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			log.Printf("App: Error closing fluent client: %v\n", err)
		}
		a.fluentClient = nil
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
