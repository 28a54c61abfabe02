package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/starforge/internal/api"
	"github.com/annel0/starforge/internal/auth"
	"github.com/annel0/starforge/internal/config"
	"github.com/annel0/starforge/internal/eventbus"
	"github.com/annel0/starforge/internal/logging"
	"github.com/annel0/starforge/internal/observability"
	"github.com/annel0/starforge/internal/platform"
	"github.com/annel0/starforge/internal/store"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или ENV EDITOR_CONFIG)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("editor-server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🛠 Запуск Starforge Level Editor Server...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	metricsPort := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	logging.Info("📡 Конфигурация сервера: REST API=%s, метрики=%s, хранилище=%s",
		restPort, metricsPort, storageBackend(cfg))

	if cfg.Auth.JWTSecret != "" {
		if err := auth.SetJWTSecret(cfg.Auth.JWTSecret); err != nil {
			logging.Error("❌ Неверный JWT секрет: %v", err)
			log.Fatalf("❌ Неверный JWT секрет: %v", err)
		}
	}

	// === TELEMETRY ===
	ctx := context.Background()
	shutdownTelemetry, err := observability.InitTelemetry(ctx, "starforge-editor")
	if err != nil {
		// Трассировка опциональна: без OTLP-коллектора сервер работает дальше.
		logging.Warn("OpenTelemetry не инициализирован: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := buildEventBus(cfg)
	if err != nil {
		logging.Error("❌ Ошибка создания шины событий: %v", err)
		log.Fatalf("❌ Ошибка создания шины событий: %v", err)
	}
	eventbus.Init(bus)
	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Слушатель логирования шины не запущен: %v", err)
	}

	exporter := eventbus.NewMetricsExporter(bus)
	exporter.StartHTTP(metricsPort)

	// === ХРАНИЛИЩЕ УРОВНЕЙ ===
	repo, err := buildLevelRepo(cfg)
	if err != nil {
		logging.Error("❌ Ошибка создания хранилища уровней: %v", err)
		log.Fatalf("❌ Ошибка создания хранилища уровней: %v", err)
	}

	var cache *store.SummaryCache
	if cfg.Cache.RedisAddr != "" {
		cache, err = store.NewSummaryCache(store.SummaryCacheConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		})
		if err != nil {
			logging.Warn("Redis-кеш сводок недоступен, работаем без кеша: %v", err)
			cache = nil
		}
	}

	publisher := buildPublisher(cfg)
	service := store.NewService(repo, cache, publisher)
	defer service.Close()

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:    restPort,
		Service: service,
		Admin: auth.AdminAccount{
			Username:     cfg.Auth.AdminUser,
			PasswordHash: cfg.Auth.AdminPasswordHash,
		},
	})

	go func() {
		if err := restServer.Start(); err != nil {
			logging.Error("❌ REST API завершился с ошибкой: %v", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", metricsPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)

	// Ждем сигнала для завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	exporter.Stop()
	if err := bus.Close(); err != nil {
		logging.Error("❌ Ошибка остановки шины событий: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки телеметрии: %v", err)
	}

	logging.Info("👋 Сервер редактора остановлен")
}

func storageBackend(cfg *config.Config) string {
	if cfg.Storage.Backend == "" {
		return "badger"
	}
	return cfg.Storage.Backend
}

// buildLevelRepo выбирает бэкенд хранилища по конфигурации.
func buildLevelRepo(cfg *config.Config) (store.LevelRepo, error) {
	switch storageBackend(cfg) {
	case "badger":
		path := cfg.Storage.DataPath
		if path == "" {
			path = "./data/levels"
		}
		return store.NewBadgerLevelRepo(path)
	case "memory":
		return store.NewMemoryLevelRepo(), nil
	case "mongo":
		return store.NewMongoLevelRepo(store.MongoConfig{
			URI:        cfg.Storage.MongoURI,
			Database:   "starforge",
			Collection: "levels",
		})
	case "maria":
		return store.NewMariaLevelRepo(cfg.Storage.MariaDSN)
	default:
		return nil, fmt.Errorf("неизвестный бэкенд хранилища: %q", cfg.Storage.Backend)
	}
}

// buildEventBus создает JetStream-шину, если настроен NATS, иначе in-memory.
func buildEventBus(cfg *config.Config) (eventbus.EventBus, error) {
	if cfg.EventBus.URL == "" {
		capacity := cfg.EventBus.Capacity
		if capacity <= 0 {
			capacity = 1024
		}
		return eventbus.NewMemoryBus(capacity), nil
	}

	retention := time.Duration(cfg.EventBus.Retention) * time.Hour
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
}

// buildPublisher возвращает HTTP-клиент платформы или in-memory заглушку,
// когда платформа не настроена (локальная разработка).
func buildPublisher(cfg *config.Config) platform.Publisher {
	if cfg.Platform.BaseURL == "" {
		logging.Warn("Платформа публикации не настроена, используется in-memory заглушка")
		return platform.NewMemoryPublisher()
	}
	timeout := time.Duration(cfg.Platform.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return platform.NewHTTPPublisher(cfg.Platform.BaseURL, timeout)
}
