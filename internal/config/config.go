package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации editor-server.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	EventBus EventBusConfig `yaml:"eventbus"`
	Cache    CacheConfig    `yaml:"cache"`
	Platform PlatformConfig `yaml:"platform"`
	Harness  HarnessConfig  `yaml:"harness"`
	Editor   EditorConfig   `yaml:"editor"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
}

// StorageConfig выбирает бэкенд хранилища уровней.
type StorageConfig struct {
	Backend  string `yaml:"backend"`   // badger | memory | mongo | maria
	DataPath string `yaml:"data_path"` // каталог BadgerDB
	MongoURI string `yaml:"mongo_uri"`
	MariaDSN string `yaml:"maria_dsn"`
}

// EventBusConfig настраивает шину событий редактора.
type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто — in-memory шина
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Capacity  int    `yaml:"capacity"`
}

// CacheConfig настраивает Redis-кеш сводок уровней.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"` // пусто — кеш выключен
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
}

// PlatformConfig описывает внешнюю платформу публикации.
type PlatformConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// HarnessConfig описывает подключение к внешнему игровому симулятору.
type HarnessConfig struct {
	Addr string `yaml:"addr"` // kcp-адрес процесса симуляции
}

// EditorConfig содержит настройки сессии редактора.
type EditorConfig struct {
	GridSize    int    `yaml:"grid_size"`
	SnapEnabled *bool  `yaml:"snap_enabled"`
	GridVisible *bool  `yaml:"grid_visible"`
	Author      string `yaml:"author"`
}

// ServerConfig содержит порты служебных HTTP-серверов.
type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// AuthConfig содержит данные администратора REST API.
type AuthConfig struct {
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"` // bcrypt
	JWTSecret         string `yaml:"jwt_secret"`
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "EDITOR_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "EDITOR_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV EDITOR_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("EDITOR_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
