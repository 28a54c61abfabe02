package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/annel0/starforge/internal/level"
	"github.com/annel0/starforge/internal/logging"
	"github.com/go-redis/redis/v8"
)

// Ключ, под которым в Redis лежит сериализованный список сводок.
const summaryCacheKey = "starforge:level_summaries"

// SummaryCache кеширует результат List() в Redis, чтобы браузер уровней
// не сканировал хранилище на каждый запрос. Инвалидация — при любом
// успешном сохранении/публикации/удалении. Кеш опционален: nil-кеш
// прозрачен для Service.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// SummaryCacheConfig — настройки подключения к Redis.
type SummaryCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewSummaryCache подключается к Redis и проверяет соединение.
func NewSummaryCache(cfg SummaryCacheConfig) (*SummaryCache, error) {
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &SummaryCache{client: client, ttl: cfg.TTL}, nil
}

// Get возвращает кешированные сводки; (nil, false) при промахе.
// Ошибки Redis деградируют в промах — кеш не должен ломать листинг.
func (c *SummaryCache) Get(ctx context.Context) ([]level.Summary, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, summaryCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logging.Warn("SummaryCache: ошибка чтения: %v", err)
		return nil, false
	}

	var summaries []level.Summary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		logging.Warn("SummaryCache: повреждённая запись: %v", err)
		return nil, false
	}
	return summaries, true
}

// Set сохраняет сводки с настроенным TTL.
func (c *SummaryCache) Set(ctx context.Context, summaries []level.Summary) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(summaries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryCacheKey, raw, c.ttl).Err(); err != nil {
		logging.Warn("SummaryCache: ошибка записи: %v", err)
	}
}

// Invalidate сбрасывает кеш (после save/publish/delete).
func (c *SummaryCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, summaryCacheKey).Err(); err != nil {
		logging.Warn("SummaryCache: ошибка инвалидации: %v", err)
	}
}

// Close закрывает соединение с Redis.
func (c *SummaryCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
