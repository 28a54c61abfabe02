package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/annel0/starforge/internal/level"
)

// MemoryLevelRepo реализует LevelRepo в памяти.
// Используется как fallback, когда BadgerDB недоступна,
// и для CI/локальной разработки без диска.
// ВНИМАНИЕ: Данные теряются при перезапуске процесса!
type MemoryLevelRepo struct {
	mu   sync.RWMutex
	data map[string][]byte // id -> JSON документа
}

// NewMemoryLevelRepo создаёт новый репозиторий уровней в памяти.
func NewMemoryLevelRepo() *MemoryLevelRepo {
	return &MemoryLevelRepo{
		data: make(map[string][]byte),
	}
}

// List возвращает сводки всех уровней.
func (r *MemoryLevelRepo) List(ctx context.Context) ([]level.Summary, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]level.Summary, 0, len(r.data))
	for id, raw := range r.data {
		var doc level.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, &StorageError{Op: "list", Err: fmt.Errorf("повреждённая запись %s: %w", id, err)}
		}
		summaries = append(summaries, doc.Summary())
	}
	return summaries, nil
}

// Get загружает документ по id.
func (r *MemoryLevelRepo) Get(ctx context.Context, id string) (*level.Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	raw, exists := r.data[id]
	r.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	var doc level.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return &doc, nil
}

// Put сохраняет документ под указанным id.
func (r *MemoryLevelRepo) Put(ctx context.Context, id string, doc *level.Document) error {
	if id == "" {
		return &StorageError{Op: "save", Err: fmt.Errorf("пустой id уровня")}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	r.mu.Lock()
	r.data[id] = raw
	r.mu.Unlock()
	return nil
}

// Delete удаляет запись.
func (r *MemoryLevelRepo) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[id]; !exists {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// Close освобождает ресурсы (для памяти — no-op).
func (r *MemoryLevelRepo) Close() error { return nil }

// Count возвращает число сохранённых уровней (для отладки и тестов).
func (r *MemoryLevelRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
