package store

import (
	"context"

	"github.com/annel0/starforge/internal/level"
)

// LevelRepo определяет интерфейс долговременного хранения документов уровня.
// Семантика key-value: строковый ключ (id уровня), JSON-сериализуемое
// значение, без транзакций между ключами.
type LevelRepo interface {
	// List возвращает сводки всех сохранённых уровней.
	// Порядок не специфицирован; вызывающие сортируют сами.
	List(ctx context.Context) ([]level.Summary, error)

	// Get загружает документ по id.
	// Возвращает ErrNotFound, если запись отсутствует.
	Get(ctx context.Context, id string) (*level.Document, error)

	// Put сохраняет документ под указанным id (создание или перезапись).
	Put(ctx context.Context, id string, doc *level.Document) error

	// Delete удаляет запись (для админ-операций и тестов).
	Delete(ctx context.Context, id string) error

	// Close закрывает соединение с хранилищем.
	Close() error
}
