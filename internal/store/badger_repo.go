package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/annel0/starforge/internal/level"
	"github.com/dgraph-io/badger/v3"
)

// Префикс ключей документов уровня в BadgerDB.
const levelKeyPrefix = "level:"

// BadgerLevelRepo — дефолтный долговременный LevelRepo поверх BadgerDB.
// Значения — zstd-сжатый JSON документа, ключи — "level:<id>".
type BadgerLevelRepo struct {
	db      *badger.DB
	dbPath  string
	codec   *codec
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerLevelRepo открывает (или создаёт) хранилище уровней в dataPath.
func NewBadgerLevelRepo(dataPath string) (*BadgerLevelRepo, error) {
	dbPath := filepath.Join(dataPath, "levels")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	c, err := newCodec()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BadgerLevelRepo{
		db:      db,
		dbPath:  dbPath,
		codec:   c,
		isReady: true,
	}, nil
}

// Close закрывает хранилище.
func (r *BadgerLevelRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	r.codec.close()
	return r.db.Close()
}

func levelKey(id string) []byte {
	return []byte(levelKeyPrefix + id)
}

// Put сохраняет документ уровня.
func (r *BadgerLevelRepo) Put(ctx context.Context, id string, doc *level.Document) error {
	if id == "" {
		return &StorageError{Op: "save", Err: fmt.Errorf("пустой id уровня")}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return &StorageError{Op: "save", Err: fmt.Errorf("хранилище не готово")}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return &StorageError{Op: "save", Err: fmt.Errorf("ошибка сериализации документа: %w", err)}
	}

	compressed := r.codec.compress(raw)

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(levelKey(id), compressed)
	})
	if err != nil {
		return &StorageError{Op: "save", Err: fmt.Errorf("ошибка записи в BadgerDB: %w", err)}
	}
	return nil
}

// Get загружает документ уровня по id.
// Отсутствие записи — обычный результат: возвращается ErrNotFound.
func (r *BadgerLevelRepo) Get(ctx context.Context, id string) (*level.Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, &StorageError{Op: "get", Err: fmt.Errorf("хранилище не готово")}
	}

	var stored []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(levelKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			stored = append([]byte{}, val...)
			return nil
		})
	})

	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: fmt.Errorf("ошибка чтения из BadgerDB: %w", err)}
	}

	raw, err := r.codec.decompress(stored)
	if err != nil {
		return nil, &StorageError{Op: "get", Err: fmt.Errorf("ошибка распаковки документа: %w", err)}
	}

	var doc level.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &StorageError{Op: "get", Err: fmt.Errorf("ошибка десериализации документа: %w", err)}
	}
	return &doc, nil
}

// List перебирает все записи с префиксом level: и строит сводки.
func (r *BadgerLevelRepo) List(ctx context.Context) ([]level.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, &StorageError{Op: "list", Err: fmt.Errorf("хранилище не готово")}
	}

	summaries := make([]level.Summary, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(levelKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				raw, err := r.codec.decompress(val)
				if err != nil {
					return fmt.Errorf("запись %s: %w", item.Key(), err)
				}
				var doc level.Document
				if err := json.Unmarshal(raw, &doc); err != nil {
					return fmt.Errorf("запись %s: %w", item.Key(), err)
				}
				if doc.ID == "" {
					doc.ID = strings.TrimPrefix(string(item.Key()), levelKeyPrefix)
				}
				summaries = append(summaries, doc.Summary())
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return summaries, nil
}

// Delete удаляет запись уровня.
func (r *BadgerLevelRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return &StorageError{Op: "delete", Err: fmt.Errorf("хранилище не готово")}
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(levelKey(id)); err != nil {
			return err
		}
		return txn.Delete(levelKey(id))
	})
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}
