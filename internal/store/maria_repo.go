package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/starforge/internal/level"
	_ "github.com/go-sql-driver/mysql"
)

// MariaLevelRepo реализует LevelRepo для базы данных MariaDB/MySQL.
// Использует таблицу editor_levels: документ хранится JSON-колонкой,
// сводочные поля вынесены в отдельные колонки для быстрого листинга.
type MariaLevelRepo struct {
	db *sql.DB
}

// NewMariaLevelRepo создает новый репозиторий уровней для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
//
// Возвращает:
//
//	*MariaLevelRepo - экземпляр репозитория
//	error - ошибка при подключении или создании таблицы
func NewMariaLevelRepo(dsn string) (*MariaLevelRepo, error) {
	db, err := sql.Open("mysql", dsn+"?parseTime=true")
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaLevelRepo{db: db}

	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу editor_levels, если она не существует.
func (r *MariaLevelRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS editor_levels (
			id            VARCHAR(64)  PRIMARY KEY,
			name          VARCHAR(255) NOT NULL,
			last_modified TIMESTAMP(6) NOT NULL,
			is_published  TINYINT(1)   NOT NULL DEFAULT 0,
			publish_id    VARCHAR(64),
			document      MEDIUMTEXT   NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	_, err := r.db.Exec(query)
	return err
}

// Put сохраняет документ уровня (INSERT ... ON DUPLICATE KEY UPDATE).
func (r *MariaLevelRepo) Put(ctx context.Context, id string, doc *level.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	query := `
		INSERT INTO editor_levels (id, name, last_modified, is_published, publish_id, document)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			last_modified = VALUES(last_modified),
			is_published = VALUES(is_published),
			publish_id = VALUES(publish_id),
			document = VALUES(document)
	`
	_, err = r.db.ExecContext(ctx, query,
		id,
		doc.Settings.Name,
		doc.Metadata.LastModified,
		doc.PublishState.IsPublished,
		nullable(doc.PublishState.PublishID),
		string(raw),
	)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}

// Get загружает документ уровня по id.
func (r *MariaLevelRepo) Get(ctx context.Context, id string) (*level.Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM editor_levels WHERE id = ?`, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}

	var doc level.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return &doc, nil
}

// List строит сводки по индексированным колонкам.
func (r *MariaLevelRepo) List(ctx context.Context) ([]level.Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, last_modified, is_published, COALESCE(publish_id, '') FROM editor_levels`)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	summaries := make([]level.Summary, 0)
	for rows.Next() {
		var s level.Summary
		var lastModified time.Time
		if err := rows.Scan(&s.ID, &s.Name, &lastModified, &s.IsPublished, &s.PublishID); err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		s.LastModified = lastModified
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return summaries, nil
}

// Delete удаляет запись уровня.
func (r *MariaLevelRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM editor_levels WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close закрывает соединение с базой.
func (r *MariaLevelRepo) Close() error {
	return r.db.Close()
}

// nullable превращает пустую строку в NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
