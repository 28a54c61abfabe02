package level

import (
	"time"

	"github.com/annel0/starforge/internal/vec"
	"github.com/google/uuid"
)

// DefaultPlayerStart — позиция, в которой синтезируется стартовая точка
// игрока, если автор уровня её не разместил.
var DefaultPlayerStart = vec.Vec2F{X: 0, Y: 256}

// LevelSettings — настройки уровня, задаваемые автором.
type LevelSettings struct {
	Name              string  `json:"name"`
	Author            string  `json:"author"`
	Difficulty        int     `json:"difficulty"` // 1–5
	BackgroundSpeed   float64 `json:"background_speed"`
	BackgroundTexture string  `json:"background_texture"`
	MusicTrack        string  `json:"music_track"`
	Description       string  `json:"description,omitempty"`
	Version           int     `json:"version"`
}

// LevelMetadata — служебные метаданные документа.
type LevelMetadata struct {
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
	Version      int       `json:"version"`
}

// PublishState — состояние публикации уровня на внешней платформе.
type PublishState struct {
	IsPublished bool   `json:"is_published"`
	PublishID   string `json:"publish_id,omitempty"`
	Permalink   string `json:"permalink,omitempty"`
}

// Document — персистентная единица: уровень со всеми сущностями.
// ID назначается при первом успешном сохранении и после этого неизменен:
// один логический уровень — один id, навсегда.
type Document struct {
	ID           string        `json:"id,omitempty"`
	Settings     LevelSettings `json:"settings"`
	Entities     []Entity      `json:"entities"` // порядок вставки
	Metadata     LevelMetadata `json:"metadata"`
	PublishState PublishState  `json:"publish_state"`
}

// Summary — облегчённое представление для списков уровней.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
	IsPublished  bool      `json:"is_published"`
	PublishID    string    `json:"publish_id,omitempty"`
}

// Summary строит сводку по документу.
func (d *Document) Summary() Summary {
	return Summary{
		ID:           d.ID,
		Name:         d.Settings.Name,
		LastModified: d.Metadata.LastModified,
		IsPublished:  d.PublishState.IsPublished,
		PublishID:    d.PublishState.PublishID,
	}
}

// ClampDifficulty приводит сложность к диапазону [1, 5].
func ClampDifficulty(d int) int {
	if d < 1 {
		return 1
	}
	if d > 5 {
		return 5
	}
	return d
}

// EnsurePlayerStart гарантирует инвариант «ровно одна стартовая точка».
// Лишние player_start удаляются (остаётся первая по порядку вставки);
// при полном отсутствии синтезируется новая в точке fallback.
// Возвращает true, если список сущностей был изменён.
func EnsurePlayerStart(doc *Document, fallback vec.Vec2F) bool {
	changed := false
	seen := false

	kept := doc.Entities[:0]
	for _, e := range doc.Entities {
		if e.Kind == KindPlayerStart {
			if seen {
				changed = true
				continue
			}
			seen = true
		}
		kept = append(kept, e)
	}
	doc.Entities = kept

	if !seen {
		doc.Entities = append(doc.Entities, NewEntity(KindPlayerStart, fallback))
		changed = true
	}
	return changed
}

// CountKind возвращает число сущностей указанного вида.
func (d *Document) CountKind(kind EntityKind) int {
	n := 0
	for i := range d.Entities {
		if d.Entities[i].Kind == kind {
			n++
		}
	}
	return n
}

// Validate проверяет документ перед сохранением.
func (d *Document) Validate() error {
	for i := range d.Entities {
		if err := d.Entities[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// newDocument создаёт пустой in-memory документ с незаполненным ID.
func newDocument(settings LevelSettings) *Document {
	now := time.Now().UTC()
	settings.Difficulty = ClampDifficulty(settings.Difficulty)
	if settings.Version == 0 {
		settings.Version = 1
	}
	return &Document{
		Settings: settings,
		Entities: []Entity{},
		Metadata: LevelMetadata{
			CreatedAt:    now,
			LastModified: now,
			Version:      0,
		},
	}
}

// NewEntityID возвращает новый уникальный идентификатор сущности.
// Выделено для тестов и внешних конструкторов.
func NewEntityID() string { return uuid.NewString() }
