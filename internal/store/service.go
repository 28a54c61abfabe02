package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/starforge/internal/eventbus"
	"github.com/annel0/starforge/internal/level"
	"github.com/annel0/starforge/internal/logging"
	"github.com/annel0/starforge/internal/platform"
	"github.com/google/uuid"
)

// SavedListener вызывается синхронно после каждого успешного сохранения.
// Ворота верификации используют его для сброса устаревшего «passed».
type SavedListener func(levelID string)

// SaveOptions — необязательные параметры сохранения.
type SaveOptions struct {
	ID string // явный id записи; приоритетнее doc.ID
}

// Service — сервис долговременных уровней: идентичность документов,
// CRUD и действие публикации. Инвариант идентичности: один логический
// уровень — один id; Save никогда не выделяет второй id документу,
// у которого id уже есть, и всегда возвращает фактически использованный id.
type Service struct {
	repo      LevelRepo
	cache     *SummaryCache
	publisher platform.Publisher
	logger    *logging.Logger

	mu             sync.Mutex
	savedListeners map[int]SavedListener
	nextListenerID int

	// Публикации сериализуются по id уровня, чтобы повтор не
	// перезаписал состояние публикации более старым снимком.
	publishLocks sync.Map // levelID -> *sync.Mutex
}

// NewService собирает сервис уровней. cache и publisher могут быть nil
// (кеш прозрачно выключен; публикация вернёт ошибку конфигурации).
func NewService(repo LevelRepo, cache *SummaryCache, publisher platform.Publisher) *Service {
	return &Service{
		repo:           repo,
		cache:          cache,
		publisher:      publisher,
		logger:         logging.GetStoreLogger(),
		savedListeners: make(map[int]SavedListener),
	}
}

// CreateFromTemplate возвращает новый in-memory документ по шаблону.
// ID документа не заполнен до первого сохранения.
func (s *Service) CreateFromTemplate(templateID string, settings level.LevelSettings) (*level.Document, error) {
	return level.FromTemplate(templateID, settings)
}

// Save сохраняет документ и возвращает фактически использованный id.
// Вызывающие обязаны заменить свою локальную ссылку возвращённым id.
// metadata.LastModified строго растёт от сохранения к сохранению.
func (s *Service) Save(ctx context.Context, doc *level.Document, opts *SaveOptions) (string, error) {
	if doc == nil {
		return "", &StorageError{Op: "save", Err: fmt.Errorf("nil документ")}
	}
	if err := doc.Validate(); err != nil {
		return "", &StorageError{Op: "save", Err: err}
	}

	id := doc.ID
	if opts != nil && opts.ID != "" {
		if id != "" && id != opts.ID {
			return "", &StorageError{Op: "save", Err: fmt.Errorf(
				"конфликт id: документ %s сохраняется под %s", id, opts.ID)}
		}
		id = opts.ID
	}
	if id == "" {
		id = uuid.NewString()
	}
	doc.ID = id

	// LastModified строго растёт даже при двух сохранениях в один тик часов.
	now := time.Now().UTC()
	if !now.After(doc.Metadata.LastModified) {
		now = doc.Metadata.LastModified.Add(time.Microsecond)
	}
	if doc.Metadata.CreatedAt.IsZero() {
		doc.Metadata.CreatedAt = now
	}
	doc.Metadata.LastModified = now
	doc.Metadata.Version++
	doc.Settings.Difficulty = level.ClampDifficulty(doc.Settings.Difficulty)

	if err := s.repo.Put(ctx, id, doc); err != nil {
		return "", err
	}

	s.cache.Invalidate(ctx)
	s.notifySaved(id)
	_ = eventbus.PublishLevelEvent(ctx, "store", eventbus.EventLevelSaved, id, nil)
	s.logger.Debug("Уровень сохранён: id=%s version=%d entities=%d", id, doc.Metadata.Version, len(doc.Entities))

	return id, nil
}

// Load загружает документ. Отсутствие — обычный результат (ErrNotFound).
func (s *Service) Load(ctx context.Context, id string) (*level.Document, error) {
	return s.repo.Get(ctx, id)
}

// List возвращает сводки всех уровней (из кеша, если он тёплый).
func (s *Service) List(ctx context.Context) ([]level.Summary, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	summaries, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, summaries)
	return summaries, nil
}

// GetMetadata возвращает сводку одного уровня или ErrNotFound.
func (s *Service) GetMetadata(ctx context.Context, id string) (level.Summary, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return level.Summary{}, err
	}
	return doc.Summary(), nil
}

// Delete удаляет уровень (админ-операция).
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// PublishToken выводит стабильный клиентский токен идемпотентности
// из (id, lastModified): неизменённый документ даёт тот же токен.
func PublishToken(id string, lastModified time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", id, lastModified.UnixNano())))
	return hex.EncodeToString(sum[:])
}

// Publish отправляет сохранённый документ платформе и фиксирует результат.
// Повтор токена платформой трактуется как успех. Вызовы для одного id
// сериализуются; перекрывающиеся публикации разных снимков не допускаются.
func (s *Service) Publish(ctx context.Context, id string) (platform.PublishResult, error) {
	if s.publisher == nil {
		return platform.PublishResult{}, &PublishError{Err: fmt.Errorf("платформа публикации не настроена")}
	}

	lockAny, _ := s.publishLocks.LoadOrStore(id, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return platform.PublishResult{}, err
	}

	levelData, err := json.Marshal(doc)
	if err != nil {
		return platform.PublishResult{}, &PublishError{Err: fmt.Errorf("сериализация уровня: %w", err)}
	}

	req := platform.PublishRequest{
		LevelID:            id,
		Name:               doc.Settings.Name,
		Description:        doc.Settings.Description,
		AuthorDisplay:      doc.Settings.Author,
		LevelData:          levelData,
		ClientPublishToken: PublishToken(id, doc.Metadata.LastModified),
	}

	result, err := s.publisher.Publish(ctx, req)
	if err != nil && !errors.Is(err, platform.ErrDuplicateToken) {
		return platform.PublishResult{}, &PublishError{Err: err}
	}
	if errors.Is(err, platform.ErrDuplicateToken) {
		s.logger.Info("Публикация уровня %s: повтор токена, пост уже существует (%s)", id, result.PostID)
	}

	doc.PublishState = level.PublishState{
		IsPublished: true,
		PublishID:   result.PostID,
		Permalink:   result.Permalink,
	}
	// Фиксация состояния публикации не трогает LastModified: содержимое
	// уровня не менялось, и токен следующей публикации должен совпасть.
	if err := s.repo.Put(ctx, id, doc); err != nil {
		s.logger.Error("Публикация %s состоялась (post=%s), но запись состояния не удалась: %v",
			id, result.PostID, err)
	}
	s.cache.Invalidate(ctx)
	_ = eventbus.PublishLevelEvent(ctx, "store", eventbus.EventLevelPublished, id, []byte(result.PostID))

	return result, nil
}

// SubscribeSaved регистрирует синхронный слушатель успешных сохранений.
// Возвращает функцию отписки.
func (s *Service) SubscribeSaved(fn SavedListener) func() {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.savedListeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.savedListeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) notifySaved(levelID string) {
	s.mu.Lock()
	listeners := make([]SavedListener, 0, len(s.savedListeners))
	for _, fn := range s.savedListeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(levelID)
	}
}

// Close закрывает репозиторий и кеш.
func (s *Service) Close() error {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	return s.repo.Close()
}
