package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/starforge/internal/level"
	"github.com/annel0/starforge/internal/platform"
)

func newTestService(t *testing.T) (*Service, *platform.MemoryPublisher) {
	t.Helper()
	pub := platform.NewMemoryPublisher()
	svc := NewService(NewMemoryLevelRepo(), nil, pub)
	t.Cleanup(func() { svc.Close() })
	return svc, pub
}

func newTestDoc(t *testing.T, svc *Service) *level.Document {
	t.Helper()
	doc, err := svc.CreateFromTemplate(level.TemplateSkirmish, level.LevelSettings{
		Name:       "Тестовый уровень",
		Author:     "tester",
		Difficulty: 3,
	})
	require.NoError(t, err)
	return doc
}

// Save выделяет id один раз, дальше тот же документ сохраняется под ним.
func TestSaveIDStability(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)

	require.Empty(t, doc.ID, "id не должен существовать до первого сохранения")

	first, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, first, doc.ID, "Save обязан записать выданный id в документ")

	second, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second, "повторное сохранение не должно менять id")

	repo := svc.repo.(*MemoryLevelRepo)
	assert.Equal(t, 1, repo.Count(), "в хранилище должна быть одна запись")
}

func TestSaveLastModifiedStrictlyIncreases(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)

	_, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)
	prev := doc.Metadata.LastModified

	for i := 0; i < 5; i++ {
		_, err := svc.Save(ctx, doc, nil)
		require.NoError(t, err)
		require.True(t, doc.Metadata.LastModified.After(prev),
			"lastModified обязан строго расти: %v -> %v", prev, doc.Metadata.LastModified)
		prev = doc.Metadata.LastModified
	}

	assert.Equal(t, 6, doc.Metadata.Version)
}

func TestSaveExplicitIDConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)
	doc.ID = "level-a"

	_, err := svc.Save(ctx, doc, &SaveOptions{ID: "level-b"})
	require.Error(t, err, "конфликт явного id с id документа должен отклоняться")

	var serr *StorageError
	assert.True(t, errors.As(err, &serr))
}

func TestLoadNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Load(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetMetadata(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribeSavedAndUnsubscribe(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)

	var saved []string
	unsubscribe := svc.SubscribeSaved(func(id string) { saved = append(saved, id) })

	id, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)
	require.Equal(t, []string{id}, saved, "слушатель должен получить id синхронно")

	unsubscribe()
	_, err = svc.Save(ctx, doc, nil)
	require.NoError(t, err)
	assert.Len(t, saved, 1, "после отписки уведомления не приходят")
}

// Токен идемпотентности стабилен для неизменённого документа и меняется
// после сохранения.
func TestPublishTokenDerivation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)

	id, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)

	tok1 := PublishToken(id, doc.Metadata.LastModified)
	tok2 := PublishToken(id, doc.Metadata.LastModified)
	assert.Equal(t, tok1, tok2)

	_, err = svc.Save(ctx, doc, nil)
	require.NoError(t, err)
	tok3 := PublishToken(id, doc.Metadata.LastModified)
	assert.NotEqual(t, tok1, tok3, "новый снимок должен давать новый токен")
}

func TestPublishIdempotent(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)

	id, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)

	first, err := svc.Publish(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, first.PostID)
	require.NotEmpty(t, first.Permalink)

	// Повтор с тем же снимком: платформа дедуплицирует, сервис
	// трактует это как успех с прежним постом.
	second, err := svc.Publish(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.PostID, second.PostID)
	assert.Equal(t, 1, pub.PublishedCount(), "платформа должна была создать один пост")

	// Состояние публикации записано в документ.
	stored, err := svc.Load(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.PublishState.IsPublished)
	assert.Equal(t, first.PostID, stored.PublishState.PublishID)
}

// Фиксация состояния публикации не должна выглядеть как новое
// сохранение: слушатели сохранений молчат, lastModified не меняется.
func TestPublishDoesNotTouchSaveSignals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)

	id, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)
	savedAt := doc.Metadata.LastModified

	notified := 0
	defer svc.SubscribeSaved(func(string) { notified++ })()

	_, err = svc.Publish(ctx, id)
	require.NoError(t, err)

	assert.Zero(t, notified, "публикация не должна дёргать слушателей сохранений")

	stored, err := svc.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, savedAt, stored.Metadata.LastModified)
}

func TestPublishFailurePropagates(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)

	id, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)

	pub.FailNext = errors.New("платформа недоступна")
	_, err = svc.Publish(ctx, id)
	require.Error(t, err)

	var perr *PublishError
	assert.True(t, errors.As(err, &perr))

	stored, err := svc.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, stored.PublishState.IsPublished, "неудачная публикация не должна помечать уровень")
}

func TestDeleteInvalidatesListing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := newTestDoc(t, svc)

	id, err := svc.Save(ctx, doc, nil)
	require.NoError(t, err)

	summaries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	require.NoError(t, svc.Delete(ctx, id))

	summaries, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	assert.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)
}
