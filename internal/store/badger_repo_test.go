package store

import (
	"context"
	"testing"

	"github.com/annel0/starforge/internal/level"
	"github.com/annel0/starforge/internal/vec"
)

func newBadgerRepo(t *testing.T) *BadgerLevelRepo {
	t.Helper()
	repo, err := NewBadgerLevelRepo(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка открытия BadgerDB: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// Документ проходит через zstd-кодек и BadgerDB без потерь.
func TestBadgerRoundTrip(t *testing.T) {
	repo := newBadgerRepo(t)
	ctx := context.Background()

	doc, err := level.FromTemplate(level.TemplateAsteroidField, level.LevelSettings{
		Name:       "Пояс астероидов",
		Author:     "tester",
		Difficulty: 4,
	})
	if err != nil {
		t.Fatalf("Ошибка создания документа: %v", err)
	}
	doc.ID = "asteroids-1"

	if err := repo.Put(ctx, doc.ID, doc); err != nil {
		t.Fatalf("Ошибка записи: %v", err)
	}

	loaded, err := repo.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Ошибка чтения: %v", err)
	}

	if loaded.Settings.Name != doc.Settings.Name {
		t.Errorf("Потеряно имя: %q", loaded.Settings.Name)
	}
	if len(loaded.Entities) != len(doc.Entities) {
		t.Fatalf("Потеряны сущности: %d из %d", len(loaded.Entities), len(doc.Entities))
	}
	for i := range doc.Entities {
		if loaded.Entities[i].ID != doc.Entities[i].ID ||
			loaded.Entities[i].Kind != doc.Entities[i].Kind ||
			loaded.Entities[i].Position != doc.Entities[i].Position {
			t.Errorf("Сущность %d повреждена: %+v != %+v", i, loaded.Entities[i], doc.Entities[i])
		}
	}
}

func TestBadgerGetMissing(t *testing.T) {
	repo := newBadgerRepo(t)

	if _, err := repo.Get(context.Background(), "ghost"); err != ErrNotFound {
		t.Errorf("Ожидался ErrNotFound, получено %v", err)
	}
}

func TestBadgerDeleteSemantics(t *testing.T) {
	repo := newBadgerRepo(t)
	ctx := context.Background()

	doc, _ := level.FromTemplate(level.TemplateEmpty, level.LevelSettings{Name: "x"})
	doc.ID = "tmp"
	doc.Entities = append(doc.Entities, level.NewEntity(level.KindPlayerStart, vec.Vec2F{}))

	if err := repo.Put(ctx, doc.ID, doc); err != nil {
		t.Fatalf("Ошибка записи: %v", err)
	}
	if err := repo.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Ошибка удаления: %v", err)
	}
	if err := repo.Delete(ctx, doc.ID); err != ErrNotFound {
		t.Errorf("Повторное удаление: ожидался ErrNotFound, получено %v", err)
	}
}

func TestBadgerList(t *testing.T) {
	repo := newBadgerRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		doc, _ := level.FromTemplate(level.TemplateEmpty, level.LevelSettings{Name: "Уровень " + id})
		doc.ID = id
		if err := repo.Put(ctx, id, doc); err != nil {
			t.Fatalf("Ошибка записи %s: %v", id, err)
		}
	}

	summaries, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("Ошибка листинга: %v", err)
	}
	if len(summaries) != 3 {
		t.Errorf("Ожидались 3 сводки, получено %d", len(summaries))
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c, err := newCodec()
	if err != nil {
		t.Fatalf("Ошибка создания кодека: %v", err)
	}
	defer c.close()

	raw := []byte(`{"id":"x","entities":[{"kind":"obstacle"},{"kind":"obstacle"},{"kind":"obstacle"}]}`)
	compressed := c.compress(raw)
	restored, err := c.decompress(compressed)
	if err != nil {
		t.Fatalf("Ошибка распаковки: %v", err)
	}
	if string(restored) != string(raw) {
		t.Errorf("Раунд-трип кодека повредил данные: %q", restored)
	}
}
