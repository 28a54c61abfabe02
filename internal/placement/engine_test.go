package placement

import (
	"context"
	"testing"

	"github.com/annel0/starforge/internal/editor"
	"github.com/annel0/starforge/internal/level"
	"github.com/annel0/starforge/internal/platform"
	"github.com/annel0/starforge/internal/store"
	"github.com/annel0/starforge/internal/vec"
)

func newTestEngine(t *testing.T) (*Engine, *editor.State, *store.Service) {
	t.Helper()
	service := store.NewService(store.NewMemoryLevelRepo(), nil, platform.NewMemoryPublisher())
	t.Cleanup(func() { service.Close() })

	state := editor.NewState()
	engine := NewEngine(state, service, NewRegionRegistry())

	if err := engine.NewFromTemplate(level.TemplateEmpty, level.LevelSettings{Name: "тест"}); err != nil {
		t.Fatalf("Ошибка создания уровня: %v", err)
	}
	return engine, state, service
}

func click(e *Engine, pos vec.Vec2F) {
	e.HandlePointer(PointerEvent{Pos: pos, Button: ButtonPrimary, Phase: PhaseDown})
	e.HandlePointer(PointerEvent{Pos: pos, Button: ButtonPrimary, Phase: PhaseUp})
}

// Размещение в (100,100) при сетке 32 даёт узел (96,96); удаление
// кликом в тот же узел убирает сущность и чистит выделение.
func TestPlaceThenDeleteScenario(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	state.SetTool(editor.ToolPlace)
	state.SetPlacementKind("asteroid")
	click(engine, vec.Vec2F{X: 100, Y: 100})

	entities := engine.Entities()
	if len(entities) != 1 {
		t.Fatalf("Ожидалась одна сущность, получено %d", len(entities))
	}
	placed := entities[0]
	want := vec.Vec2F{X: 96, Y: 96}
	if placed.Position != want {
		t.Fatalf("Позиция после привязки: ожидалось %v, получено %v", want, placed.Position)
	}
	if !state.IsDirty() {
		t.Error("Размещение должно выставлять dirty")
	}

	state.SetTool(editor.ToolSelect)
	click(engine, vec.Vec2F{X: 96, Y: 96})
	if !state.IsSelected(placed.ID) {
		t.Error("Клик по сущности должен выбирать её")
	}

	state.SetTool(editor.ToolDelete)
	click(engine, vec.Vec2F{X: 96, Y: 96})
	if len(engine.Entities()) != 0 {
		t.Error("Сущность должна быть удалена")
	}
	if state.IsSelected(placed.ID) {
		t.Error("Удаление должно снимать выделение")
	}
}

func TestSnapDisabledPlacesExact(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	state.SetSnap(false)
	state.SetTool(editor.ToolPlace)
	state.SetPlacementKind("fighter")
	click(engine, vec.Vec2F{X: 101.5, Y: 99.25})

	entities := engine.Entities()
	if len(entities) != 1 {
		t.Fatalf("Ожидалась одна сущность, получено %d", len(entities))
	}
	want := vec.Vec2F{X: 101.5, Y: 99.25}
	if entities[0].Position != want {
		t.Errorf("Без привязки позиция должна быть точной: %v", entities[0].Position)
	}
}

func TestUnknownPaletteKeyIsNoop(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	state.SetTool(editor.ToolPlace)
	state.SetPlacementKind("death_star")
	click(engine, vec.Vec2F{X: 0, Y: 0})

	if len(engine.Entities()) != 0 {
		t.Error("Неизвестный ключ палитры не должен создавать сущность")
	}
}

// Жест, начатый над зарезервированной областью UI, подавляется целиком:
// клик по панели не доходит ни до одного инструмента.
func TestReservedRegionSuppressesGesture(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	engine.Regions().Register("palette", vec.Vec2F{X: 0, Y: 0}, vec.Vec2F{X: 64, Y: 600})

	state.SetTool(editor.ToolPlace)
	state.SetPlacementKind("asteroid")
	click(engine, vec.Vec2F{X: 32, Y: 300})
	if len(engine.Entities()) != 0 {
		t.Error("Клик по панели не должен размещать сущность")
	}

	// Скрытая панель перестаёт перехватывать жесты.
	engine.Regions().SetVisible("palette", false)
	click(engine, vec.Vec2F{X: 32, Y: 300})
	if len(engine.Entities()) != 1 {
		t.Error("Скрытая панель не должна блокировать размещение")
	}
}

func TestMoveToolDragsWithSnap(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	state.SetTool(editor.ToolPlace)
	state.SetPlacementKind("asteroid")
	click(engine, vec.Vec2F{X: 96, Y: 96})
	id := engine.Entities()[0].ID

	state.SetDirty(false)
	state.SetTool(editor.ToolMove)
	engine.HandlePointer(PointerEvent{Pos: vec.Vec2F{X: 96, Y: 96}, Phase: PhaseDown})
	engine.HandlePointer(PointerEvent{Pos: vec.Vec2F{X: 200, Y: 130}, Phase: PhaseMove})
	engine.HandlePointer(PointerEvent{Pos: vec.Vec2F{X: 200, Y: 130}, Phase: PhaseUp})

	moved := engine.Entities()[0]
	if moved.ID != id {
		t.Fatal("Перетаскивание не должно менять id сущности")
	}
	want := vec.Vec2F{X: 192, Y: 128}
	if moved.Position != want {
		t.Errorf("Позиция после перетаскивания: ожидалось %v, получено %v", want, moved.Position)
	}
	if !state.IsDirty() {
		t.Error("Перетаскивание должно выставлять dirty")
	}
}

func TestMiddleButtonPansCamera(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	state.SetTool(editor.ToolPlace) // панорамирование средней кнопкой работает при любом инструменте
	engine.HandlePointer(PointerEvent{Pos: vec.Vec2F{X: 100, Y: 100}, Button: ButtonMiddle, Phase: PhaseDown})
	engine.HandlePointer(PointerEvent{Pos: vec.Vec2F{X: 140, Y: 90}, Button: ButtonMiddle, Phase: PhaseMove})
	engine.HandlePointer(PointerEvent{Pos: vec.Vec2F{X: 140, Y: 90}, Button: ButtonMiddle, Phase: PhaseUp})

	want := vec.Vec2F{X: -40, Y: 10}
	if state.CameraScroll() != want {
		t.Errorf("Скролл камеры: ожидалось %v, получено %v", want, state.CameraScroll())
	}
	if len(engine.Entities()) != 0 {
		t.Error("Панорамирование не должно размещать сущности")
	}
}

func TestHitTestTopmostWins(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	state.SetTool(editor.ToolPlace)
	state.SetPlacementKind("asteroid")
	click(engine, vec.Vec2F{X: 96, Y: 96})
	click(engine, vec.Vec2F{X: 96, Y: 96}) // вторая поверх первой

	entities := engine.Entities()
	if len(entities) != 2 {
		t.Fatalf("Ожидались две сущности, получено %d", len(entities))
	}

	hit, ok := engine.HitTest(vec.Vec2F{X: 96, Y: 96})
	if !ok {
		t.Fatal("Hit-test не нашёл сущность")
	}
	if hit.ID != entities[1].ID {
		t.Error("Hit-test должен возвращать позже размещённую сущность")
	}
}

// Сохранение принимает id, выданный хранилищем, синтезирует точку
// старта и сбрасывает dirty; содержимое остаётся в памяти при ошибке.
func TestSaveProgress(t *testing.T) {
	engine, state, service := newTestEngine(t)
	ctx := context.Background()

	state.SetTool(editor.ToolPlace)
	state.SetPlacementKind("fighter")
	click(engine, vec.Vec2F{X: 160, Y: 160})

	id, err := engine.SaveProgress(ctx)
	if err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}
	if id == "" {
		t.Fatal("Сохранение должно вернуть id")
	}
	if state.CurrentLevelID() != id {
		t.Errorf("Сессия должна принять id хранилища: %s != %s", state.CurrentLevelID(), id)
	}
	if state.IsDirty() {
		t.Error("Сохранение должно сбрасывать dirty")
	}

	doc, err := service.Load(ctx, id)
	if err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}
	if doc.CountKind(level.KindPlayerStart) != 1 {
		t.Errorf("После сохранения должна быть ровно одна точка старта, получено %d",
			doc.CountKind(level.KindPlayerStart))
	}

	// Повторное сохранение не меняет id.
	state.SetDirty(true)
	again, err := engine.SaveProgress(ctx)
	if err != nil {
		t.Fatalf("Ошибка повторного сохранения: %v", err)
	}
	if again != id {
		t.Errorf("Повторное сохранение сменило id: %s -> %s", id, again)
	}
}

func TestSaveProgressWithoutDocumentCreatesDefault(t *testing.T) {
	service := store.NewService(store.NewMemoryLevelRepo(), nil, platform.NewMemoryPublisher())
	defer service.Close()

	state := editor.NewState()
	engine := NewEngine(state, service, nil)

	id, err := engine.SaveProgress(context.Background())
	if err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}

	doc, err := service.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}
	if doc.CountKind(level.KindPlayerStart) != 1 {
		t.Error("Дефолтный документ должен получить точку старта")
	}
}

func TestGridLinesRecomputeOnCoarseScrollChange(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	engine.SetViewport(800, 600)

	first := engine.GridLines()
	if len(first) == 0 {
		t.Fatal("Ожидались линии сетки")
	}

	// Субпиксельный сдвиг камеры не должен менять кеш.
	state.PanCamera(vec.Vec2F{X: 0.25, Y: 0})
	second := engine.GridLines()
	if &first[0] != &second[0] {
		t.Error("Субпиксельный сдвиг не должен перестраивать линии")
	}

	// Смена размера сетки перестраивает.
	state.SetGridSize(64)
	third := engine.GridLines()
	if len(third) == len(first) {
		t.Error("Смена размера сетки должна менять раскладку линий")
	}

	state.SetGridVisible(false)
	if engine.GridLines() != nil {
		t.Error("Скрытая сетка не должна отдавать линии")
	}
}
