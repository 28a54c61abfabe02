// Package placement превращает события указателя и активный инструмент
// редактора в мутации списка сущностей загруженного уровня и владеет
// жизненным циклом этого списка в редакторе (создание, перенос, удаление).
package placement

import (
	"context"
	"errors"

	"github.com/annel0/starforge/internal/editor"
	"github.com/annel0/starforge/internal/grid"
	"github.com/annel0/starforge/internal/level"
	"github.com/annel0/starforge/internal/logging"
	"github.com/annel0/starforge/internal/store"
	"github.com/annel0/starforge/internal/vec"
)

// Button — кнопка указателя.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
)

// Phase — фаза события указателя.
type Phase int

const (
	PhaseDown Phase = iota
	PhaseMove
	PhaseUp
)

// PointerEvent — событие указателя в экранных координатах.
type PointerEvent struct {
	Pos    vec.Vec2F
	Button Button
	Shift  bool
	Phase  Phase
}

// Engine — движок размещения: диспетчеризация по инструменту,
// hit-testing, подавление жестов над панелями UI, панорамирование
// камеры и сохранение прогресса.
type Engine struct {
	state   *editor.State
	service *store.Service
	regions *RegionRegistry
	logger  *logging.Logger

	doc *level.Document // редактируемый документ (nil до загрузки/создания)

	// Жест, начатый над зарезервированной областью, подавляется целиком.
	gestureSuppressed bool

	// Состояние перетаскивания (инструмент MOVE).
	dragID     string
	dragOffset vec.Vec2F
	dragging   bool

	// Состояние панорамирования.
	panning        bool
	panStartScreen vec.Vec2F
	panStartScroll vec.Vec2F

	// Призрачный предпросмотр для инструмента PLACE.
	ghostPos    vec.Vec2F
	ghostActive bool

	// Кеш линий сетки и параметры, при которых он был вычислен.
	gridLines      []grid.Line
	lastScrollInt  vec.Vec2
	lastGridSize   int
	lastGridShown  bool
	gridEverBuilt  bool
	viewportWidth  float64
	viewportHeight float64
}

// Настройки документа, создаваемого при первом сохранении без шаблона.
var defaultSettings = level.LevelSettings{
	Name:              "Без названия",
	Difficulty:        2,
	BackgroundSpeed:   1,
	BackgroundTexture: "stars_near",
	MusicTrack:        "theme_a",
}

// NewEngine собирает движок размещения для сессии редактора.
func NewEngine(state *editor.State, service *store.Service, regions *RegionRegistry) *Engine {
	if regions == nil {
		regions = NewRegionRegistry()
	}
	return &Engine{
		state:   state,
		service: service,
		regions: regions,
		logger:  logging.GetEditorLogger(),
	}
}

// Regions возвращает реестр зарезервированных областей (для UI-слоя).
func (e *Engine) Regions() *RegionRegistry { return e.regions }

// Document возвращает редактируемый документ (nil до загрузки).
func (e *Engine) Document() *level.Document { return e.doc }

// Entities возвращает текущий список сущностей.
func (e *Engine) Entities() []level.Entity {
	if e.doc == nil {
		return nil
	}
	return e.doc.Entities
}

// NewFromTemplate создаёт новый документ по шаблону и делает его текущим.
func (e *Engine) NewFromTemplate(templateID string, settings level.LevelSettings) error {
	doc, err := e.service.CreateFromTemplate(templateID, settings)
	if err != nil {
		return err
	}
	e.doc = doc
	e.state.ClearSelection()
	e.state.SetCurrentLevelID("") // id появится при первом сохранении
	return nil
}

// Load загружает уровень из хранилища и делает его текущим.
func (e *Engine) Load(ctx context.Context, id string) error {
	doc, err := e.service.Load(ctx, id)
	if err != nil {
		return err
	}
	e.doc = doc
	e.state.ClearSelection()
	e.state.SetCurrentLevelID(doc.ID)
	return nil
}

// HandlePointer обрабатывает событие указателя синхронно на вызывающем
// (входном) потоке; гонок между мутацией и чтением списка сущностей
// внутри сессии нет.
func (e *Engine) HandlePointer(ev PointerEvent) {
	switch ev.Phase {
	case PhaseDown:
		e.pointerDown(ev)
	case PhaseMove:
		e.pointerMove(ev)
	case PhaseUp:
		e.pointerUp(ev)
	}
}

// pointerDown — начало жеста. Проверка зарезервированных областей идёт
// первой и отсекает любую диспетчеризацию по инструменту: клик по кнопке
// панели не должен заодно ставить или удалять сущность под ней.
func (e *Engine) pointerDown(ev PointerEvent) {
	if e.regions.InsideAny(ev.Pos) {
		e.gestureSuppressed = true
		return
	}
	e.gestureSuppressed = false

	world := e.toWorld(ev.Pos)

	// Средняя кнопка панорамирует независимо от инструмента.
	if ev.Button == ButtonMiddle {
		e.beginPan(ev.Pos)
		return
	}

	switch e.state.Tool() {
	case editor.ToolSelect:
		e.selectAt(world, ev.Shift)
	case editor.ToolPlace:
		e.placeAt(world)
	case editor.ToolMove:
		e.beginMove(world)
	case editor.ToolDelete:
		e.deleteAt(world)
	case editor.ToolPan:
		e.beginPan(ev.Pos)
	}
}

func (e *Engine) pointerMove(ev PointerEvent) {
	if e.gestureSuppressed {
		return
	}

	if e.panning {
		delta := ev.Pos.Sub(e.panStartScreen)
		newScroll := e.panStartScroll.Sub(delta)
		e.state.PanCamera(newScroll.Sub(e.state.CameraScroll()))
		return
	}

	world := e.toWorld(ev.Pos)

	switch e.state.Tool() {
	case editor.ToolPlace:
		e.ghostPos = e.maybeSnap(world)
		e.ghostActive = true
	case editor.ToolMove:
		if e.dragging {
			e.moveDragged(world)
		}
	}
}

func (e *Engine) pointerUp(ev PointerEvent) {
	if e.gestureSuppressed {
		e.gestureSuppressed = false
		return
	}

	if e.panning {
		e.panning = false
		return
	}

	if e.dragging {
		// Финальная позиция уже записана в запись сущности на последнем
		// move; up только завершает перетаскивание.
		world := e.toWorld(ev.Pos)
		e.moveDragged(world)
		e.dragging = false
		e.dragID = ""
	}
}

// Ghost возвращает позицию призрачного предпросмотра и его активность.
func (e *Engine) Ghost() (vec.Vec2F, bool) {
	return e.ghostPos, e.ghostActive
}

// toWorld переводит экранную точку в мировую по текущей камере.
func (e *Engine) toWorld(screen vec.Vec2F) vec.Vec2F {
	return grid.ScreenToWorld(screen, e.state.CameraScroll(), e.state.CameraZoom())
}

// maybeSnap привязывает точку к сетке, если привязка включена.
func (e *Engine) maybeSnap(p vec.Vec2F) vec.Vec2F {
	if !e.state.SnapEnabled() {
		return p
	}
	return grid.Snap(p, e.state.GridSize())
}

// HitTest ищет верхнюю сущность под мировой точкой: перебор в обратном
// порядке вставки (позже размещённые «выше»), попадание — point-in-AABB.
// Первый матч побеждает; другого z-порядка нет.
func (e *Engine) HitTest(world vec.Vec2F) (*level.Entity, bool) {
	if e.doc == nil {
		return nil, false
	}
	for i := len(e.doc.Entities) - 1; i >= 0; i-- {
		if e.doc.Entities[i].Contains(world) {
			return &e.doc.Entities[i], true
		}
	}
	return nil, false
}

func (e *Engine) selectAt(world vec.Vec2F, additive bool) {
	if hit, ok := e.HitTest(world); ok {
		e.state.Select(hit.ID, additive)
		return
	}
	if !additive {
		e.state.ClearSelection()
	}
}

func (e *Engine) placeAt(world vec.Vec2F) {
	if e.doc == nil {
		e.logger.Warn("Размещение без загруженного уровня — игнорируется")
		return
	}

	key := e.state.PlacementKind()
	factory, ok := lookupPalette(key)
	if !ok {
		// Неизвестный вид — no-op с диагностикой, не падение.
		e.logger.Warn("Неизвестный ключ палитры: %q — размещение пропущено", key)
		return
	}

	pos := e.maybeSnap(world)
	entity := factory(pos)
	e.doc.Entities = append(e.doc.Entities, entity)
	e.state.SetDirty(true)
	e.logger.Debug("Размещена сущность %s (%s) в (%.0f, %.0f)", entity.ID, entity.Kind, pos.X, pos.Y)
}

func (e *Engine) beginMove(world vec.Vec2F) {
	hit, ok := e.HitTest(world)
	if !ok {
		return
	}
	e.dragging = true
	e.dragID = hit.ID
	e.dragOffset = hit.Position.Sub(world)
}

func (e *Engine) moveDragged(world vec.Vec2F) {
	if e.doc == nil || e.dragID == "" {
		return
	}
	for i := range e.doc.Entities {
		if e.doc.Entities[i].ID == e.dragID {
			e.doc.Entities[i].Position = e.maybeSnap(world.Add(e.dragOffset))
			e.state.SetDirty(true)
			return
		}
	}
}

func (e *Engine) deleteAt(world vec.Vec2F) {
	if e.doc == nil {
		return
	}
	hit, ok := e.HitTest(world)
	if !ok {
		return
	}

	id := hit.ID
	for i := range e.doc.Entities {
		if e.doc.Entities[i].ID == id {
			e.doc.Entities = append(e.doc.Entities[:i], e.doc.Entities[i+1:]...)
			break
		}
	}
	e.state.Deselect(id)
	e.state.SetDirty(true)
	e.logger.Debug("Удалена сущность %s", id)
}

func (e *Engine) beginPan(screen vec.Vec2F) {
	e.panning = true
	e.panStartScreen = screen
	e.panStartScroll = e.state.CameraScroll()
}

// SetViewport задаёт размер видимой области для раскладки сетки.
func (e *Engine) SetViewport(width, height float64) {
	e.viewportWidth = width
	e.viewportHeight = height
	e.gridEverBuilt = false
}

// GridLines возвращает линии сетки, пересчитывая их только когда
// усечённый до целых скролл камеры или настройки сетки изменились —
// грубая проверка равенства отсекает лишние пересчёты.
func (e *Engine) GridLines() []grid.Line {
	shown := e.state.GridVisible()
	if !shown {
		return nil
	}

	scrollInt := e.state.CameraScroll().ToVec2()
	size := e.state.GridSize()

	if e.gridEverBuilt && scrollInt == e.lastScrollInt && size == e.lastGridSize && shown == e.lastGridShown {
		return e.gridLines
	}

	e.gridLines = grid.Lines(grid.Viewport{
		Origin: e.state.CameraScroll(),
		Width:  e.viewportWidth,
		Height: e.viewportHeight,
	}, size)
	e.lastScrollInt = scrollInt
	e.lastGridSize = size
	e.lastGridShown = shown
	e.gridEverBuilt = true
	return e.gridLines
}

// SaveProgress собирает текущие сущности, гарантирует ровно одну точку
// старта игрока, сохраняет документ и принимает возвращённый id.
// Ошибка сохранения не теряет in-memory список сущностей: документ и
// флаг dirty остаются нетронутыми, пользователь может повторить.
func (e *Engine) SaveProgress(ctx context.Context) (string, error) {
	if e.doc == nil {
		doc, err := e.service.CreateFromTemplate(level.DefaultTemplate, defaultSettings)
		if err != nil {
			return "", err
		}
		e.doc = doc
	}

	if level.EnsurePlayerStart(e.doc, level.DefaultPlayerStart) {
		e.logger.Info("Синтезирована точка старта игрока в (%.0f, %.0f)",
			level.DefaultPlayerStart.X, level.DefaultPlayerStart.Y)
	}

	id, err := e.service.Save(ctx, e.doc, nil)
	if err != nil {
		var storageErr *store.StorageError
		if errors.As(err, &storageErr) {
			e.logger.Error("Сохранение уровня не удалось (правки сохранены в памяти): %v", err)
		}
		return "", err
	}

	// Принимаем id, который фактически использовало хранилище,
	// и фиксируем чистое состояние.
	e.state.SetCurrentLevelID(id)
	return id, nil
}
