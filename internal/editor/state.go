// Package editor содержит EditorState — единственный источник истины о том,
// что пользователь делает прямо сейчас: инструмент, выделение, сетка,
// флаг несохранённых изменений, камера.
package editor

import (
	"context"
	"sync"

	"github.com/annel0/starforge/internal/eventbus"
	"github.com/annel0/starforge/internal/grid"
	"github.com/annel0/starforge/internal/logging"
	"github.com/annel0/starforge/internal/vec"
)

// Tool — активный инструмент редактора.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolPlace  Tool = "place"
	ToolMove   Tool = "move"
	ToolDelete Tool = "delete"
	ToolPan    Tool = "pan"
)

// Valid проверяет принадлежность закрытому множеству инструментов.
func (t Tool) Valid() bool {
	switch t {
	case ToolSelect, ToolPlace, ToolMove, ToolDelete, ToolPan:
		return true
	}
	return false
}

// ChangeKind — имя изменения, передаваемое подписчикам.
type ChangeKind string

const (
	ChangeTool          ChangeKind = "tool"
	ChangePlacementKind ChangeKind = "placement-kind"
	ChangeSelection     ChangeKind = "selection"
	ChangeGrid          ChangeKind = "grid"
	ChangeSnap          ChangeKind = "snap"
	ChangeDirty         ChangeKind = "dirty"
	ChangeLevel         ChangeKind = "level"
	ChangeCamera        ChangeKind = "camera"
)

// Change — уведомление об изменении состояния редактора.
type Change struct {
	Kind ChangeKind
}

// Listener получает уведомления синхронно, сразу после мутации.
// Батчинга нет: каждый сеттер уведомляет отдельно.
type Listener func(Change)

// State — эфемерное состояние сессии редактирования. Не персистируется;
// создаётся при открытии редактора и уничтожается при закрытии.
// Методы не возвращают ошибок: недопустимые значения ограничиваются
// или игнорируются с записью в лог.
type State struct {
	mu sync.RWMutex

	tool          Tool
	placementKind string // ключ палитры для инструмента PLACE
	selected      map[string]struct{}
	gridVisible   bool
	gridSize      int
	snapEnabled   bool
	levelID       string
	dirty         bool
	cameraScroll  vec.Vec2F
	cameraZoom    float64 // фиксирован = 1: камера только панорамируется

	listeners      map[int]Listener
	nextListenerID int

	logger *logging.Logger
}

// NewState создаёт состояние сессии с дефолтами.
func NewState() *State {
	return &State{
		tool:        ToolSelect,
		selected:    make(map[string]struct{}),
		gridVisible: true,
		gridSize:    32,
		snapEnabled: true,
		cameraZoom:  1,
		listeners:   make(map[int]Listener),
		logger:      logging.GetEditorLogger(),
	}
}

// Subscribe регистрирует слушателя изменений; возвращает функцию отписки.
// UI-слой регистрирует слушателей при монтировании и снимает при демонтаже.
func (s *State) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notify рассылает уведомление синхронно, вне мьютекса состояния.
func (s *State) notify(kind ChangeKind) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(Change{Kind: kind})
	}

	// Диагностическое зеркало в общую шину; семантические подписки
	// используют типизированный Subscribe, а не шину.
	_ = eventbus.PublishLevelEvent(context.Background(), "editor",
		eventbus.EventEditorState, s.CurrentLevelID(), []byte(kind))
}

// SetTool переключает инструмент. Неизвестный инструмент игнорируется.
func (s *State) SetTool(tool Tool) {
	if !tool.Valid() {
		s.logger.Warn("Неизвестный инструмент: %q — игнорируется", tool)
		return
	}
	s.mu.Lock()
	s.tool = tool
	s.mu.Unlock()
	s.notify(ChangeTool)
}

// Tool возвращает активный инструмент.
func (s *State) Tool() Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

// SetPlacementKind задаёт ключ палитры для последующих размещений.
func (s *State) SetPlacementKind(key string) {
	s.mu.Lock()
	s.placementKind = key
	s.mu.Unlock()
	s.notify(ChangePlacementKind)
}

// PlacementKind возвращает текущий ключ палитры.
func (s *State) PlacementKind() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.placementKind
}

// Select изменяет выделение. additive=false заменяет выделение на {id};
// additive=true переключает членство id (семантика shift-click:
// присутствует — убрать, отсутствует — добавить).
func (s *State) Select(id string, additive bool) {
	s.mu.Lock()
	if additive {
		if _, ok := s.selected[id]; ok {
			delete(s.selected, id)
		} else {
			s.selected[id] = struct{}{}
		}
	} else {
		s.selected = map[string]struct{}{id: {}}
	}
	s.mu.Unlock()
	s.notify(ChangeSelection)
}

// Deselect убирает id из выделения.
func (s *State) Deselect(id string) {
	s.mu.Lock()
	delete(s.selected, id)
	s.mu.Unlock()
	s.notify(ChangeSelection)
}

// ClearSelection очищает выделение.
func (s *State) ClearSelection() {
	s.mu.Lock()
	s.selected = make(map[string]struct{})
	s.mu.Unlock()
	s.notify(ChangeSelection)
}

// IsSelected проверяет членство id в выделении.
func (s *State) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// SelectedIDs возвращает копию множества выделенных id.
func (s *State) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	return ids
}

// SetGridVisible включает/выключает отображение сетки.
func (s *State) SetGridVisible(visible bool) {
	s.mu.Lock()
	s.gridVisible = visible
	s.mu.Unlock()
	s.notify(ChangeGrid)
}

// GridVisible возвращает видимость сетки.
func (s *State) GridVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gridVisible
}

// SetGridSize устанавливает размер ячейки с ограничением [8, 96].
func (s *State) SetGridSize(px int) {
	s.mu.Lock()
	s.gridSize = grid.ClampGridSize(px)
	s.mu.Unlock()
	s.notify(ChangeGrid)
}

// SetGridSizeF принимает дробный размер: округление, затем ограничение.
func (s *State) SetGridSizeF(px float64) {
	s.mu.Lock()
	s.gridSize = grid.ClampGridSizeF(px)
	s.mu.Unlock()
	s.notify(ChangeGrid)
}

// GridSize возвращает размер ячейки сетки в пикселях.
func (s *State) GridSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gridSize
}

// SetSnap включает/выключает привязку к сетке.
func (s *State) SetSnap(enabled bool) {
	s.mu.Lock()
	s.snapEnabled = enabled
	s.mu.Unlock()
	s.notify(ChangeSnap)
}

// SnapEnabled возвращает состояние привязки.
func (s *State) SnapEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapEnabled
}

// SetDirty выставляет флаг несохранённых изменений. Это единственный
// сигнал отслеживания изменений: не diff, а булево «что-то менялось
// с последнего сохранения».
func (s *State) SetDirty(dirty bool) {
	s.mu.Lock()
	s.dirty = dirty
	s.mu.Unlock()
	s.notify(ChangeDirty)
}

// IsDirty возвращает флаг несохранённых изменений.
func (s *State) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// SetCurrentLevelID привязывает сессию к уровню. Загрузка уровня —
// по определению чистое состояние, поэтому dirty сбрасывается.
func (s *State) SetCurrentLevelID(id string) {
	s.mu.Lock()
	s.levelID = id
	s.dirty = false
	s.mu.Unlock()
	s.notify(ChangeLevel)
	s.notify(ChangeDirty)
}

// CurrentLevelID возвращает id редактируемого уровня ("" — не сохранён).
func (s *State) CurrentLevelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.levelID
}

// CameraScroll возвращает скролл камеры в мировых единицах.
func (s *State) CameraScroll() vec.Vec2F {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cameraScroll
}

// PanCamera смещает камеру на delta.
func (s *State) PanCamera(delta vec.Vec2F) {
	s.mu.Lock()
	s.cameraScroll = s.cameraScroll.Add(delta)
	s.mu.Unlock()
	s.notify(ChangeCamera)
}

// CameraZoom возвращает зум камеры (фиксирован = 1).
func (s *State) CameraZoom() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cameraZoom
}
