package placement

import (
	"sync"

	"github.com/annel0/starforge/internal/geom"
	"github.com/annel0/starforge/internal/vec"
)

// Region — зарезервированная экранная область фиксированной панели UI
// (палитра инструментов, палитра сущностей, статус-бар, верхняя панель,
// «язычки» свёрнутых панелей).
type Region struct {
	Name   string
	Box    geom.AABB // экранные координаты
	hidden bool
}

// Contains проверяет попадание экранной точки в область.
func (r *Region) Contains(p vec.Vec2F) bool {
	return r.Box.ContainsPoint(p)
}

// RegionRegistry — общий реестр зарезервированных областей. Единый
// предикат InsideAny консультируется один раз в начале каждого жеста,
// вместо дублирования проверки в каждом инструменте.
type RegionRegistry struct {
	mu      sync.RWMutex
	regions map[string]*Region
}

// NewRegionRegistry создаёт пустой реестр.
func NewRegionRegistry() *RegionRegistry {
	return &RegionRegistry{regions: make(map[string]*Region)}
}

// Register добавляет или обновляет область по имени.
func (rr *RegionRegistry) Register(name string, min, max vec.Vec2F) {
	rr.mu.Lock()
	rr.regions[name] = &Region{Name: name, Box: geom.AABB{Min: min, Max: max}}
	rr.mu.Unlock()
}

// SetVisible помечает область видимой/скрытой: скрытая панель не
// перехватывает жесты.
func (rr *RegionRegistry) SetVisible(name string, visible bool) {
	rr.mu.Lock()
	if r, ok := rr.regions[name]; ok {
		r.hidden = !visible
	}
	rr.mu.Unlock()
}

// Unregister убирает область.
func (rr *RegionRegistry) Unregister(name string) {
	rr.mu.Lock()
	delete(rr.regions, name)
	rr.mu.Unlock()
}

// InsideAny проверяет попадание экранной точки в любую видимую область.
func (rr *RegionRegistry) InsideAny(p vec.Vec2F) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	for _, r := range rr.regions {
		if !r.hidden && r.Contains(p) {
			return true
		}
	}
	return false
}
