// Package geom содержит прямоугольные коллайдеры для hit-testing
// сущностей и экранных областей редактора.
package geom

import (
	"github.com/annel0/starforge/internal/vec"
)

// AABB представляет прямоугольник, выровненный по осям
type AABB struct {
	Min vec.Vec2F // левый верхний угол
	Max vec.Vec2F // правый нижний угол
}

// FromCenter строит AABB по центру и половинным габаритам
func FromCenter(center, half vec.Vec2F) AABB {
	return AABB{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// ContainsPoint проверяет, находится ли точка внутри прямоугольника
// (границы включительно)
func (b AABB) ContainsPoint(p vec.Vec2F) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Intersects проверяет пересечение двух прямоугольников
func (b AABB) Intersects(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y
}

// Size возвращает ширину и высоту прямоугольника
func (b AABB) Size() vec.Vec2F {
	return b.Max.Sub(b.Min)
}
