// Package grid содержит чистые функции координатной математики редактора:
// привязка к сетке, преобразование экран→мир и раскладка линий сетки.
// Функции не имеют побочных эффектов; корректность входных чисел
// (конечность) — контракт вызывающего.
package grid

import (
	"math"

	"github.com/annel0/starforge/internal/vec"
)

// Пределы размера ячейки сетки в пикселях.
const (
	MinGridSize = 8
	MaxGridSize = 96
)

// Major задаёт шаг крупных линий: каждая пятая линия сетки.
const MajorEvery = 5

// Snap привязывает точку к ближайшему узлу сетки: round(p/g)*g по каждой оси.
// gridSize должен быть положительным; вызывающие ограничивают его ClampGridSize.
func Snap(p vec.Vec2F, gridSize int) vec.Vec2F {
	g := float64(gridSize)
	return vec.Vec2F{
		X: math.Round(p.X/g) * g,
		Y: math.Round(p.Y/g) * g,
	}
}

// ScreenToWorld преобразует экранные координаты в мировые: world = screen/zoom + scroll.
// Камера редактора поддерживает только панорамирование, zoom фиксирован = 1,
// чтобы сетка оставалась выровненной по пикселям.
func ScreenToWorld(screen vec.Vec2F, scroll vec.Vec2F, zoom float64) vec.Vec2F {
	return screen.Div(zoom).Add(scroll)
}

// ClampGridSize приводит размер ячейки к допустимому диапазону [8, 96].
func ClampGridSize(px int) int {
	if px < MinGridSize {
		return MinGridSize
	}
	if px > MaxGridSize {
		return MaxGridSize
	}
	return px
}

// ClampGridSizeF округляет дробный размер ячейки и приводит его к диапазону.
func ClampGridSizeF(px float64) int {
	return ClampGridSize(int(math.Round(px)))
}

// Line описывает одну линию сетки в мировых координатах.
// Вертикальная линия имеет Vertical=true и проходит через X=At,
// горизонтальная — через Y=At. Major помечает каждую пятую линию.
type Line struct {
	At       float64
	Vertical bool
	Major    bool
}

// Viewport описывает видимую область в мировых координатах.
type Viewport struct {
	Origin vec.Vec2F // левый верхний угол
	Width  float64
	Height float64
}

// Lines вычисляет набор линий сетки, покрывающих видимую область.
// Результат — чистые данные; отрисовка выполняется внешним слоем.
func Lines(view Viewport, gridSize int) []Line {
	g := float64(ClampGridSize(gridSize))

	lines := make([]Line, 0, 64)

	firstX := math.Floor(view.Origin.X/g) * g
	for x := firstX; x <= view.Origin.X+view.Width; x += g {
		lines = append(lines, Line{
			At:       x,
			Vertical: true,
			Major:    isMajor(x, g),
		})
	}

	firstY := math.Floor(view.Origin.Y/g) * g
	for y := firstY; y <= view.Origin.Y+view.Height; y += g {
		lines = append(lines, Line{
			At:       y,
			Vertical: false,
			Major:    isMajor(y, g),
		})
	}

	return lines
}

// isMajor проверяет, попадает ли координата на крупную линию (каждые 5*g).
func isMajor(at, g float64) bool {
	step := g * MajorEvery
	_, frac := math.Modf(math.Abs(at) / step)
	return frac < 1e-9 || frac > 1-1e-9
}
