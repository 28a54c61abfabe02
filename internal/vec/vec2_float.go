package vec

import "math"

// Vec2F представляет 2D координаты с плавающей точкой (мировые и экранные единицы).
type Vec2F struct {
	X, Y float64
}

// ToVec2 преобразует в целочисленные координаты (усечение дробной части).
func (v Vec2F) ToVec2() Vec2 {
	return Vec2{X: int(v.X), Y: int(v.Y)}
}

// FromVec2 создает Vec2F из Vec2.
func FromVec2(v Vec2) Vec2F {
	return Vec2F{X: float64(v.X), Y: float64(v.Y)}
}

// Add складывает два вектора.
func (v Vec2F) Add(other Vec2F) Vec2F {
	return Vec2F{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор.
func (v Vec2F) Sub(other Vec2F) Vec2F {
	return Vec2F{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр.
func (v Vec2F) Mul(scalar float64) Vec2F {
	return Vec2F{X: v.X * scalar, Y: v.Y * scalar}
}

// Div делит вектор на скаляр. Деление на ноль — ответственность вызывающего.
func (v Vec2F) Div(scalar float64) Vec2F {
	return Vec2F{X: v.X / scalar, Y: v.Y / scalar}
}

// Length возвращает длину вектора.
func (v Vec2F) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// DistanceTo вычисляет расстояние до другой точки.
func (v Vec2F) DistanceTo(other Vec2F) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}
