package util

import (
	"github.com/aquilax/go-perlin"
)

// NoiseField — детерминированное поле шума Перлина. Один и тот же сид
// всегда даёт одно и то же поле.
type NoiseField struct {
	p *perlin.Perlin
}

// NewNoiseField создаёт поле шума с указанным сидом.
func NewNoiseField(seed int64) *NoiseField {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &NoiseField{p: perlin.NewPerlin(alpha, beta, n, seed)}
}

// At возвращает значение шума для указанных координат,
// нормализованное в диапазон от 0 до 1.
func (nf *NoiseField) At(x, y float64) float64 {
	return (nf.p.Noise2D(x, y) + 1.0) / 2.0
}
