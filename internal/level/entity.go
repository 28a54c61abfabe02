package level

import (
	"fmt"

	"github.com/annel0/starforge/internal/geom"
	"github.com/annel0/starforge/internal/vec"
	"github.com/google/uuid"
)

// EntityKind — закрытое множество видов размещаемых объектов уровня.
type EntityKind string

const (
	KindPlayerStart    EntityKind = "player_start"
	KindEnemySpawner   EntityKind = "enemy_spawner"
	KindObstacle       EntityKind = "obstacle"
	KindPowerupSpawner EntityKind = "powerup_spawner"
	KindDecoration     EntityKind = "decoration"
	KindTrigger        EntityKind = "trigger"
)

// Valid проверяет принадлежность закрытому множеству видов.
func (k EntityKind) Valid() bool {
	switch k {
	case KindPlayerStart, KindEnemySpawner, KindObstacle,
		KindPowerupSpawner, KindDecoration, KindTrigger:
		return true
	}
	return false
}

// SpawnerParams — параметры спавнера врагов.
type SpawnerParams struct {
	EnemyVariant     string  `json:"enemy_variant"`
	SpawnRateSeconds float64 `json:"spawn_rate_seconds"`
	MaxConcurrent    int     `json:"max_concurrent"`
	ActivationRadius float64 `json:"activation_radius"`
}

// ObstacleParams — параметры препятствия.
type ObstacleParams struct {
	Variant      string `json:"variant"`
	Destructible bool   `json:"destructible"`
	HitPoints    int    `json:"hit_points,omitempty"`
}

// PowerupParams — параметры спавнера усилений.
type PowerupParams struct {
	PowerupType    string  `json:"powerup_type"`
	RespawnSeconds float64 `json:"respawn_seconds"`
}

// DecorationParams — параметры декорации.
type DecorationParams struct {
	Texture       string `json:"texture"`
	ParallaxLayer int    `json:"parallax_layer"`
}

// TriggerParams — параметры триггера.
type TriggerParams struct {
	Radius float64 `json:"radius"`
	Event  string  `json:"event"`
}

// Entity — размещаемый объект уровня. Поля дискриминированы по Kind:
// заполнен ровно один из params-указателей, соответствующий виду
// (player_start не несёт параметров). ID назначается при создании и
// неизменен; сущность принадлежит ровно одному уровню.
type Entity struct {
	ID       string     `json:"id"`
	Kind     EntityKind `json:"kind"`
	Position vec.Vec2F  `json:"position"`
	Rotation float64    `json:"rotation,omitempty"` // радианы
	Scale    float64    `json:"scale,omitempty"`    // положительный скаляр, 1 по умолчанию

	Spawner    *SpawnerParams    `json:"spawner,omitempty"`
	Obstacle   *ObstacleParams   `json:"obstacle,omitempty"`
	Powerup    *PowerupParams    `json:"powerup,omitempty"`
	Decoration *DecorationParams `json:"decoration,omitempty"`
	Trigger    *TriggerParams    `json:"trigger,omitempty"`
}

// NewEntity создаёт сущность указанного вида в точке pos с дефолтными
// rotation=0 и scale=1. Параметры вида заполняет вызывающий.
func NewEntity(kind EntityKind, pos vec.Vec2F) Entity {
	return Entity{
		ID:       uuid.NewString(),
		Kind:     kind,
		Position: pos,
		Scale:    1,
	}
}

// EffectiveScale возвращает масштаб с подстановкой дефолта для записей,
// сериализованных без поля scale.
func (e *Entity) EffectiveScale() float64 {
	if e.Scale <= 0 {
		return 1
	}
	return e.Scale
}

// halfExtents — половинные габариты AABB по видам, в мировых единицах.
var halfExtents = map[EntityKind]vec.Vec2F{
	KindPlayerStart:    {X: 16, Y: 16},
	KindEnemySpawner:   {X: 16, Y: 16},
	KindObstacle:       {X: 24, Y: 24},
	KindPowerupSpawner: {X: 12, Y: 12},
	KindDecoration:     {X: 32, Y: 32},
	KindTrigger:        {X: 20, Y: 20},
}

// HalfExtents возвращает половинные габариты hit-бокса сущности
// с учётом её масштаба.
func (e *Entity) HalfExtents() vec.Vec2F {
	he, ok := halfExtents[e.Kind]
	if !ok {
		he = vec.Vec2F{X: 16, Y: 16}
	}
	return he.Mul(e.EffectiveScale())
}

// Bounds возвращает AABB сущности (центр ± половинные габариты).
func (e *Entity) Bounds() geom.AABB {
	return geom.FromCenter(e.Position, e.HalfExtents())
}

// Contains проверяет попадание мировой точки в AABB сущности.
func (e *Entity) Contains(p vec.Vec2F) bool {
	return e.Bounds().ContainsPoint(p)
}

// Validate проверяет согласованность сущности: известный вид и
// соответствие заполненных параметров дискриминатору.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("сущность без id")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("неизвестный вид сущности: %q", e.Kind)
	}

	has := func(kind EntityKind, present bool) error {
		if e.Kind == kind && !present {
			return fmt.Errorf("сущность %s: отсутствуют параметры вида %s", e.ID, kind)
		}
		if e.Kind != kind && present {
			return fmt.Errorf("сущность %s (%s): лишние параметры вида %s", e.ID, e.Kind, kind)
		}
		return nil
	}

	checks := []error{
		has(KindEnemySpawner, e.Spawner != nil),
		has(KindObstacle, e.Obstacle != nil),
		has(KindPowerupSpawner, e.Powerup != nil),
		has(KindDecoration, e.Decoration != nil),
		has(KindTrigger, e.Trigger != nil),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}
