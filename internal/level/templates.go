package level

import (
	"fmt"

	"github.com/annel0/starforge/internal/util"
	"github.com/annel0/starforge/internal/vec"
)

// Идентификаторы встроенных шаблонов уровня.
const (
	TemplateEmpty         = "empty"
	TemplateSkirmish      = "skirmish"
	TemplateAsteroidField = "asteroid-field"
)

// DefaultTemplate используется, когда сохранение происходит до явного
// выбора шаблона.
const DefaultTemplate = TemplateEmpty

// asteroidSeed фиксирован, чтобы шаблон был воспроизводимым:
// один и тот же стартовый уровень у всех авторов.
const asteroidSeed int64 = 7841

// TemplateIDs возвращает список известных шаблонов.
func TemplateIDs() []string {
	return []string{TemplateEmpty, TemplateSkirmish, TemplateAsteroidField}
}

// FromTemplate создаёт новый in-memory документ по именованному шаблону.
// ID документа не заполняется до первого сохранения.
func FromTemplate(templateID string, settings LevelSettings) (*Document, error) {
	switch templateID {
	case TemplateEmpty, "":
		return newDocument(settings), nil
	case TemplateSkirmish:
		return skirmishTemplate(settings), nil
	case TemplateAsteroidField:
		return asteroidFieldTemplate(settings), nil
	default:
		return nil, fmt.Errorf("неизвестный шаблон уровня: %q", templateID)
	}
}

// skirmishTemplate — стартовая расстановка: точка игрока, два спавнера
// врагов и спавнер усилений.
func skirmishTemplate(settings LevelSettings) *Document {
	doc := newDocument(settings)

	doc.Entities = append(doc.Entities, NewEntity(KindPlayerStart, DefaultPlayerStart))

	left := NewEntity(KindEnemySpawner, vec.Vec2F{X: -256, Y: -192})
	left.Spawner = &SpawnerParams{
		EnemyVariant:     "fighter",
		SpawnRateSeconds: 3,
		MaxConcurrent:    4,
		ActivationRadius: 640,
	}
	right := NewEntity(KindEnemySpawner, vec.Vec2F{X: 256, Y: -192})
	right.Spawner = &SpawnerParams{
		EnemyVariant:     "interceptor",
		SpawnRateSeconds: 5,
		MaxConcurrent:    2,
		ActivationRadius: 640,
	}
	doc.Entities = append(doc.Entities, left, right)

	powerup := NewEntity(KindPowerupSpawner, vec.Vec2F{X: 0, Y: 0})
	powerup.Powerup = &PowerupParams{PowerupType: "shield", RespawnSeconds: 20}
	doc.Entities = append(doc.Entities, powerup)

	return doc
}

// asteroidFieldTemplate рассеивает препятствия и декорации по полю
// с помощью шума Перлина. Детеминирован: один сид — одна расстановка.
func asteroidFieldTemplate(settings LevelSettings) *Document {
	doc := newDocument(settings)
	doc.Entities = append(doc.Entities, NewEntity(KindPlayerStart, DefaultPlayerStart))

	noise := util.NewNoiseField(asteroidSeed)

	// Сканируем сетку 16x12 ячеек по 96px; значение шума решает,
	// будет ли в ячейке астероид, декорация или пусто.
	const cell = 96.0
	for cy := 0; cy < 12; cy++ {
		for cx := 0; cx < 16; cx++ {
			n := noise.At(float64(cx)/6.0, float64(cy)/6.0)
			pos := vec.Vec2F{
				X: (float64(cx) - 8) * cell,
				Y: (float64(cy) - 8) * cell,
			}

			switch {
			case n > 0.72:
				e := NewEntity(KindObstacle, pos)
				e.Obstacle = &ObstacleParams{
					Variant:      "asteroid_large",
					Destructible: true,
					HitPoints:    3,
				}
				doc.Entities = append(doc.Entities, e)
			case n > 0.62:
				e := NewEntity(KindDecoration, pos)
				e.Decoration = &DecorationParams{
					Texture:       "dust_cloud",
					ParallaxLayer: 2,
				}
				doc.Entities = append(doc.Entities, e)
			}
		}
	}

	return doc
}
