package placement

import (
	"strings"

	"github.com/annel0/starforge/internal/level"
	"github.com/annel0/starforge/internal/vec"
)

// entityFactory создаёт сущность палитры в указанной точке.
type entityFactory func(pos vec.Vec2F) level.Entity

// palette — размещаемые через инструмент PLACE записи. В дефолтной
// палитре только «спавнероподобные» виды: остальные виды поддержаны
// моделью данных, но не выставлены в палитру.
var palette = map[string]entityFactory{
	"fighter": func(pos vec.Vec2F) level.Entity {
		e := level.NewEntity(level.KindEnemySpawner, pos)
		e.Spawner = &level.SpawnerParams{
			EnemyVariant:     "fighter",
			SpawnRateSeconds: 3,
			MaxConcurrent:    4,
			ActivationRadius: 640,
		}
		return e
	},
	"interceptor": func(pos vec.Vec2F) level.Entity {
		e := level.NewEntity(level.KindEnemySpawner, pos)
		e.Spawner = &level.SpawnerParams{
			EnemyVariant:     "interceptor",
			SpawnRateSeconds: 5,
			MaxConcurrent:    2,
			ActivationRadius: 640,
		}
		return e
	},
	"bomber": func(pos vec.Vec2F) level.Entity {
		e := level.NewEntity(level.KindEnemySpawner, pos)
		e.Spawner = &level.SpawnerParams{
			EnemyVariant:     "bomber",
			SpawnRateSeconds: 8,
			MaxConcurrent:    1,
			ActivationRadius: 800,
		}
		return e
	},
	"shield": func(pos vec.Vec2F) level.Entity {
		e := level.NewEntity(level.KindPowerupSpawner, pos)
		e.Powerup = &level.PowerupParams{PowerupType: "shield", RespawnSeconds: 20}
		return e
	},
	"rapid_fire": func(pos vec.Vec2F) level.Entity {
		e := level.NewEntity(level.KindPowerupSpawner, pos)
		e.Powerup = &level.PowerupParams{PowerupType: "rapid_fire", RespawnSeconds: 30}
		return e
	},
	"asteroid": func(pos vec.Vec2F) level.Entity {
		e := level.NewEntity(level.KindObstacle, pos)
		e.Obstacle = &level.ObstacleParams{
			Variant:      "asteroid_large",
			Destructible: true,
			HitPoints:    3,
		}
		return e
	},
}

// lookupPalette возвращает фабрику по ключу палитры (регистронезависимо).
func lookupPalette(key string) (entityFactory, bool) {
	f, ok := palette[strings.ToLower(key)]
	return f, ok
}

// PaletteKeys возвращает ключи дефолтной палитры (для UI).
func PaletteKeys() []string {
	keys := make([]string, 0, len(palette))
	for k := range palette {
		keys = append(keys, k)
	}
	return keys
}
