// Package harness запускает прогон уровня во внешнем геймплейном
// симуляторе и отдаёт его исход редактору. Исход ровно один на прогон:
// либо completed, либо failed; stats-события информационные и могут
// приходить многократно.
package harness

import (
	"context"
	"sync"
)

// Stats — периодическая сводка прогона от симулятора.
type Stats struct {
	EnemiesDefeated int     `json:"enemiesDefeated"`
	DamageTaken     int     `json:"damageTaken"`
	PowerupsTaken   int     `json:"powerupsTaken"`
	ElapsedSeconds  float64 `json:"elapsedSeconds"`
}

// Harness — транспорт до симулятора. Launch отправляет уровень и
// возвращает активный прогон; ошибка означает, что прогон не начался.
type Harness interface {
	Launch(ctx context.Context, levelData []byte, testMode bool) (*Run, error)
}

// Run — один прогон уровня. Каналы Completed/Failed буферизованы и
// получают не более одного сигнала на прогон; Stats может получать
// несколько. Stop идемпотентен.
type Run struct {
	completed chan struct{}
	failed    chan string
	stats     chan Stats

	stopFn     func()
	stopOnce   sync.Once
	signalOnce sync.Once
}

func newRun(stopFn func()) *Run {
	return &Run{
		completed: make(chan struct{}, 1),
		failed:    make(chan string, 1),
		stats:     make(chan Stats, 8),
		stopFn:    stopFn,
	}
}

// Completed сигналит об успешном прохождении уровня.
func (r *Run) Completed() <-chan struct{} { return r.completed }

// Failed сигналит о провале; значение — причина от симулятора.
func (r *Run) Failed() <-chan string { return r.failed }

// Stats отдаёт периодические сводки прогона.
func (r *Run) Stats() <-chan Stats { return r.stats }

// Stop останавливает прогон. Повторные вызовы игнорируются.
func (r *Run) Stop() {
	r.stopOnce.Do(func() {
		if r.stopFn != nil {
			r.stopFn()
		}
	})
}

// signalCompleted доставляет исход, если он ещё не доставлен.
func (r *Run) signalCompleted() {
	r.signalOnce.Do(func() {
		r.completed <- struct{}{}
	})
}

// signalFailed доставляет исход, если он ещё не доставлен.
func (r *Run) signalFailed(reason string) {
	r.signalOnce.Do(func() {
		r.failed <- reason
	})
}

// pushStats доставляет сводку без блокировки: при переполненном буфере
// старые сводки вытесняются, терять их безопасно.
func (r *Run) pushStats(s Stats) {
	select {
	case r.stats <- s:
	default:
		select {
		case <-r.stats:
		default:
		}
		select {
		case r.stats <- s:
		default:
		}
	}
}
