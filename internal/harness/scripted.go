package harness

import (
	"context"
	"sync"
)

// ScriptStep — один шаг сценария фейкового харнесса.
type ScriptStep struct {
	Type   string // frameCompleted, frameFailed или frameStats
	Reason string
	Stats  *Stats
}

// Шаги сценария для Scripted.
func StepCompleted() ScriptStep           { return ScriptStep{Type: frameCompleted} }
func StepFailed(reason string) ScriptStep { return ScriptStep{Type: frameFailed, Reason: reason} }
func StepStats(s Stats) ScriptStep        { return ScriptStep{Type: frameStats, Stats: &s} }

// Scripted — детерминированный харнесс для тестов: проигрывает заданный
// сценарий событий синхронно внутри Launch (каналы Run буферизованы,
// доставка не блокирует) и считает вызовы Launch и Stop.
type Scripted struct {
	Script    []ScriptStep
	LaunchErr error

	mu         sync.Mutex
	launches   int
	stops      int
	lastLevel  []byte
	lastInTest bool
}

// Launch проигрывает сценарий и возвращает прогон. Лишние исходы после
// первого отбрасываются доставкой в Run, как и у живого транспорта.
func (s *Scripted) Launch(_ context.Context, levelData []byte, testMode bool) (*Run, error) {
	s.mu.Lock()
	s.launches++
	s.lastLevel = append([]byte(nil), levelData...)
	s.lastInTest = testMode
	s.mu.Unlock()

	if s.LaunchErr != nil {
		return nil, s.LaunchErr
	}

	run := newRun(func() {
		s.mu.Lock()
		s.stops++
		s.mu.Unlock()
	})

	for _, step := range s.Script {
		switch step.Type {
		case frameCompleted:
			run.signalCompleted()
		case frameFailed:
			run.signalFailed(step.Reason)
		case frameStats:
			if step.Stats != nil {
				run.pushStats(*step.Stats)
			}
		}
	}
	return run, nil
}

// Launches возвращает число вызовов Launch.
func (s *Scripted) Launches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches
}

// Stops возвращает число вызовов Stop у выданных прогонов.
func (s *Scripted) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// LastLevelData возвращает данные уровня последнего запуска.
func (s *Scripted) LastLevelData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLevel
}
