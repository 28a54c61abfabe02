package harness

import (
	"context"
	"testing"
)

func TestRunDeliversSingleOutcome(t *testing.T) {
	run := newRun(nil)

	run.signalCompleted()
	run.signalFailed("поздний провал")

	select {
	case <-run.Completed():
	default:
		t.Fatal("Сигнал completed не доставлен")
	}

	select {
	case reason := <-run.Failed():
		t.Fatalf("Второй исход не должен доставляться: %q", reason)
	default:
	}
}

func TestRunStopIsIdempotent(t *testing.T) {
	calls := 0
	run := newRun(func() { calls++ })

	run.Stop()
	run.Stop()
	run.Stop()

	if calls != 1 {
		t.Errorf("Stop должен сработать один раз, получено %d", calls)
	}
}

func TestRunStatsEvictsOldest(t *testing.T) {
	run := newRun(nil)

	// Переполняем буфер: старые сводки вытесняются, новые доходят.
	for i := 0; i < 20; i++ {
		run.pushStats(Stats{EnemiesDefeated: i})
	}

	last := Stats{}
	drained := 0
	for {
		select {
		case s := <-run.Stats():
			last = s
			drained++
			continue
		default:
		}
		break
	}

	if drained == 0 {
		t.Fatal("Буфер сводок пуст")
	}
	if last.EnemiesDefeated != 19 {
		t.Errorf("Последняя сводка должна пережить вытеснение, получено %d", last.EnemiesDefeated)
	}
}

func TestScriptedRecordsLaunch(t *testing.T) {
	scripted := &Scripted{Script: []ScriptStep{
		StepStats(Stats{PowerupsTaken: 2}),
		StepFailed("время вышло"),
	}}

	run, err := scripted.Launch(context.Background(), []byte(`{"id":"demo"}`), true)
	if err != nil {
		t.Fatalf("Ошибка запуска: %v", err)
	}

	select {
	case s := <-run.Stats():
		if s.PowerupsTaken != 2 {
			t.Errorf("Сводка исказилась: %+v", s)
		}
	default:
		t.Error("Сводка не доставлена")
	}

	select {
	case reason := <-run.Failed():
		if reason != "время вышло" {
			t.Errorf("Причина провала исказилась: %q", reason)
		}
	default:
		t.Error("Провал не доставлен")
	}

	if scripted.Launches() != 1 {
		t.Errorf("Ожидался один запуск, получено %d", scripted.Launches())
	}
	if string(scripted.LastLevelData()) != `{"id":"demo"}` {
		t.Errorf("Данные уровня исказились: %s", scripted.LastLevelData())
	}

	run.Stop()
	if scripted.Stops() != 1 {
		t.Errorf("Ожидалась одна остановка, получено %d", scripted.Stops())
	}
}
