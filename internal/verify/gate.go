// Package verify реализует ворота публикации: уровень можно публиковать
// только после успешного прогона в симуляторе, и любое последующее
// сохранение сбрасывает результат проверки.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/annel0/starforge/internal/harness"
	"github.com/annel0/starforge/internal/logging"
	"github.com/annel0/starforge/internal/platform"
	"github.com/annel0/starforge/internal/store"
)

// Status — состояние ворот проверки.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
)

// StatusListener получает новое состояние ворот синхронно.
type StatusListener func(Status)

// Gate — конечный автомат проверки: idle → running → passed|failed,
// из любого состояния → idle по сбросу или сохранению проверяемого
// уровня. Одновременно идёт не больше одного прогона.
type Gate struct {
	service *store.Service
	harness harness.Harness
	logger  *logging.Logger

	mu         sync.Mutex
	status     Status
	levelID    string
	failReason string
	lastStats  *harness.Stats

	run        *harness.Run
	cancelPump context.CancelFunc
	runSeq     uint64 // поколение прогона; поздние колбэки старых прогонов отбрасываются

	unsubscribe  func()
	listeners    map[int]StatusListener
	nextListener int
}

// NewGate собирает ворота и подписывается на сохранения уровней.
func NewGate(service *store.Service, h harness.Harness) *Gate {
	g := &Gate{
		service:   service,
		harness:   h,
		logger:    logging.GetVerifyLogger(),
		status:    StatusIdle,
		listeners: make(map[int]StatusListener),
	}
	g.unsubscribe = service.SubscribeSaved(g.onSaved)
	return g
}

// Status возвращает текущее состояние ворот.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// LevelID возвращает id проверяемого (или последнего проверенного) уровня.
func (g *Gate) LevelID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.levelID
}

// FailReason возвращает причину последнего провала.
func (g *Gate) FailReason() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failReason
}

// LastStats возвращает последнюю сводку прогона (nil, если сводок не было).
func (g *Gate) LastStats() *harness.Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastStats == nil {
		return nil
	}
	s := *g.lastStats
	return &s
}

// PublishEnabled сообщает, разрешена ли публикация. Сохранение уровня
// после успешного прогона сбрасывает состояние в idle, так что passed
// всегда означает «проверено и с тех пор не менялось».
func (g *Gate) PublishEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status == StatusPassed
}

// Subscribe регистрирует слушатель смены состояния, возвращает отписку.
func (g *Gate) Subscribe(fn StatusListener) func() {
	g.mu.Lock()
	id := g.nextListener
	g.nextListener++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

func (g *Gate) notify(st Status) {
	g.mu.Lock()
	fns := make([]StatusListener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// Start запускает проверку сохранённого уровня. Проверяется именно
// персистентный документ, а не несохранённые правки сессии. Повторный
// Start во время идущего прогона игнорируется.
func (g *Gate) Start(ctx context.Context, levelID string) error {
	g.mu.Lock()
	if g.status == StatusRunning {
		g.mu.Unlock()
		g.logger.Debug("Проверка уже идёт, повторный запуск игнорируется")
		return nil
	}
	g.mu.Unlock()

	doc, err := g.service.Load(ctx, levelID)
	if err != nil {
		// Уровень не загрузился: ворота остаются idle.
		return fmt.Errorf("уровень %s недоступен для проверки: %w", levelID, err)
	}
	levelData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("сериализация уровня %s: %w", levelID, err)
	}

	g.mu.Lock()
	if g.status == StatusRunning {
		g.mu.Unlock()
		return nil
	}
	g.teardownLocked()
	g.status = StatusRunning
	g.levelID = levelID
	g.failReason = ""
	g.lastStats = nil
	g.runSeq++
	seq := g.runSeq
	g.mu.Unlock()
	g.notify(StatusRunning)

	run, err := g.harness.Launch(ctx, levelData, true)
	if err != nil {
		g.mu.Lock()
		if g.runSeq == seq && g.status == StatusRunning {
			g.status = StatusFailed
			g.failReason = fmt.Sprintf("симулятор не запустил прогон: %v", err)
		}
		g.mu.Unlock()
		g.notify(StatusFailed)
		return fmt.Errorf("запуск прогона: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	g.mu.Lock()
	if g.runSeq != seq {
		// Сброс успел произойти между запуском и регистрацией прогона.
		g.mu.Unlock()
		cancel()
		run.Stop()
		return nil
	}
	g.run = run
	g.cancelPump = cancel
	g.mu.Unlock()

	go g.pump(pumpCtx, seq, run)
	return nil
}

// pump читает события прогона до первого исхода. Первый сигнал
// побеждает; противоположный сигнал того же прогона уже не долетит,
// потому что насос завершается.
func (g *Gate) pump(ctx context.Context, seq uint64, run *harness.Run) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-run.Completed():
			g.drainStats(seq, run)
			g.finish(seq, StatusPassed, "")
			return
		case reason := <-run.Failed():
			g.drainStats(seq, run)
			g.finish(seq, StatusFailed, reason)
			return
		case s := <-run.Stats():
			g.recordStats(seq, s)
		}
	}
}

// drainStats забирает уже доставленные сводки перед фиксацией исхода:
// select не гарантирует порядок между одновременно готовыми каналами.
func (g *Gate) drainStats(seq uint64, run *harness.Run) {
	for {
		select {
		case s := <-run.Stats():
			g.recordStats(seq, s)
		default:
			return
		}
	}
}

func (g *Gate) recordStats(seq uint64, s harness.Stats) {
	g.mu.Lock()
	if g.runSeq == seq {
		stats := s
		g.lastStats = &stats
	}
	g.mu.Unlock()
	g.logger.Debug("Сводка прогона: врагов %d, урон %d, %.1fс",
		s.EnemiesDefeated, s.DamageTaken, s.ElapsedSeconds)
}

func (g *Gate) finish(seq uint64, st Status, reason string) {
	g.mu.Lock()
	if g.runSeq != seq || g.status != StatusRunning {
		g.mu.Unlock()
		return
	}
	g.status = st
	g.failReason = reason
	run := g.run
	cancel := g.cancelPump
	g.run = nil
	g.cancelPump = nil
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if run != nil {
		run.Stop()
	}

	if st == StatusPassed {
		g.logger.Info("Проверка уровня %s пройдена", g.LevelID())
	} else {
		g.logger.Info("Проверка уровня %s провалена: %s", g.LevelID(), reason)
	}
	g.notify(st)
}

// Reset останавливает текущий прогон (если есть) и возвращает ворота
// в idle. Разборка слушателей единая: отмена контекста насоса и Stop
// прогона происходят до смены состояния, поэтому поздний колбэк уже
// не пройдёт проверку поколения.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.teardownLocked()
	changed := g.status != StatusIdle
	g.status = StatusIdle
	g.failReason = ""
	g.lastStats = nil
	g.mu.Unlock()

	if changed {
		g.notify(StatusIdle)
	}
}

// Stop — синоним Reset для остановки идущего прогона из UI.
func (g *Gate) Stop() { g.Reset() }

// teardownLocked гасит активный прогон. Вызывается под g.mu.
func (g *Gate) teardownLocked() {
	g.runSeq++
	if g.cancelPump != nil {
		g.cancelPump()
		g.cancelPump = nil
	}
	if g.run != nil {
		g.run.Stop()
		g.run = nil
	}
}

// onSaved вызывается хранилищем синхронно после успешного сохранения.
// Сохранение проверяемого уровня делает результат прогона устаревшим;
// сохранение во время идущего прогона гасит и сам прогон: его исход
// относился бы к уже не существующему снимку документа.
func (g *Gate) onSaved(levelID string) {
	g.mu.Lock()
	if levelID != g.levelID || g.status == StatusIdle {
		g.mu.Unlock()
		return
	}
	g.teardownLocked()
	g.status = StatusIdle
	g.failReason = ""
	g.lastStats = nil
	g.mu.Unlock()

	g.logger.Info("Сохранение уровня %s сбросило результат проверки", levelID)
	g.notify(StatusIdle)
}

// Publish публикует проверенный уровень. Ошибка публикации не трогает
// состояние passed: пользователь может повторить без новой проверки.
func (g *Gate) Publish(ctx context.Context) (platform.PublishResult, error) {
	g.mu.Lock()
	if g.status != StatusPassed {
		st := g.status
		g.mu.Unlock()
		return platform.PublishResult{}, fmt.Errorf("публикация доступна только после успешной проверки (состояние: %s)", st)
	}
	id := g.levelID
	g.mu.Unlock()

	result, err := g.service.Publish(ctx, id)
	if err != nil {
		g.logger.Error("Публикация уровня %s не удалась: %v", id, err)
		return result, err
	}
	g.logger.Info("Уровень %s опубликован: %s", id, result.Permalink)
	return result, nil
}

// Close отписывается от событий хранилища и останавливает прогон.
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
	g.Reset()
}
