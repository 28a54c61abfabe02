package harness

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"

	"github.com/annel0/starforge/internal/logging"
)

// Типы кадров протокола симулятора.
const (
	frameLaunch    = "launch"
	frameStop      = "stop"
	frameCompleted = "completed"
	frameFailed    = "failed"
	frameStats     = "stats"
)

// launchFrame — первый кадр соединения: уровень и режим прогона.
type launchFrame struct {
	Type      string          `json:"type"`
	TestMode  bool            `json:"testMode"`
	LevelData json.RawMessage `json:"levelData"`
}

// simEvent — входящий кадр от симулятора.
type simEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
	Stats  *Stats `json:"stats,omitempty"`
}

// KCPClient — транспорт до симулятора поверх KCP. Кадры — JSON,
// разделённые переводом строки: launch от редактора, затем поток
// событий от симулятора, stop при остановке.
type KCPClient struct {
	addr        string
	dialTimeout time.Duration
	logger      *logging.Logger
}

// NewKCPClient создаёт клиент для симулятора по адресу addr.
func NewKCPClient(addr string) *KCPClient {
	return &KCPClient{
		addr:        addr,
		dialTimeout: 5 * time.Second,
		logger:      logging.GetVerifyLogger(),
	}
}

// Launch открывает соединение, отправляет уровень и начинает читать
// события прогона. Ошибка набора или записи кадра означает, что прогон
// так и не начался.
func (c *KCPClient) Launch(ctx context.Context, levelData []byte, testMode bool) (*Run, error) {
	conn, err := kcp.DialWithOptions(c.addr, nil, 10, 3)
	if err != nil {
		return nil, fmt.Errorf("набор соединения с симулятором %s: %w", c.addr, err)
	}
	conn.SetStreamMode(true)
	conn.SetNoDelay(1, 10, 2, 1)

	frame := launchFrame{Type: frameLaunch, TestMode: testMode, LevelData: levelData}
	if err := writeFrame(conn, frame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("отправка launch-кадра: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(func() {
		// stop-кадр уведомляет симулятор; после него соединение своё
		// и контекст насоса закрываются независимо от результата записи.
		if err := writeFrame(conn, simEvent{Type: frameStop}); err != nil {
			c.logger.Debug("Отправка stop-кадра не удалась: %v", err)
		}
		cancel()
		conn.Close()
	})

	go c.readLoop(runCtx, conn, run)
	c.logger.Info("Прогон запущен: симулятор %s, testMode=%v, уровень %d байт",
		c.addr, testMode, len(levelData))
	return run, nil
}

// readLoop читает кадры до исхода прогона, ошибки чтения или отмены.
func (c *KCPClient) readLoop(ctx context.Context, conn net.Conn, run *Run) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var ev simEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			c.logger.Warn("Нечитаемый кадр от симулятора: %v", err)
			continue
		}

		switch ev.Type {
		case frameCompleted:
			run.signalCompleted()
			return
		case frameFailed:
			run.signalFailed(ev.Reason)
			return
		case frameStats:
			if ev.Stats != nil {
				run.pushStats(*ev.Stats)
			}
		default:
			c.logger.Debug("Неизвестный тип кадра от симулятора: %q", ev.Type)
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		run.signalFailed(fmt.Sprintf("соединение с симулятором прервано: %v", err))
	}
}

func writeFrame(conn net.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}
