package eventbus

import (
	"context"

	"github.com/annel0/starforge/internal/logging"
)

// StartLoggingListener подписывается на все события редактора и пишет их в лог.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) error {
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		logging.Debug("[EventBus] %s %s src=%s level=%s size=%dB", ev.ID, ev.EventType, ev.Source, ev.LevelID, len(ev.Payload))
	})
	if err != nil {
		return err
	}
	logging.Info("🪵 LoggingListener: подписка на все события активирована")
	return nil
}
