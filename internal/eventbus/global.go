package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var globalBus EventBus

// Init устанавливает глобальную шину.
func Init(bus EventBus) { globalBus = bus }

// Global возвращает текущую глобальную шину (nil до Init).
func Global() EventBus { return globalBus }

// Publish отправляет событие в глобальную шину, если она инициализирована.
func Publish(ctx context.Context, ev *Envelope) error {
	if globalBus == nil {
		return nil
	}
	return globalBus.Publish(ctx, ev)
}

// PublishLevelEvent собирает и публикует событие, связанное с уровнем.
// Удобная обёртка для store/verify: заполняет ID, Timestamp и Source.
func PublishLevelEvent(ctx context.Context, source, eventType, levelID string, payload []byte) error {
	return Publish(ctx, &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		LevelID:   levelID,
		Priority:  5,
		Payload:   payload,
	})
}
