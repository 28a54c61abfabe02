package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryPublisher — локальная платформа для разработки и тестов.
// Дедуплицирует публикации по клиентскому токену так же, как настоящая.
type MemoryPublisher struct {
	mu      sync.Mutex
	byToken map[string]PublishResult

	// FailNext заставляет следующий вызов Publish вернуть ошибку (для тестов).
	FailNext error
}

// NewMemoryPublisher создаёт in-memory платформу публикации.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		byToken: make(map[string]PublishResult),
	}
}

// Publish регистрирует пост либо возвращает прежний результат по токену.
func (p *MemoryPublisher) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	select {
	case <-ctx.Done():
		return PublishResult{}, ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.FailNext; err != nil {
		p.FailNext = nil
		return PublishResult{}, err
	}

	if prior, ok := p.byToken[req.ClientPublishToken]; ok {
		return prior, ErrDuplicateToken
	}

	postID := uuid.NewString()
	result := PublishResult{
		PostID:    postID,
		Permalink: fmt.Sprintf("https://platform.local/posts/%s", postID),
		Title:     req.Name,
		CreatedAt: time.Now().UTC(),
	}
	p.byToken[req.ClientPublishToken] = result
	return result, nil
}

// PublishedCount возвращает число уникальных постов (для тестов).
func (p *MemoryPublisher) PublishedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byToken)
}
