// Package platform содержит клиент внешней платформы хостинга,
// создающей из уровня публикуемый пост.
package platform

import (
	"context"
	"errors"
	"time"
)

// PublishRequest — запрос на создание поста из уровня.
// ClientPublishToken — стабильный клиентский токен идемпотентности,
// выведенный из (levelId, lastModified): платформа обязана дедуплицировать
// повторы по нему, а не создавать второй пост.
type PublishRequest struct {
	LevelID            string `json:"level_id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	AuthorDisplay      string `json:"author_display"`
	LevelData          []byte `json:"level_data"`
	ClientPublishToken string `json:"client_publish_token"`
}

// PublishResult — долговременный идентификатор поста и пермалинк.
type PublishResult struct {
	PostID    string    `json:"post_id"`
	Permalink string    `json:"permalink"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrDuplicateToken сигнализирует, что платформа уже принимала этот токен.
// Вызывающий трактует его как успех: публикация уже состоялась.
var ErrDuplicateToken = errors.New("токен публикации уже использован")

// Publisher — узкий интерфейс платформы публикации.
type Publisher interface {
	// Publish отправляет документ уровня платформе. При повторе токена
	// реализация обязана вернуть прежний результат (или результат вместе
	// с ErrDuplicateToken), но не создавать дубликат.
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}
