package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/annel0/starforge/internal/logging"
)

// HTTPPublisher отправляет уровни платформе по HTTP (POST /api/posts).
// Ответ 200/201 — новый пост, 409 — повтор токена: платформа возвращает
// ранее созданный пост, который мы отдаём как успех.
type HTTPPublisher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPPublisher создаёт клиента платформы.
func NewHTTPPublisher(baseURL string, timeout time.Duration) *HTTPPublisher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPPublisher{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Publish выполняет запрос публикации.
func (p *HTTPPublisher) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return PublishResult{}, fmt.Errorf("сериализация запроса публикации: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/posts", bytes.NewReader(body))
	if err != nil {
		return PublishResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Client-Publish-Token", req.ClientPublishToken)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return PublishResult{}, fmt.Errorf("запрос к платформе: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return PublishResult{}, fmt.Errorf("чтение ответа платформы: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var result PublishResult
		if err := json.Unmarshal(respBody, &result); err != nil {
			return PublishResult{}, fmt.Errorf("разбор ответа платформы: %w", err)
		}
		return result, nil

	case http.StatusConflict:
		// Повтор токена: тело содержит ранее созданный пост.
		var result PublishResult
		if err := json.Unmarshal(respBody, &result); err != nil {
			return PublishResult{}, fmt.Errorf("разбор ответа на повтор токена: %w", err)
		}
		logging.Info("Платформа дедуплицировала публикацию уровня %s (post=%s)", req.LevelID, result.PostID)
		return result, ErrDuplicateToken

	default:
		return PublishResult{}, fmt.Errorf("платформа отклонила публикацию: HTTP %d: %s",
			resp.StatusCode, string(respBody))
	}
}
