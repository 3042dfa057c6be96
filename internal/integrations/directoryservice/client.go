package directoryservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент для работы с сервисом справочников (корты, получатели выплат)
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetCourt получает корт по ID
func (c *Client) GetCourt(ctx context.Context, courtID int64) (*Court, error) {
	var court Court
	url := fmt.Sprintf("%s/internal/courts/%d", c.baseURL, courtID)
	if err := c.get(ctx, url, ErrCourtNotFound, &court); err != nil {
		return nil, err
	}
	return &court, nil
}

// ListCourts получает все корты
func (c *Client) ListCourts(ctx context.Context) ([]Court, error) {
	var courts []Court
	url := fmt.Sprintf("%s/internal/courts", c.baseURL)
	if err := c.get(ctx, url, ErrCourtNotFound, &courts); err != nil {
		return nil, err
	}
	return courts, nil
}

// GetPaymentRecipient получает получателя выплат по корту
func (c *Client) GetPaymentRecipient(ctx context.Context, courtID int64) (*PaymentRecipient, error) {
	var recipient PaymentRecipient
	url := fmt.Sprintf("%s/internal/courts/%d/payment-recipient", c.baseURL, courtID)
	if err := c.get(ctx, url, ErrRecipientNotFound, &recipient); err != nil {
		return nil, err
	}
	return &recipient, nil
}

func (c *Client) get(ctx context.Context, url string, notFound error, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusBadRequest:
		return fmt.Errorf("%w: invalid court ID format", ErrInvalidResponse)
	case http.StatusNotFound:
		return notFound
	default:
		body, _ := io.ReadAll(resp.Body)
		c.log.Error("Directory service responded %d for %s", resp.StatusCode, url)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	// Парсим ответ
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return nil
}
