package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
)

const publishTimeout = 2 * time.Second

var (
	// ErrPublish возвращается при ошибке публикации события
	ErrPublish = errors.New("broadcast: failed to publish event")
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// FailureCounter учитывает неудачные публикации
type FailureCounter interface {
	IncBroadcastFailure(event string)
}

// Message конверт события в канале уведомлений
type Message struct {
	ID        string                  `json:"id"`
	Type      string                  `json:"type"`
	Payload   domain.ReservationEvent `json:"payload"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Publisher публикует события бронирований в канал Redis Pub/Sub
type Publisher struct {
	client   *redis.Client
	channel  string
	failures FailureCounter
	log      Logger
}

// NewPublisher создает издателя уведомлений
func NewPublisher(client *redis.Client, channel string, failures FailureCounter, log Logger) *Publisher {
	return &Publisher{
		client:   client,
		channel:  channel,
		failures: failures,
		log:      log,
	}
}

// Publish синхронно публикует событие
func (p *Publisher) Publish(ctx context.Context, eventType string, event domain.ReservationEvent) error {
	msg := Message{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   event,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: Publish - marshal: %v", ErrPublish, err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("%w: Publish - %s: %v", ErrPublish, eventType, err)
	}

	return nil
}

// Notify публикует событие в фоне. Ошибка публикации только логируется.
func (p *Publisher) Notify(eventType string, event domain.ReservationEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := p.Publish(ctx, eventType, event); err != nil {
			p.log.Warn("Failed to broadcast %s for reservation %d: %v", eventType, event.ReservationID, err)
			if p.failures != nil {
				p.failures.IncBroadcastFailure(eventType)
			}
		}
	}()
}
