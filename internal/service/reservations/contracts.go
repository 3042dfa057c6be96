package reservations

import (
	"context"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
)

// ReservationRepository интерфейс репозитория бронирований
type ReservationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	List(ctx context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error)
	Cancel(ctx context.Context, id int64, expected domain.ReservationStatus, expectedStep domain.PaymentStep) error
}

// DirectoryClient интерфейс клиента сервиса справочников
type DirectoryClient interface {
	GetCourt(ctx context.Context, courtID int64) (*directoryservice.Court, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier интерфейс канала уведомлений
type Notifier interface {
	Notify(eventType string, event domain.ReservationEvent)
}

// Metrics интерфейс доменных метрик
type Metrics interface {
	IncReservation(outcome string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
