package create_reservation

import (
	"context"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/paypal"
)

// ReservationRepository интерфейс репозитория бронирований
type ReservationRepository interface {
	Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	List(ctx context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error)
	SetPaymentInitiated(ctx context.Context, id int64, paymentID string) error
	DeletePending(ctx context.Context, id int64) (bool, error)
}

// SettingsRepository интерфейс репозитория настроек бронирования
type SettingsRepository interface {
	GetWithHierarchy(ctx context.Context, courtID int64) (*domain.CourtBookingSettings, error)
}

// DirectoryClient интерфейс клиента сервиса справочников
type DirectoryClient interface {
	GetCourt(ctx context.Context, courtID int64) (*directoryservice.Court, error)
	GetPaymentRecipient(ctx context.Context, courtID int64) (*directoryservice.PaymentRecipient, error)
}

// PaymentProvider интерфейс платежного провайдера
type PaymentProvider interface {
	CreatePayment(ctx context.Context, req paypal.CreatePaymentRequest) (*paypal.Payment, error)
}

// Notifier интерфейс канала уведомлений
type Notifier interface {
	Notify(eventType string, event domain.ReservationEvent)
}

// Metrics интерфейс доменных метрик
type Metrics interface {
	IncReservation(outcome string)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
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
