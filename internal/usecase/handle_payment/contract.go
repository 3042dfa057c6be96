package handle_payment

import (
	"context"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/paypal"
)

// ReservationRepository интерфейс репозитория бронирований
type ReservationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Reservation, error)
	MarkCaptured(ctx context.Context, id int64, capture domain.PaymentCapture) error
	MarkPaidOut(ctx context.Context, id int64, batchID string) error
	Confirm(ctx context.Context, id int64) error
	Settle(ctx context.Context, id int64) error
	DeletePending(ctx context.Context, id int64) (bool, error)
}

// PaymentProvider интерфейс платежного провайдера
type PaymentProvider interface {
	GetPaymentDetails(ctx context.Context, paymentID string) (*paypal.PaymentDetails, error)
	CapturePayment(ctx context.Context, paymentID string) (*paypal.Capture, error)
	CreatePayout(ctx context.Context, req paypal.PayoutRequest) (*paypal.Payout, error)
}

// DirectoryClient интерфейс клиента сервиса справочников
type DirectoryClient interface {
	GetPaymentRecipient(ctx context.Context, courtID int64) (*directoryservice.PaymentRecipient, error)
}

// Notifier интерфейс канала уведомлений
type Notifier interface {
	Notify(eventType string, event domain.ReservationEvent)
}

// Metrics интерфейс доменных метрик
type Metrics interface {
	IncReconciliation(result string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
