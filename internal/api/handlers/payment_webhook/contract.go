package payment_webhook

import (
	"context"
	"net/http"

	handlePayment "github.com/m04kA/SMC-CourtReservationService/internal/usecase/handle_payment"
)

type HandlePaymentUseCase interface {
	Execute(ctx context.Context, req *handlePayment.Request) (*handlePayment.Response, error)
}

// SignatureVerifier проверка подписи вебхука
type SignatureVerifier interface {
	Verify(ctx context.Context, header http.Header, body []byte) error
}

// EventStore отметки обработанных событий
type EventStore interface {
	Acquire(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
