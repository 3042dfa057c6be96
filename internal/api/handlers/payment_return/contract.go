package payment_return

import (
	"context"

	handlePayment "github.com/m04kA/SMC-CourtReservationService/internal/usecase/handle_payment"
)

type HandlePaymentUseCase interface {
	Execute(ctx context.Context, req *handlePayment.Request) (*handlePayment.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
