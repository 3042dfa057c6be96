package get_reservation

import (
	"context"

	"github.com/m04kA/SMC-CourtReservationService/internal/service/reservations/models"
)

type ReservationService interface {
	GetByID(ctx context.Context, reservationID int64, userID int64) (*models.ReservationResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
