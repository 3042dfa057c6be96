package get_court_reservations

import (
	"context"

	"github.com/m04kA/SMC-CourtReservationService/internal/service/reservations/models"
)

type ReservationService interface {
	GetCourtReservations(ctx context.Context, req *models.GetCourtReservationsRequest) (*models.ReservationListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
