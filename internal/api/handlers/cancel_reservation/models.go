package cancel_reservation

import (
	"github.com/m04kA/SMC-CourtReservationService/internal/service/reservations/models"
)

// ToServiceRequest формирует модель сервиса, автор отмены берется из X-User-ID
func ToServiceRequest(userID int64) *models.CancelReservationRequest {
	return &models.CancelReservationRequest{
		UserID: userID,
	}
}
