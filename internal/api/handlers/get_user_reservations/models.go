package get_user_reservations

import (
	"net/url"

	"github.com/m04kA/SMC-CourtReservationService/internal/service/reservations/models"
)

// ToServiceRequest формирует запрос к сервису из query параметров
func ToServiceRequest(userID, requesterID int64, query url.Values) *models.GetUserReservationsRequest {
	return &models.GetUserReservationsRequest{
		UserID:       userID,
		RequesterID:  requesterID,
		DateFilter:   optional(query.Get("dateFilter")),
		StatusFilter: optional(query.Get("statusFilter")),
		SortOrder:    optional(query.Get("sortOrder")),
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
