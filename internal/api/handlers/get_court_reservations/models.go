package get_court_reservations

import (
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/service/reservations/models"
)

// ToServiceRequest формирует запрос к сервису из query параметров.
// Даты разбираются в часовом поясе бизнеса.
func ToServiceRequest(courtID, userID int64, startDate, endDate, includeInactive string, loc *time.Location) (*models.GetCourtReservationsRequest, error) {
	req := &models.GetCourtReservationsRequest{
		UserID:  userID,
		CourtID: courtID,
	}

	if startDate != "" {
		d, err := time.ParseInLocation(domain.DateFormat, startDate, loc)
		if err != nil {
			return nil, fmt.Errorf("startDate: %w", err)
		}
		req.StartDate = &d
	}

	if endDate != "" {
		d, err := time.ParseInLocation(domain.DateFormat, endDate, loc)
		if err != nil {
			return nil, fmt.Errorf("endDate: %w", err)
		}
		req.EndDate = &d
	}

	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, fmt.Errorf("endDate is before startDate")
	}

	if includeInactive != "" {
		v, err := strconv.ParseBool(includeInactive)
		if err != nil {
			return nil, fmt.Errorf("includeInactive: %w", err)
		}
		req.IncludeInactive = v
	}

	return req, nil
}
