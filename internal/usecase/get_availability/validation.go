package get_availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
)

// validateRequest валидирует запрос и возвращает дату в часовом поясе бизнеса
func validateRequest(req *Request, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(req.Date) == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidDate)
	}

	date, err := time.ParseInLocation(domain.DateFormat, req.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expected YYYY-MM-DD, got %q", ErrInvalidDate, req.Date)
	}

	if req.CourtID != nil && *req.CourtID <= 0 {
		return time.Time{}, fmt.Errorf("%w: courtId must be positive", ErrInvalidInput)
	}

	for _, idx := range req.SubCourts {
		if idx < 0 {
			return time.Time{}, fmt.Errorf("%w: sub-court index must not be negative", ErrInvalidInput)
		}
	}

	return date, nil
}
