package get_court_reservations

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-CourtReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-CourtReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-CourtReservationService/internal/service/reservations"
)

const (
	msgInvalidCourtID = "некорректный ID корта"
	msgMissingUserID  = "отсутствует ID пользователя"
	msgInvalidParams  = "некорректные параметры запроса"
	msgCourtNotFound  = "корт не найден"
	msgForbidden      = "доступ запрещен"
)

type Handler struct {
	service  ReservationService
	location *time.Location
	logger   Logger
}

func NewHandler(service ReservationService, location *time.Location, logger Logger) *Handler {
	return &Handler{
		service:  service,
		location: location,
		logger:   logger,
	}
}

// Handle GET /api/v1/courts/{courtId}/reservations
// Query params: startDate, endDate, includeInactive (опционально)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	courtID, err := strconv.ParseInt(mux.Vars(r)["courtId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /courts/{id}/reservations - Invalid court ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidCourtID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /courts/{id}/reservations - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	query := r.URL.Query()
	serviceReq, err := ToServiceRequest(courtID, userID,
		query.Get("startDate"), query.Get("endDate"), query.Get("includeInactive"), h.location)
	if err != nil {
		h.logger.Warn("GET /courts/{id}/reservations - Invalid parameters: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	// Сервис сам проверит, что пользователь владелец корта
	result, err := h.service.GetCourtReservations(r.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, reservations.ErrCourtNotFound):
			h.logger.Warn("GET /courts/{id}/reservations - Court not found: court_id=%d", courtID)
			handlers.RespondNotFound(w, msgCourtNotFound)

		case errors.Is(err, reservations.ErrAccessDenied):
			h.logger.Warn("GET /courts/{id}/reservations - Access denied: court_id=%d, user_id=%d", courtID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /courts/{id}/reservations - Failed to get reservations: court_id=%d, error=%v",
				courtID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /courts/{id}/reservations - Reservations retrieved successfully: court_id=%d, count=%d",
		courtID, len(result.Reservations))
	handlers.RespondJSON(w, http.StatusOK, result)
}
