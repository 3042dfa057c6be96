package get_court_settings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-CourtReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-CourtReservationService/internal/service/settings"
)

const (
	msgInvalidCourtID = "некорректный ID корта"
	msgCourtNotFound  = "корт не найден"
)

type Handler struct {
	service SettingsService
	logger  Logger
}

func NewHandler(service SettingsService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/courts/{courtId}/settings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	courtID, err := strconv.ParseInt(mux.Vars(r)["courtId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /courts/{id}/settings - Invalid court ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidCourtID)
		return
	}

	result, err := h.service.Get(r.Context(), courtID)
	if err != nil {
		if errors.Is(err, settings.ErrCourtNotFound) {
			h.logger.Warn("GET /courts/{id}/settings - Court not found: court_id=%d", courtID)
			handlers.RespondNotFound(w, msgCourtNotFound)
			return
		}

		h.logger.Error("GET /courts/{id}/settings - Failed to get settings: court_id=%d, error=%v", courtID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /courts/{id}/settings - Settings retrieved successfully: court_id=%d, level=%s",
		courtID, result.Level)
	handlers.RespondJSON(w, http.StatusOK, result)
}
