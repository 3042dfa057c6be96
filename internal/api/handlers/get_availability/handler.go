package get_availability

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/m04kA/SMC-CourtReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-CourtReservationService/internal/api/middleware"
	getAvailability "github.com/m04kA/SMC-CourtReservationService/internal/usecase/get_availability"
)

const (
	msgMissingDate      = "отсутствует обязательный параметр date"
	msgInvalidDate      = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgPastDate         = "нельзя проверить доступность на прошедшую дату"
	msgInvalidCourtID   = "некорректный ID корта"
	msgInvalidSubCourts = "некорректный список подкортов"
	msgCourtNotFound    = "корт не найден"
)

type Handler struct {
	useCase GetAvailabilityUseCase
	logger  Logger
}

func NewHandler(useCase GetAvailabilityUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/availability?date=2025-10-15&courtId=1&subCourts=0,1
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	date := query.Get("date")
	if date == "" {
		h.logger.Warn("GET /availability - Missing date parameter")
		handlers.RespondBadRequest(w, msgMissingDate)
		return
	}

	req := &getAvailability.Request{Date: date}

	if raw := query.Get("courtId"); raw != "" {
		courtID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || courtID <= 0 {
			h.logger.Warn("GET /availability - Invalid court ID: %s", raw)
			handlers.RespondBadRequest(w, msgInvalidCourtID)
			return
		}
		req.CourtID = &courtID
	}

	if raw := query.Get("subCourts"); raw != "" {
		subCourts, err := parseIndexes(raw)
		if err != nil {
			h.logger.Warn("GET /availability - Invalid sub-courts %q: %v", raw, err)
			handlers.RespondBadRequest(w, msgInvalidSubCourts)
			return
		}
		req.SubCourts = subCourts
	}

	// Пользователь необязателен, без него все даты с бронями считаются чужими
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		req.UserID = userID
	}

	result, err := h.useCase.Execute(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, getAvailability.ErrInvalidDate):
			h.logger.Warn("GET /availability - Invalid date: %s", date)
			handlers.RespondBadRequest(w, msgInvalidDate)

		case errors.Is(err, getAvailability.ErrPastDate):
			h.logger.Warn("GET /availability - Past date: %s", date)
			handlers.RespondBadRequest(w, msgPastDate)

		case errors.Is(err, getAvailability.ErrInvalidInput):
			h.logger.Warn("GET /availability - Invalid input: %v", err)
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, getAvailability.ErrCourtNotFound):
			h.logger.Warn("GET /availability - Court not found: court_id=%v", req.CourtID)
			handlers.RespondNotFound(w, msgCourtNotFound)

		default:
			h.logger.Error("GET /availability - Failed to get availability: date=%s, error=%v", date, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /availability - Availability retrieved successfully: date=%s, courts=%d",
		date, len(result.Courts))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}

func parseIndexes(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}
