package create_reservation

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-CourtReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-CourtReservationService/internal/api/middleware"
	createReservation "github.com/m04kA/SMC-CourtReservationService/internal/usecase/create_reservation"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgMissingFields      = "обязательные поля: courtId, date, timeSlot.from, timeSlot.to, selectedCourts"
	msgInvalidInput       = "некорректные данные бронирования"
	msgPastDate           = "нельзя забронировать прошедшую дату"
	msgPastTimeSlot       = "выбранный временной слот уже начался"
	msgIndexOutOfBounds   = "выбран несуществующий подкорт"
	msgSlotUnavailable    = "выбранный временной слот недоступен"
	msgOutsideHours       = "слот выходит за часы работы корта"
	msgInvalidTimeRange   = "время начала должно быть раньше времени окончания"
	msgTooLateToBook      = "слишком поздно для бронирования этого слота"
	msgDateTooFar         = "дата бронирования слишком далеко в будущем"
	msgCourtNotFound      = "корт не найден"
	msgPaymentFailed      = "не удалось создать платеж, бронирование не создано"
)

type Handler struct {
	useCase CreateReservationUseCase
	logger  Logger
}

func NewHandler(useCase CreateReservationUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /reservations - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateReservationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /reservations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(userID))
	if err != nil {
		h.respondError(w, err, userID, req.CourtID)
		return
	}

	h.logger.Info("POST /reservations - Reservation created successfully: reservation_id=%d, user_id=%d, court_id=%d",
		result.Reservation.ID, userID, req.CourtID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}

func (h *Handler) respondError(w http.ResponseWriter, err error, userID, courtID int64) {
	badRequests := []struct {
		target error
		msg    string
	}{
		{createReservation.ErrMissingFields, msgMissingFields},
		{createReservation.ErrPastDate, msgPastDate},
		{createReservation.ErrPastTimeSlot, msgPastTimeSlot},
		{createReservation.ErrCourtIndexOutOfBounds, msgIndexOutOfBounds},
		{createReservation.ErrOutsideOperatingHours, msgOutsideHours},
		{createReservation.ErrInvalidTimeRange, msgInvalidTimeRange},
		{createReservation.ErrLeadTimeViolation, msgTooLateToBook},
		{createReservation.ErrDateTooFarInFuture, msgDateTooFar},
		{createReservation.ErrInvalidInput, msgInvalidInput},
	}

	for _, br := range badRequests {
		if errors.Is(err, br.target) {
			h.logger.Warn("POST /reservations - Rejected: user_id=%d, court_id=%d, reason=%v", userID, courtID, err)
			handlers.RespondBadRequest(w, br.msg)
			return
		}
	}

	switch {
	case errors.Is(err, createReservation.ErrSlotUnavailable):
		h.logger.Warn("POST /reservations - Slot unavailable: user_id=%d, court_id=%d", userID, courtID)
		handlers.RespondConflict(w, msgSlotUnavailable)

	case errors.Is(err, createReservation.ErrCourtNotFound):
		h.logger.Warn("POST /reservations - Court not found: court_id=%d", courtID)
		handlers.RespondNotFound(w, msgCourtNotFound)

	case errors.Is(err, createReservation.ErrPaymentProvider):
		h.logger.Error("POST /reservations - Payment initiation failed: user_id=%d, court_id=%d, error=%v",
			userID, courtID, err)
		handlers.RespondBadGateway(w, msgPaymentFailed)

	default:
		h.logger.Error("POST /reservations - Failed to create reservation: user_id=%d, court_id=%d, error=%v",
			userID, courtID, err)
		handlers.RespondInternalError(w)
	}
}
