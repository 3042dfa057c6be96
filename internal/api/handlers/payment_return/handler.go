package payment_return

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-CourtReservationService/internal/api/handlers"
	handlePayment "github.com/m04kA/SMC-CourtReservationService/internal/usecase/handle_payment"
)

const (
	msgMissingToken         = "отсутствует токен платежа"
	msgInvalidReservationID = "некорректный ID бронирования"
	msgNotFound             = "бронирование для платежа не найдено"
	msgMismatch             = "платеж относится к другому бронированию"
	msgProviderUnavailable  = "платежный провайдер недоступен, повторите позже"
)

type Handler struct {
	useCase HandlePaymentUseCase
	logger  Logger
}

func NewHandler(useCase HandlePaymentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/payments/return?token=ORDER-ID&reservationId=15
// Сюда провайдер возвращает пользователя после подтверждения или отмены платежа
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	token := query.Get("token")
	if token == "" {
		h.logger.Warn("GET /payments/return - Missing token")
		handlers.RespondBadRequest(w, msgMissingToken)
		return
	}

	req := &handlePayment.Request{PaymentID: token}
	if raw := query.Get("reservationId"); raw != "" {
		reservationID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.logger.Warn("GET /payments/return - Invalid reservation ID: %v", err)
			handlers.RespondBadRequest(w, msgInvalidReservationID)
			return
		}
		req.ReservationID = &reservationID
	}

	result, err := h.useCase.Execute(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, handlePayment.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgMissingToken)

		case errors.Is(err, handlePayment.ErrReservationNotFound):
			h.logger.Warn("GET /payments/return - Reservation not found: token=%s", token)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, handlePayment.ErrReservationMismatch):
			h.logger.Warn("GET /payments/return - Reservation mismatch: token=%s, reservation_id=%v", token, req.ReservationID)
			handlers.RespondBadRequest(w, msgMismatch)

		case errors.Is(err, handlePayment.ErrReconciliationPending):
			// Деньги списаны, подтверждение завершит фоновая сверка
			h.logger.Warn("GET /payments/return - Reconciliation pending: token=%s, error=%v", token, err)
			handlers.RespondJSON(w, http.StatusAccepted, &PaymentResultResponse{Result: handlePayment.ResultPending})

		case errors.Is(err, handlePayment.ErrPaymentProvider):
			h.logger.Error("GET /payments/return - Payment provider error: token=%s, error=%v", token, err)
			handlers.RespondBadGateway(w, msgProviderUnavailable)

		default:
			h.logger.Error("GET /payments/return - Failed to handle payment: token=%s, error=%v", token, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /payments/return - Payment handled: token=%s, result=%s", token, result.Result)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
