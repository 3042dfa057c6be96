package payment_webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/paypal"
	handlePayment "github.com/m04kA/SMC-CourtReservationService/internal/usecase/handle_payment"
)

const maxWebhookBody = 1 << 20

const releaseTimeout = 2 * time.Second

const (
	msgInvalidBody      = "некорректное тело запроса"
	msgInvalidSignature = "невалидная подпись вебхука"
	msgInvalidEvent     = "некорректное событие вебхука"
)

type Handler struct {
	useCase  HandlePaymentUseCase
	verifier SignatureVerifier
	events   EventStore
	logger   Logger
}

func NewHandler(useCase HandlePaymentUseCase, verifier SignatureVerifier, events EventStore, logger Logger) *Handler {
	return &Handler{
		useCase:  useCase,
		verifier: verifier,
		events:   events,
		logger:   logger,
	}
}

// Handle POST /api/v1/payments/webhook
// Ответ не 2xx заставляет провайдера повторить доставку
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("POST /payments/webhook - Failed to read body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBody)
		return
	}

	// 1. Подпись
	if err := h.verifier.Verify(r.Context(), r.Header, body); err != nil {
		if errors.Is(err, paypal.ErrInvalidSignature) {
			h.logger.Warn("POST /payments/webhook - Invalid signature: %v", err)
			handlers.RespondBadRequest(w, msgInvalidSignature)
			return
		}
		h.logger.Error("POST /payments/webhook - Failed to verify signature: %v", err)
		handlers.RespondInternalError(w)
		return
	}

	// 2. Событие
	event, err := paypal.ParseEvent(body)
	if err != nil {
		h.logger.Warn("POST /payments/webhook - Invalid event: %v", err)
		handlers.RespondBadRequest(w, msgInvalidEvent)
		return
	}

	paymentID := event.PaymentID()
	if paymentID == "" {
		h.logger.Info("POST /payments/webhook - Event without payment ignored: event_id=%s, type=%s", event.ID, event.EventType)
		handlers.RespondJSON(w, http.StatusOK, &WebhookAckResponse{EventID: event.ID, Result: resultIgnored})
		return
	}

	// 3. Повторная доставка того же события
	if acquired, err := h.events.Acquire(r.Context(), event.ID); err != nil {
		// Сверка идемпотентна, поэтому без Redis событие все равно обрабатывается
		h.logger.Warn("POST /payments/webhook - Dedup store unavailable, processing anyway: event_id=%s, error=%v", event.ID, err)
	} else if !acquired {
		h.logger.Info("POST /payments/webhook - Duplicate event dropped: event_id=%s", event.ID)
		handlers.RespondJSON(w, http.StatusOK, &WebhookAckResponse{EventID: event.ID, Result: resultDuplicate})
		return
	}

	// 4. Сверка
	result, err := h.useCase.Execute(r.Context(), &handlePayment.Request{PaymentID: paymentID})
	if err != nil {
		switch {
		case errors.Is(err, handlePayment.ErrReservationNotFound):
			h.logger.Warn("POST /payments/webhook - No reservation for payment: event_id=%s, payment_id=%s", event.ID, paymentID)
			handlers.RespondJSON(w, http.StatusOK, &WebhookAckResponse{EventID: event.ID, Result: resultIgnored})

		case errors.Is(err, handlePayment.ErrReconciliationPending):
			h.logger.Warn("POST /payments/webhook - Reconciliation pending: event_id=%s, payment_id=%s, error=%v",
				event.ID, paymentID, err)
			handlers.RespondJSON(w, http.StatusOK, &WebhookAckResponse{EventID: event.ID, Result: handlePayment.ResultPending})

		default:
			h.logger.Error("POST /payments/webhook - Failed to handle event: event_id=%s, payment_id=%s, error=%v",
				event.ID, paymentID, err)
			h.release(r.Context(), event.ID)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /payments/webhook - Event handled: event_id=%s, type=%s, payment_id=%s, result=%s",
		event.ID, event.EventType, paymentID, result.Result)
	handlers.RespondJSON(w, http.StatusOK, &WebhookAckResponse{EventID: event.ID, Result: result.Result})
}

// release снимает отметку, чтобы повторная доставка была обработана
func (h *Handler) release(ctx context.Context, eventID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := h.events.Release(rctx, eventID); err != nil {
		h.logger.Warn("POST /payments/webhook - Failed to release event marker: event_id=%s, error=%v", eventID, err)
	}
}
