package handle_payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/paypal"
)

// UseCase use case сверки платежа бронирования.
// Повторный вызов для той же брони безопасен: шаги саги сохраняются в БД
// и переходы выполняются условными обновлениями.
type UseCase struct {
	reservationRepo ReservationRepository
	payments        PaymentProvider
	directory       DirectoryClient
	notifier        Notifier
	metrics         Metrics
	providerTimeout time.Duration
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	reservationRepo ReservationRepository,
	payments PaymentProvider,
	directory DirectoryClient,
	notifier Notifier,
	metrics Metrics,
	providerTimeout time.Duration,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		payments:        payments,
		directory:       directory,
		notifier:        notifier,
		metrics:         metrics,
		providerTimeout: providerTimeout,
		logger:          logger,
	}
}

// Execute сверяет платеж по токену (возврат плательщика, вебхук)
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.PaymentID) == "" {
		return nil, fmt.Errorf("%w: payment token is required", ErrInvalidInput)
	}

	res, err := uc.reservationRepo.GetByPaymentID(ctx, req.PaymentID)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			uc.logger.Warn("HandlePayment: no reservation for payment=%s", req.PaymentID)
			return nil, ErrReservationNotFound
		}
		uc.logger.Error("HandlePayment: failed to get reservation by payment=%s: %v", req.PaymentID, err)
		return nil, fmt.Errorf("%w: failed to get reservation: %v", ErrInternal, err)
	}

	if req.ReservationID != nil && *req.ReservationID != res.ID {
		uc.logger.Warn("HandlePayment: payment=%s belongs to reservation id=%d, not %d",
			req.PaymentID, res.ID, *req.ReservationID)
		return nil, ErrReservationMismatch
	}

	return uc.Reconcile(ctx, res)
}

// Reconcile доводит бронь до конечного состояния по статусу платежа у провайдера
func (uc *UseCase) Reconcile(ctx context.Context, res *domain.Reservation) (*Response, error) {
	resp, err := uc.reconcile(ctx, res)

	result := ResultFailed
	switch {
	case err == nil:
		result = resp.Result
	case errors.Is(err, ErrReconciliationPending):
		result = ResultPending
	}
	uc.metrics.IncReconciliation(result)

	return resp, err
}

func (uc *UseCase) reconcile(ctx context.Context, res *domain.Reservation) (*Response, error) {
	switch {
	case res.PaymentStep == domain.StepCompleted || res.IsPaid():
		uc.logger.Info("HandlePayment: reservation id=%d already completed", res.ID)
		return &Response{Reservation: res, Result: ResultAlreadyCompleted}, nil
	case res.PaymentStep == domain.StepCaptured || res.PaymentStep == domain.StepPaidOut:
		// Деньги уже списаны: сага доводится и для отмененной брони
		return uc.runSaga(ctx, res, nil)
	case res.IsCancelled():
		uc.logger.Info("HandlePayment: reservation id=%d is cancelled, skipping", res.ID)
		return &Response{Reservation: res, Result: ResultNoop}, nil
	case res.PaymentID == nil:
		uc.logger.Warn("HandlePayment: reservation id=%d has no payment", res.ID)
		return &Response{Reservation: res, Result: ResultNoop}, nil
	}

	details, err := uc.paymentDetails(ctx, *res.PaymentID)
	if err != nil {
		uc.logger.Error("HandlePayment: failed to get payment=%s details: %v", *res.PaymentID, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	uc.logger.Info("HandlePayment: reservation id=%d, payment=%s, status=%s", res.ID, details.ID, details.Status)

	switch details.Status {
	case paypal.StatusPayerActionRequired, paypal.StatusVoided:
		return uc.cancelUnpaid(ctx, res)
	case paypal.StatusApproved, paypal.StatusCompleted:
		return uc.runSaga(ctx, res, details)
	default:
		return &Response{Reservation: res, Result: ResultNoop}, nil
	}
}

// cancelUnpaid удаляет брошенную бронь. Уведомление уходит, только если удалена строка.
func (uc *UseCase) cancelUnpaid(ctx context.Context, res *domain.Reservation) (*Response, error) {
	if !res.IsAwaitingPayment() {
		uc.logger.Info("HandlePayment: reservation id=%d is %s/%s, not removing", res.ID, res.Status, res.PaymentStatus)
		return &Response{Reservation: res, Result: ResultNoop}, nil
	}

	deleted, err := uc.reservationRepo.DeletePending(ctx, res.ID)
	if err != nil {
		uc.logger.Error("HandlePayment: failed to delete reservation id=%d: %v", res.ID, err)
		return nil, fmt.Errorf("%w: failed to delete reservation: %v", ErrInternal, err)
	}
	if !deleted {
		uc.logger.Info("HandlePayment: reservation id=%d already removed or paid", res.ID)
		return &Response{Reservation: res, Result: ResultNoop}, nil
	}

	res.Status = domain.StatusCancelled
	uc.logger.Info("HandlePayment: unpaid reservation id=%d removed", res.ID)

	uc.notifier.Notify(domain.EventReservationCanceled, domain.ReservationEvent{
		ReservationID: res.ID,
		CourtID:       res.CourtID,
		Date:          res.Date.Format(domain.DateFormat),
	})

	return &Response{Reservation: res, Result: ResultCancelled}, nil
}

// runSaga списание -> выплата владельцу -> подтверждение, начиная с сохраненного шага.
// details нужен только для шага initiated.
func (uc *UseCase) runSaga(ctx context.Context, res *domain.Reservation, details *paypal.PaymentDetails) (*Response, error) {
	// 1. Списание
	if res.PaymentStep == domain.StepInitiated {
		capture, err := uc.capture(ctx, res, details)
		if err != nil {
			uc.logger.Error("HandlePayment: failed to capture payment=%s of reservation id=%d: %v",
				*res.PaymentID, res.ID, err)
			return nil, fmt.Errorf("%w: capture: %v", ErrPaymentProvider, err)
		}

		res.TransactionID = &capture.TransactionID
		if err := uc.reservationRepo.MarkCaptured(ctx, res.ID, *capture); err != nil {
			return uc.afterStepFailure(ctx, res, "MarkCaptured", err)
		}
		res.PayerEmail = &capture.PayerEmail
		res.PayerID = &capture.PayerID
		res.PaymentStep = domain.StepCaptured
	}

	// 2. Выплата владельцу корта
	if res.PaymentStep == domain.StepCaptured {
		batchID, err := uc.payout(ctx, res)
		if err != nil {
			uc.logger.Error("HandlePayment: payout failed, reservation id=%d, transaction=%s: %v",
				res.ID, transactionID(res), err)
			return nil, fmt.Errorf("%w: payout: %v", ErrReconciliationPending, err)
		}

		if err := uc.reservationRepo.MarkPaidOut(ctx, res.ID, batchID); err != nil {
			return uc.afterStepFailure(ctx, res, "MarkPaidOut", err)
		}
		res.PayoutBatchID = &batchID
		res.PaymentStep = domain.StepPaidOut
	}

	// 3. Подтверждение либо закрытие отмененной брони
	if res.IsCancelled() {
		return uc.settleCancelled(ctx, res)
	}
	if err := uc.reservationRepo.Confirm(ctx, res.ID); err != nil {
		return uc.afterStepFailure(ctx, res, "Confirm", err)
	}
	res.Status = domain.StatusConfirmed
	res.PaymentStatus = domain.PaymentPaid
	res.PaymentStep = domain.StepCompleted

	uc.logger.Info("HandlePayment: reservation id=%d confirmed, transaction=%s", res.ID, transactionID(res))

	return &Response{Reservation: res, Result: ResultConfirmed}, nil
}

// settleCancelled закрывает сагу брони, отмененной после списания. Возврат не выполняется.
func (uc *UseCase) settleCancelled(ctx context.Context, res *domain.Reservation) (*Response, error) {
	if err := uc.reservationRepo.Settle(ctx, res.ID); err != nil {
		uc.logger.Error("HandlePayment: Settle failed, reservation id=%d, transaction=%s: %v",
			res.ID, transactionID(res), err)
		return nil, fmt.Errorf("%w: Settle: %v", ErrReconciliationPending, err)
	}
	res.PaymentStatus = domain.PaymentPaid
	res.PaymentStep = domain.StepCompleted

	uc.logger.Warn("HandlePayment: reservation id=%d cancelled after capture, funds kept without refund, transaction=%s",
		res.ID, transactionID(res))

	return &Response{Reservation: res, Result: ResultSettled}, nil
}

func (uc *UseCase) capture(ctx context.Context, res *domain.Reservation, details *paypal.PaymentDetails) (*domain.PaymentCapture, error) {
	if details != nil && details.Status == paypal.StatusCompleted {
		// Заказ списан раньше, но шаг не успел сохраниться
		if details.TransactionID == "" {
			return nil, fmt.Errorf("order %s is completed without capture", details.ID)
		}
		uc.logger.Warn("HandlePayment: payment=%s already captured by provider, transaction=%s",
			*res.PaymentID, details.TransactionID)
		return &domain.PaymentCapture{
			TransactionID: details.TransactionID,
			PayerEmail:    details.PayerEmail,
			PayerID:       details.PayerID,
		}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
	defer cancel()

	capture, err := uc.payments.CapturePayment(cctx, *res.PaymentID)
	if err != nil {
		return nil, err
	}

	return &domain.PaymentCapture{
		TransactionID: capture.TransactionID,
		PayerEmail:    capture.PayerEmail,
		PayerID:       capture.PayerID,
	}, nil
}

func (uc *UseCase) payout(ctx context.Context, res *domain.Reservation) (string, error) {
	recipient, err := uc.directory.GetPaymentRecipient(ctx, res.CourtID)
	if err != nil {
		return "", fmt.Errorf("payment recipient: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
	defer cancel()

	payout, err := uc.payments.CreatePayout(pctx, paypal.PayoutRequest{
		SenderBatchID: payoutBatchID(res.ID),
		ReceiverEmail: recipient.PayoutEmail,
		Amount:        res.TotalAmount,
		Note:          fmt.Sprintf("Court reservation #%d", res.ID),
	})
	if err != nil {
		return "", err
	}

	return payout.BatchID, nil
}

func (uc *UseCase) paymentDetails(ctx context.Context, paymentID string) (*paypal.PaymentDetails, error) {
	dctx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
	defer cancel()

	return uc.payments.GetPaymentDetails(dctx, paymentID)
}

// afterStepFailure обрабатывает ошибку записи шага после списания.
// При конкурентном изменении перечитывает бронь: другой обработчик мог довести сагу.
func (uc *UseCase) afterStepFailure(ctx context.Context, res *domain.Reservation, step string, err error) (*Response, error) {
	if !errors.Is(err, reservationRepo.ErrStateConflict) {
		uc.logger.Error("HandlePayment: %s failed, reservation id=%d, transaction=%s: %v",
			step, res.ID, transactionID(res), err)
		return nil, fmt.Errorf("%w: %s: %v", ErrReconciliationPending, step, err)
	}

	current, getErr := uc.reservationRepo.GetByID(ctx, res.ID)
	if getErr != nil {
		uc.logger.Error("HandlePayment: %s conflicted and reservation id=%d could not be re-read, transaction=%s: %v",
			step, res.ID, transactionID(res), getErr)
		return nil, fmt.Errorf("%w: %s: %v", ErrReconciliationPending, step, getErr)
	}

	switch {
	case current.PaymentStep == domain.StepCompleted:
		uc.logger.Info("HandlePayment: reservation id=%d completed concurrently", res.ID)
		return &Response{Reservation: current, Result: ResultAlreadyCompleted}, nil
	case current.IsCancelled() && current.PaymentStep == domain.StepPaidOut:
		uc.logger.Warn("HandlePayment: reservation id=%d cancelled during reconciliation, transaction=%s",
			res.ID, transactionID(current))
		return uc.settleCancelled(ctx, current)
	case current.IsCancelled():
		uc.logger.Error("HandlePayment: reservation id=%d cancelled at step %s with captured funds, transaction=%s",
			res.ID, current.PaymentStep, transactionID(res))
		return nil, fmt.Errorf("%w: %s: cancelled concurrently", ErrReconciliationPending, step)
	default:
		uc.logger.Warn("HandlePayment: reservation id=%d moved to step %s concurrently", res.ID, current.PaymentStep)
		return nil, fmt.Errorf("%w: %s: state changed concurrently", ErrReconciliationPending, step)
	}
}

func payoutBatchID(reservationID int64) string {
	return fmt.Sprintf("reservation-%d", reservationID)
}

func transactionID(res *domain.Reservation) string {
	if res.TransactionID == nil || *res.TransactionID == "" {
		return "-"
	}
	return *res.TransactionID
}
