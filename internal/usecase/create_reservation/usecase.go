package create_reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/reservation"
	settingsRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/settings"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/paypal"
)

const compensationTimeout = 5 * time.Second

// Исходы создания брони для метрик
const (
	outcomeCreated  = "created"
	outcomeConflict = "conflict"
	outcomeRejected = "rejected"
	outcomePayment  = "payment_failed"
)

// UseCase use case для создания бронирования
type UseCase struct {
	reservationRepo ReservationRepository
	settingsRepo    SettingsRepository
	directory       DirectoryClient
	payments        PaymentProvider
	notifier        Notifier
	metrics         Metrics
	txManager       TransactionManager
	defaults        domain.CourtBookingSettings
	location        *time.Location
	paymentTimeout  time.Duration
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	reservationRepo ReservationRepository,
	settingsRepo SettingsRepository,
	directory DirectoryClient,
	payments PaymentProvider,
	notifier Notifier,
	metrics Metrics,
	txManager TransactionManager,
	defaults domain.CourtBookingSettings,
	location *time.Location,
	paymentTimeout time.Duration,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		settingsRepo:    settingsRepo,
		directory:       directory,
		payments:        payments,
		notifier:        notifier,
		metrics:         metrics,
		txManager:       txManager,
		defaults:        defaults,
		location:        location,
		paymentTimeout:  paymentTimeout,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute выполняет use case создания бронирования.
// Бронь создается в сериализуемой транзакции, платеж инициируется после коммита.
// Если платеж не создан, бронь удаляется компенсирующим действием.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateReservation: user=%d, court=%d, date=%s, slot=%s-%s, subCourts=%v",
		req.UserID, req.CourtID, req.Date, req.From, req.To, req.SubCourts)

	// 1. Обязательные поля и форматы
	parsed, err := parseRequest(req, uc.location)
	if err != nil {
		uc.logger.Warn("CreateReservation: validation failed: %v", err)
		uc.metrics.IncReservation(outcomeRejected)
		return nil, err
	}

	// 2. Текущее время
	now := uc.timeProvider.Now()

	// 3. Корт
	court, err := uc.directory.GetCourt(ctx, parsed.CourtID)
	if err != nil {
		if errors.Is(err, directoryservice.ErrCourtNotFound) {
			uc.logger.Warn("CreateReservation: court id=%d not found", parsed.CourtID)
			return nil, ErrCourtNotFound
		}
		uc.logger.Error("CreateReservation: failed to get court id=%d: %v", parsed.CourtID, err)
		return nil, fmt.Errorf("%w: failed to get court: %v", ErrInternal, err)
	}

	// 4. Настройки бронирования корта
	settings, err := uc.settings(ctx, court.ID)
	if err != nil {
		uc.logger.Error("CreateReservation: failed to get settings: %v", err)
		return nil, err
	}

	var created *domain.Reservation

	// 5. Проверка и запись в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 5.1. Активные брони корта на дату с блокировкой (FOR UPDATE)
		existing, err := uc.reservationRepo.List(txCtx, domain.ReservationsFilter{
			CourtID:    &parsed.CourtID,
			StartDate:  &parsed.Date,
			EndDate:    &parsed.Date,
			OnlyActive: true,
		})
		if err != nil {
			return fmt.Errorf("%w: failed to list reservations: %w", ErrInternal, err)
		}

		// 5.2. Бизнес-правила
		if err := validateReservation(parsed, court, settings, existing, now, uc.location); err != nil {
			return err
		}

		// 5.3. Сохраняем pending/unpaid бронь и занимаем ячейки слотов
		res := &domain.Reservation{
			CourtID:       parsed.CourtID,
			UserID:        parsed.UserID,
			Date:          parsed.Date,
			TimeSlot:      parsed.Slot,
			SubCourts:     parsed.SubCourts,
			TotalAmount:   calculateAmount(court.HourlyRate, parsed.Slot, len(parsed.SubCourts)),
			Status:        domain.StatusPending,
			PaymentStatus: domain.PaymentUnpaid,
			PaymentStep:   domain.StepNone,
		}

		created, err = uc.reservationRepo.Create(txCtx, res)
		return err
	})
	if err != nil {
		return nil, uc.translateTxError(err)
	}

	uc.logger.Info("CreateReservation: reservation id=%d created, amount=%.2f", created.ID, created.TotalAmount)

	// 6. Инициируем платеж, при ошибке удаляем бронь
	payment, err := uc.initiatePayment(ctx, court, created)
	if err != nil {
		uc.compensate(ctx, created.ID)
		uc.metrics.IncReservation(outcomePayment)
		return nil, err
	}

	// 7. Сохраняем ID платежа
	if err := uc.reservationRepo.SetPaymentInitiated(ctx, created.ID, payment.ID); err != nil {
		uc.logger.Error("CreateReservation: failed to store payment id=%s for reservation id=%d: %v",
			payment.ID, created.ID, err)
		uc.compensate(ctx, created.ID)
		return nil, fmt.Errorf("%w: failed to store payment: %v", ErrInternal, err)
	}
	created.PaymentID = &payment.ID
	created.PaymentStep = domain.StepInitiated

	// 8. Уведомление (в фоне)
	uc.notifier.Notify(domain.EventReservationCreated, domain.ReservationEvent{
		ReservationID: created.ID,
		CourtID:       created.CourtID,
		Date:          created.Date.Format(domain.DateFormat),
	})
	uc.metrics.IncReservation(outcomeCreated)

	return &Response{
		Reservation: created,
		ApprovalURL: payment.ApprovalURL,
	}, nil
}

func (uc *UseCase) initiatePayment(ctx context.Context, court *directoryservice.Court, res *domain.Reservation) (*paypal.Payment, error) {
	recipient, err := uc.directory.GetPaymentRecipient(ctx, court.ID)
	if err != nil {
		uc.logger.Error("CreateReservation: failed to get payment recipient of court id=%d: %v", court.ID, err)
		return nil, fmt.Errorf("%w: payment recipient: %v", ErrPaymentProvider, err)
	}

	payCtx, cancel := context.WithTimeout(ctx, uc.paymentTimeout)
	defer cancel()

	payment, err := uc.payments.CreatePayment(payCtx, paypal.CreatePaymentRequest{
		ReferenceID:     strconv.FormatInt(res.ID, 10),
		Amount:          res.TotalAmount,
		PayeeMerchantID: recipient.PayeeMerchantID,
		Description:     fmt.Sprintf("%s, %s %s", court.Name, res.Date.Format(domain.DateFormat), res.TimeSlot.Label()),
	})
	if err != nil {
		uc.logger.Error("CreateReservation: failed to create payment for reservation id=%d: %v", res.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	return payment, nil
}

// compensate удаляет бронь, для которой не удалось инициировать платеж.
// Выполняется даже при отмененном контексте запроса.
func (uc *UseCase) compensate(ctx context.Context, reservationID int64) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	deleted, err := uc.reservationRepo.DeletePending(cctx, reservationID)
	if err != nil {
		uc.logger.Error("CreateReservation: compensation failed, reservation id=%d left pending: %v", reservationID, err)
		return
	}
	if deleted {
		uc.logger.Warn("CreateReservation: reservation id=%d deleted after payment failure", reservationID)
	}
}

func (uc *UseCase) translateTxError(err error) error {
	switch {
	case reservationRepo.IsConflict(err):
		uc.logger.Warn("CreateReservation: lost race for slot: %v", err)
		uc.metrics.IncReservation(outcomeConflict)
		return fmt.Errorf("%w: slot was taken concurrently", ErrSlotUnavailable)
	case errors.Is(err, ErrSlotUnavailable):
		uc.logger.Warn("CreateReservation: %v", err)
		uc.metrics.IncReservation(outcomeConflict)
		return err
	case errors.Is(err, ErrInternal):
		uc.logger.Error("CreateReservation: %v", err)
		return err
	case isValidationError(err):
		uc.logger.Warn("CreateReservation: validation failed: %v", err)
		uc.metrics.IncReservation(outcomeRejected)
		return err
	default:
		uc.logger.Error("CreateReservation: failed to create reservation: %v", err)
		return fmt.Errorf("%w: failed to create reservation: %v", ErrInternal, err)
	}
}

func (uc *UseCase) settings(ctx context.Context, courtID int64) (*domain.CourtBookingSettings, error) {
	settings, err := uc.settingsRepo.GetWithHierarchy(ctx, courtID)
	if err == nil {
		return settings, nil
	}
	if errors.Is(err, settingsRepo.ErrSettingsNotFound) {
		defaults := uc.defaults
		return &defaults, nil
	}
	return nil, fmt.Errorf("%w: failed to get settings: %v", ErrInternal, err)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput,
		ErrPastDate,
		ErrPastTimeSlot,
		ErrCourtIndexOutOfBounds,
		ErrOutsideOperatingHours,
		ErrInvalidTimeRange,
		ErrLeadTimeViolation,
		ErrDateTooFarInFuture,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
