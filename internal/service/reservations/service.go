package reservations

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/internal/service/reservations/models"
	"github.com/m04kA/SMC-CourtReservationService/pkg/ptr"
)

const (
	outcomeCancelled = "cancelled"

	// повтор условной отмены, если статус изменился между чтением и записью
	maxCancelAttempts = 2
)

// Service сервис для работы с бронированиями
type Service struct {
	reservationRepo       ReservationRepository
	directory             DirectoryClient
	txManager             TransactionManager
	notifier              Notifier
	metrics               Metrics
	allowPaidCancellation bool
	location              *time.Location
	timeProvider          TimeProvider
	logger                Logger
}

// NewService создает новый экземпляр сервиса бронирований.
// allowPaidCancellation разрешает отмену подтвержденных оплаченных бронирований (без возврата средств).
func NewService(
	reservationRepo ReservationRepository,
	directory DirectoryClient,
	txManager TransactionManager,
	notifier Notifier,
	metrics Metrics,
	allowPaidCancellation bool,
	location *time.Location,
	logger Logger,
) *Service {
	return &Service{
		reservationRepo:       reservationRepo,
		directory:             directory,
		txManager:             txManager,
		notifier:              notifier,
		metrics:               metrics,
		allowPaidCancellation: allowPaidCancellation,
		location:              location,
		timeProvider:          &RealTimeProvider{},
		logger:                logger,
	}
}

// GetByID получает бронирование по ID
// Пользователь видит своё бронирование, владелец корта - любое бронирование корта
func (s *Service) GetByID(ctx context.Context, id int64, userID int64) (*models.ReservationResponse, error) {
	s.logger.Info("GetByID: fetching reservation id=%d for user=%d", id, userID)

	res, err := s.getReservation(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	if err := s.checkUserAccess(ctx, res, userID); err != nil {
		s.logger.Warn("GetByID: access denied for user=%d to reservation id=%d", userID, id)
		return nil, err
	}

	return s.single(ctx, res), nil
}

// GetUserReservations получает историю бронирований пользователя
// с фильтрами по периоду и статусу и сортировкой по дате
func (s *Service) GetUserReservations(ctx context.Context, req *models.GetUserReservationsRequest) (*models.ReservationListResponse, error) {
	s.logger.Info("GetUserReservations: fetching reservations for user=%d, date=%v, status=%v, sort=%v",
		req.UserID, ptr.Deref(req.DateFilter), ptr.Deref(req.StatusFilter), ptr.Deref(req.SortOrder))

	if req.RequesterID != req.UserID {
		s.logger.Warn("GetUserReservations: user=%d requested reservations of user=%d", req.RequesterID, req.UserID)
		return nil, ErrAccessDenied
	}

	now := s.timeProvider.Now().In(s.location)
	filter := domain.ReservationsFilter{UserID: &req.UserID}

	// 1. Период
	if req.DateFilter != nil && *req.DateFilter != "" {
		start, end, err := s.dateRange(*req.DateFilter, now)
		if err != nil {
			s.logger.Warn("GetUserReservations: %v", err)
			return nil, err
		}
		filter.StartDate, filter.EndDate = &start, &end
	}

	// 2. Статус
	onlyOngoing := false
	if req.StatusFilter != nil && *req.StatusFilter != "" {
		switch status := strings.ToLower(*req.StatusFilter); status {
		case string(domain.StatusPending), string(domain.StatusConfirmed), string(domain.StatusCancelled):
			filter.Statuses = []domain.ReservationStatus{domain.ReservationStatus(status)}
		case domain.StatusFilterOngoing:
			filter.Statuses = domain.ActiveStatuses
			onlyOngoing = true
		default:
			s.logger.Warn("GetUserReservations: invalid status filter=%s", *req.StatusFilter)
			return nil, fmt.Errorf("%w: invalid status filter", ErrInvalidInput)
		}
	}

	// 3. Сортировка
	descending := false
	if req.SortOrder != nil && *req.SortOrder != "" {
		switch strings.ToLower(*req.SortOrder) {
		case domain.SortAscending, "ascending":
		case domain.SortDescending, "descending":
			descending = true
		default:
			s.logger.Warn("GetUserReservations: invalid sort order=%s", *req.SortOrder)
			return nil, fmt.Errorf("%w: invalid sort order", ErrInvalidInput)
		}
	}

	list, err := s.reservationRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("GetUserReservations: repository error for user=%d: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: GetUserReservations - repository error: %v", ErrInternal, err)
	}

	if onlyOngoing {
		list = slices.DeleteFunc(list, func(r *domain.Reservation) bool {
			return !r.IsOngoing(now, s.location)
		})
	}
	if descending {
		slices.Reverse(list)
	}

	s.logger.Info("GetUserReservations: successfully fetched %d reservations for user=%d", len(list), req.UserID)
	return s.toResponse(ctx, list), nil
}

// GetCourtReservations получает бронирования корта
// Доступно только владельцу корта
func (s *Service) GetCourtReservations(ctx context.Context, req *models.GetCourtReservationsRequest) (*models.ReservationListResponse, error) {
	s.logger.Info("GetCourtReservations: fetching reservations for court=%d by user=%d", req.CourtID, req.UserID)

	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, fmt.Errorf("%w: endDate is before startDate", ErrInvalidInput)
	}

	if err := s.checkCourtOwner(ctx, req.CourtID, req.UserID); err != nil {
		return nil, err
	}

	list, err := s.reservationRepo.List(ctx, domain.ReservationsFilter{
		CourtID:    &req.CourtID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		OnlyActive: !req.IncludeInactive,
	})
	if err != nil {
		s.logger.Error("GetCourtReservations: repository error for court=%d: %v", req.CourtID, err)
		return nil, fmt.Errorf("%w: GetCourtReservations - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetCourtReservations: successfully fetched %d reservations for court=%d", len(list), req.CourtID)
	return s.toResponse(ctx, list), nil
}

// Cancel отменяет бронирование пользователя
// Повторная отмена - успешный no-op, уведомление уходит один раз
func (s *Service) Cancel(ctx context.Context, id int64, req *models.CancelReservationRequest) (*models.ReservationResponse, error) {
	s.logger.Info("Cancel: cancelling reservation id=%d by user=%d", id, req.UserID)

	res, err := s.getReservation(ctx, "Cancel", id)
	if err != nil {
		return nil, err
	}

	if res.UserID != req.UserID {
		s.logger.Warn("Cancel: access denied for user=%d to cancel reservation id=%d", req.UserID, id)
		return nil, ErrAccessDenied
	}

	for attempt := 1; ; attempt++ {
		if res.IsCancelled() {
			s.logger.Info("Cancel: reservation id=%d already cancelled", id)
			return s.single(ctx, res), nil
		}

		if res.HasCapturedFunds() {
			if !s.allowPaidCancellation {
				s.logger.Warn("Cancel: reservation id=%d has captured funds (step=%s), cancellation denied by policy",
					id, res.PaymentStep)
				return nil, ErrCannotCancel
			}
			s.logger.Warn("Cancel: cancelling paid reservation id=%d without refund, step=%s, transaction=%s",
				id, res.PaymentStep, ptr.Deref(res.TransactionID))
		}

		observed, observedStep := res.Status, res.PaymentStep
		err = s.txManager.Do(ctx, func(txCtx context.Context) error {
			return s.reservationRepo.Cancel(txCtx, id, observed, observedStep)
		})
		if err == nil {
			break
		}

		if !errors.Is(err, reservationRepo.ErrStateConflict) || attempt >= maxCancelAttempts {
			s.logger.Error("Cancel: repository error for reservation id=%d: %v", id, err)
			return nil, fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
		}

		// Статус изменился конкурентно, перечитываем и проверяем заново
		s.logger.Warn("Cancel: reservation id=%d changed concurrently, retrying", id)
		if res, err = s.getReservation(ctx, "Cancel", id); err != nil {
			return nil, err
		}
	}

	res.Status = domain.StatusCancelled
	now := s.timeProvider.Now()
	res.CancelledAt = &now

	s.notifier.Notify(domain.EventReservationCanceled, domain.ReservationEvent{
		ReservationID: res.ID,
		CourtID:       res.CourtID,
		Date:          res.Date.Format(domain.DateFormat),
	})
	s.metrics.IncReservation(outcomeCancelled)

	s.logger.Info("Cancel: successfully cancelled reservation id=%d", id)
	return s.single(ctx, res), nil
}

// Вспомогательные методы

func (s *Service) getReservation(ctx context.Context, method string, id int64) (*domain.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			s.logger.Warn("%s: reservation id=%d not found", method, id)
			return nil, ErrReservationNotFound
		}
		s.logger.Error("%s: repository error for reservation id=%d: %v", method, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, method, err)
	}
	return res, nil
}

// checkUserAccess проверяет, что пользователь - автор бронирования или владелец корта
func (s *Service) checkUserAccess(ctx context.Context, res *domain.Reservation, userID int64) error {
	if res.UserID == userID {
		return nil
	}

	if err := s.checkCourtOwner(ctx, res.CourtID, userID); err != nil {
		if errors.Is(err, ErrInternal) {
			return err
		}
		return ErrAccessDenied
	}

	return nil
}

// checkCourtOwner проверяет, что пользователь является владельцем корта
func (s *Service) checkCourtOwner(ctx context.Context, courtID int64, userID int64) error {
	court, err := s.directory.GetCourt(ctx, courtID)
	if err != nil {
		if errors.Is(err, directoryservice.ErrCourtNotFound) {
			s.logger.Warn("checkCourtOwner: court id=%d not found", courtID)
			return ErrCourtNotFound
		}
		s.logger.Error("checkCourtOwner: failed to get court id=%d: %v", courtID, err)
		return fmt.Errorf("%w: checkCourtOwner - failed to get court: %v", ErrInternal, err)
	}

	if court.OwnerID != userID {
		s.logger.Warn("checkCourtOwner: user=%d is not the owner of court=%d", userID, courtID)
		return ErrAccessDenied
	}

	return nil
}

// dateRange границы периода фильтра в часовом поясе бизнеса, неделя начинается с понедельника
func (s *Service) dateRange(filter string, now time.Time) (time.Time, time.Time, error) {
	today := domain.DateOnly(now, s.location)

	switch strings.ToLower(strings.TrimSpace(filter)) {
	case domain.DateFilterToday:
		return today, today, nil
	case domain.DateFilterWeek, "this week":
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 6), nil
	case domain.DateFilterMonth, "this month":
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.location)
		return start, start.AddDate(0, 1, -1), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date filter %q", ErrInvalidInput, filter)
	}
}

// toResponse конвертирует бронирования в DTO, проставляя названия кортов и статус ongoing
func (s *Service) toResponse(ctx context.Context, list []*domain.Reservation) *models.ReservationListResponse {
	now := s.timeProvider.Now().In(s.location)
	resp := models.FromDomainReservationList(list)
	names := make(map[int64]string)

	for i, res := range list {
		item := &resp.Reservations[i]

		if !res.IsCancelled() && res.IsOngoing(now, s.location) {
			item.Status = domain.StatusFilterOngoing
		}

		name, ok := names[res.CourtID]
		if !ok {
			if court, err := s.directory.GetCourt(ctx, res.CourtID); err == nil {
				name = court.Name
			} else {
				s.logger.Warn("toResponse: court id=%d name unavailable: %v", res.CourtID, err)
			}
			names[res.CourtID] = name
		}
		item.CourtName = name
	}

	return resp
}

func (s *Service) single(ctx context.Context, res *domain.Reservation) *models.ReservationResponse {
	list := s.toResponse(ctx, []*domain.Reservation{res})
	return &list.Reservations[0]
}
