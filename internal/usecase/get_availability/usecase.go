package get_availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	settingsRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/settings"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
)

const maxParallelCourts = 8

// UseCase use case для расчета доступности слотов
type UseCase struct {
	reservationRepo ReservationRepository
	settingsRepo    SettingsRepository
	directory       DirectoryClient
	defaults        domain.CourtBookingSettings
	location        *time.Location
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	reservationRepo ReservationRepository,
	settingsRepo SettingsRepository,
	directory DirectoryClient,
	defaults domain.CourtBookingSettings,
	location *time.Location,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		settingsRepo:    settingsRepo,
		directory:       directory,
		defaults:        defaults,
		location:        location,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute выполняет use case расчета доступности
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	date, err := validateRequest(req, uc.location)
	if err != nil {
		uc.logger.Warn("GetAvailability: validation failed: %v", err)
		return nil, err
	}

	// 2. Дата не раньше сегодняшней
	now := uc.timeProvider.Now().In(uc.location)
	today := domain.DateOnly(now, uc.location)
	if date.Before(today) {
		return nil, ErrPastDate
	}

	uc.logger.Info("GetAvailability: user=%d, court=%v, date=%s", req.UserID, courtLabel(req.CourtID), req.Date)

	// 3. Корты
	courts, err := uc.loadCourts(ctx, req.CourtID)
	if err != nil {
		return nil, err
	}

	// 4. Доступность по каждому корту параллельно
	result := make([]CourtAvailability, len(courts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCourts)

	for i := range courts {
		court := courts[i]
		g.Go(func() error {
			availability, err := uc.courtAvailability(gctx, court, date, now, req.SubCourts)
			if err != nil {
				return err
			}
			result[i] = *availability
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		uc.logger.Error("GetAvailability: failed to compute availability: %v", err)
		return nil, err
	}

	// 5. Даты с активными бронями (для навигации по календарю)
	filter := domain.ReservationsFilter{
		CourtID:    req.CourtID,
		StartDate:  &today,
		OnlyActive: true,
	}
	upcoming, err := uc.reservationRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Error("GetAvailability: failed to list upcoming reservations: %v", err)
		return nil, fmt.Errorf("%w: failed to list upcoming reservations: %v", ErrInternal, err)
	}
	reservedDates, userReservedDates := collectReservedDates(upcoming, req.UserID, today)

	return &Response{
		Date:              date,
		Courts:            result,
		ReservedDates:     reservedDates,
		UserReservedDates: userReservedDates,
	}, nil
}

func (uc *UseCase) loadCourts(ctx context.Context, courtID *int64) ([]directoryservice.Court, error) {
	if courtID == nil {
		courts, err := uc.directory.ListCourts(ctx)
		if err != nil {
			uc.logger.Error("GetAvailability: failed to list courts: %v", err)
			return nil, fmt.Errorf("%w: failed to list courts: %v", ErrInternal, err)
		}
		return courts, nil
	}

	court, err := uc.directory.GetCourt(ctx, *courtID)
	if err != nil {
		if errors.Is(err, directoryservice.ErrCourtNotFound) {
			uc.logger.Warn("GetAvailability: court id=%d not found", *courtID)
			return nil, ErrCourtNotFound
		}
		uc.logger.Error("GetAvailability: failed to get court id=%d: %v", *courtID, err)
		return nil, fmt.Errorf("%w: failed to get court: %v", ErrInternal, err)
	}
	return []directoryservice.Court{*court}, nil
}

func (uc *UseCase) courtAvailability(
	ctx context.Context,
	court directoryservice.Court,
	date, now time.Time,
	subCourtFilter []int,
) (*CourtAvailability, error) {
	settings, err := uc.settings(ctx, court.ID)
	if err != nil {
		return nil, err
	}

	availability := &CourtAvailability{
		CourtID:        court.ID,
		CourtName:      court.Name,
		TotalSubCourts: court.TotalCourts,
		Available:      []domain.SlotAvailability{},
		Unavailable:    []domain.SlotAvailability{},
	}

	slots, err := domain.GenerateTimeSlots(court.OperatingHours.From, court.OperatingHours.To, settings.SlotIntervalMinutes)
	if err != nil {
		uc.logger.Warn("GetAvailability: court id=%d has invalid operating hours %q - %q, no slots generated",
			court.ID, court.OperatingHours.From, court.OperatingHours.To)
		return availability, nil
	}

	reservations, err := uc.reservationRepo.List(ctx, domain.ReservationsFilter{
		CourtID:    &court.ID,
		StartDate:  &date,
		EndDate:    &date,
		OnlyActive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list reservations of court %d: %v", ErrInternal, court.ID, err)
	}

	availability.Available, availability.Unavailable = partitionSlots(
		slots,
		reservations,
		date,
		now,
		uc.location,
		settings.LeadTime(),
		court.TotalCourts,
		subCourtFilter,
	)

	return availability, nil
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
	return nil, fmt.Errorf("%w: failed to get settings of court %d: %v", ErrInternal, courtID, err)
}

func courtLabel(courtID *int64) string {
	if courtID == nil {
		return "all"
	}
	return fmt.Sprintf("%d", *courtID)
}
