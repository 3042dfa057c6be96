package create_reservation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/pkg/types"
)

// parseRequest проверяет наличие обязательных полей и разбирает форматы
func parseRequest(req *Request, loc *time.Location) (*parsedRequest, error) {
	if req.CourtID <= 0 ||
		strings.TrimSpace(req.Date) == "" ||
		strings.TrimSpace(req.From) == "" ||
		strings.TrimSpace(req.To) == "" ||
		len(req.SubCourts) == 0 {
		return nil, fmt.Errorf("%w: courtId, date, timeSlot.from, timeSlot.to and selectedCourts are required", ErrMissingFields)
	}

	if req.UserID <= 0 {
		return nil, fmt.Errorf("%w: userID must be positive", ErrInvalidInput)
	}

	date, err := time.ParseInLocation(domain.DateFormat, req.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD: %v", ErrInvalidInput, err)
	}

	from, err := types.ParseClock(req.From)
	if err != nil {
		return nil, fmt.Errorf("%w: timeSlot.from: %v", ErrInvalidInput, err)
	}
	to, err := types.ParseClock(req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: timeSlot.to: %v", ErrInvalidInput, err)
	}

	subCourts := append([]int(nil), req.SubCourts...)
	sort.Ints(subCourts)

	return &parsedRequest{
		UserID:    req.UserID,
		CourtID:   req.CourtID,
		Date:      date,
		Slot:      domain.TimeSlot{From: from, To: to},
		SubCourts: subCourts,
	}, nil
}

// validateReservation проверяет бизнес-правила по порядку, первая ошибка прерывает проверку.
// existing - активные брони корта на дату запроса.
func validateReservation(
	req *parsedRequest,
	court *directoryservice.Court,
	settings *domain.CourtBookingSettings,
	existing []*domain.Reservation,
	now time.Time,
	loc *time.Location,
) error {
	now = now.In(loc)
	today := domain.DateOnly(now, loc)
	start := req.Slot.From.On(req.Date, loc)

	// 2. Дата не в прошлом
	if req.Date.Before(today) {
		return ErrPastDate
	}

	// 3. Сегодняшний слот еще не начался
	if domain.IsSameDay(req.Date, today) && start.Before(now) {
		return ErrPastTimeSlot
	}

	// 4. Индексы подкортов в границах и без повторов
	for i, idx := range req.SubCourts {
		if idx < 0 || idx >= court.TotalCourts {
			return fmt.Errorf("%w: index %d, court has %d sub-courts", ErrCourtIndexOutOfBounds, idx, court.TotalCourts)
		}
		if i > 0 && req.SubCourts[i-1] == idx {
			return fmt.Errorf("%w: sub-court %d selected twice", ErrInvalidInput, idx)
		}
	}

	// 5. Выбранные подкорты свободны на этот интервал
	if err := checkOverlap(req, court.TotalCourts, existing); err != nil {
		return err
	}

	// 6. Слот внутри рабочих часов
	open, errOpen := types.ParseClock(court.OperatingHours.From)
	closing, errClose := types.ParseClock(court.OperatingHours.To)
	if errOpen != nil || errClose != nil {
		return fmt.Errorf("%w: court has invalid operating hours %q - %q",
			ErrOutsideOperatingHours, court.OperatingHours.From, court.OperatingHours.To)
	}
	inside := func(t types.TimeString) bool {
		return !t.IsBefore(open) && !t.IsAfter(closing)
	}
	if !inside(req.Slot.From) || !inside(req.Slot.To) {
		hours := domain.TimeSlot{From: open, To: closing}
		return fmt.Errorf("%w: court operates %s", ErrOutsideOperatingHours, hours.Label())
	}

	// 7. Начало раньше конца
	if !req.Slot.From.IsBefore(req.Slot.To) {
		return ErrInvalidTimeRange
	}

	// 8. До начала не меньше lead-интервала
	if start.Before(now.Add(settings.LeadTime())) {
		return fmt.Errorf("%w: must book at least %d minutes in advance", ErrLeadTimeViolation, settings.LeadTimeMinutes)
	}

	// 9. Ограничение горизонта бронирования
	if settings.HasAdvanceBookingLimit() {
		maxDate := today.AddDate(0, 0, settings.AdvanceBookingDays)
		if req.Date.After(maxDate) {
			return fmt.Errorf("%w: can only book %d days in advance", ErrDateTooFarInFuture, settings.AdvanceBookingDays)
		}
	}

	return nil
}

// checkOverlap ищет пересечения по запрошенным подкортам
// и проверяет, что параллельно свободно достаточно подкортов
func checkOverlap(req *parsedRequest, totalCourts int, existing []*domain.Reservation) error {
	occupied := make(map[int]struct{})

	for _, res := range existing {
		if !res.IsActive() || !res.OnDate(req.Date) || !res.TimeSlot.Overlaps(req.Slot) {
			continue
		}
		if res.SharesSubCourt(req.SubCourts) {
			return fmt.Errorf("%w: reservation %d already holds %s", ErrSlotUnavailable, res.ID, res.TimeSlot.Label())
		}
		for _, idx := range res.SubCourts {
			occupied[idx] = struct{}{}
		}
	}

	if free := totalCourts - len(occupied); free < len(req.SubCourts) {
		return fmt.Errorf("%w: %d sub-courts free, %d requested", ErrSlotUnavailable, free, len(req.SubCourts))
	}

	return nil
}

// calculateAmount hourlyRate x часы x количество подкортов
func calculateAmount(hourlyRate float64, slot domain.TimeSlot, subCourts int) float64 {
	hours := float64(slot.DurationMinutes()) / 60
	return hourlyRate * hours * float64(subCourts)
}
