package get_availability

import (
	"sort"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
)

// partitionSlots делит слоты на доступные и недоступные.
//
// Слот недоступен, если:
//   - пересекается с активной бронью на эту дату (с фильтром - только с бронью тех же подкортов)
//   - дата сегодняшняя и слот начался раньше now
//   - дата сегодняшняя и слот начинается раньше now+lead, кроме слота в текущем часе
func partitionSlots(
	slots []domain.TimeSlot,
	reservations []*domain.Reservation,
	date time.Time,
	now time.Time,
	loc *time.Location,
	lead time.Duration,
	totalSubCourts int,
	subCourtFilter []int,
) (available, unavailable []domain.SlotAvailability) {
	available = make([]domain.SlotAvailability, 0, len(slots))
	unavailable = make([]domain.SlotAvailability, 0)

	isToday := domain.IsSameDay(date, now)
	cutoff := now.Add(lead)

	for _, slot := range slots {
		state := domain.SlotAvailability{
			Slot:      slot,
			Available: true,
		}

		occupied := make(map[int]struct{})
		for _, res := range reservations {
			if !res.IsActive() || !res.OnDate(date) || !slot.Overlaps(res.TimeSlot) {
				continue
			}
			for _, idx := range res.SubCourts {
				occupied[idx] = struct{}{}
			}
			if len(subCourtFilter) == 0 || res.SharesSubCourt(subCourtFilter) {
				state.Available = false
			}
		}
		state.OccupiedSubCourts, state.FreeSubCourts = splitSubCourts(occupied, totalSubCourts)

		if isToday && state.Available && !startsInTime(slot, date, now, cutoff, loc) {
			state.Available = false
		}

		if state.Available {
			available = append(available, state)
		} else {
			unavailable = append(unavailable, state)
		}
	}

	return available, unavailable
}

// startsInTime правило отсечки для сегодняшней даты.
// Слот, начинающийся в текущем часе, остается доступным даже внутри lead-интервала.
func startsInTime(slot domain.TimeSlot, date, now, cutoff time.Time, loc *time.Location) bool {
	start := slot.From.On(date, loc)

	if start.Before(now) {
		return false
	}
	if start.Before(cutoff) {
		return start.Hour() == now.Hour()
	}
	return true
}

func splitSubCourts(occupied map[int]struct{}, total int) (busy, free []int) {
	busy = make([]int, 0, len(occupied))
	free = make([]int, 0, total)

	for idx := range occupied {
		busy = append(busy, idx)
	}
	sort.Ints(busy)

	for idx := 0; idx < total; idx++ {
		if _, ok := occupied[idx]; !ok {
			free = append(free, idx)
		}
	}
	return busy, free
}

// collectReservedDates собирает уникальные даты не раньше today,
// разделяя брони пользователя и чужие
func collectReservedDates(reservations []*domain.Reservation, userID int64, today time.Time) (others, own []string) {
	othersSet := make(map[string]struct{})
	ownSet := make(map[string]struct{})

	for _, res := range reservations {
		if !res.IsActive() {
			continue
		}
		resDate := domain.DateOnly(res.Date, today.Location())
		if resDate.Before(today) {
			continue
		}

		key := resDate.Format(domain.DateFormat)
		if userID != 0 && res.UserID == userID {
			ownSet[key] = struct{}{}
		} else {
			othersSet[key] = struct{}{}
		}
	}

	return sortedKeys(othersSet), sortedKeys(ownSet)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
