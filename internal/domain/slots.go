package domain

import (
	"errors"

	"github.com/m04kA/SMC-CourtReservationService/pkg/types"
)

// ErrInvalidRange возвращается, когда границы не парсятся или start > end
var ErrInvalidRange = errors.New("domain: invalid slot range")

// GenerateSlots возвращает подписи границ слотов ("9:00 AM", "10:00 AM", ...)
// от start до end включительно с шагом intervalMinutes.
// При ошибке возвращает ErrInvalidRange и пустой (не nil) список.
func GenerateSlots(start, end string, intervalMinutes int) ([]string, error) {
	boundaries, err := generateBoundaries(start, end, intervalMinutes)
	if err != nil {
		return []string{}, err
	}

	labels := make([]string, 0, len(boundaries))
	for _, b := range boundaries {
		labels = append(labels, b.Format12Hour())
	}
	return labels, nil
}

// GenerateTimeSlots режет рабочие часы на последовательные слоты фиксированной длины
func GenerateTimeSlots(start, end string, intervalMinutes int) ([]TimeSlot, error) {
	boundaries, err := generateBoundaries(start, end, intervalMinutes)
	if err != nil {
		return []TimeSlot{}, err
	}

	slots := make([]TimeSlot, 0, len(boundaries))
	for i := 0; i+1 < len(boundaries); i++ {
		slots = append(slots, TimeSlot{From: boundaries[i], To: boundaries[i+1]})
	}
	return slots, nil
}

func generateBoundaries(start, end string, intervalMinutes int) ([]types.TimeString, error) {
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultSlotIntervalMinutes
	}

	from, err := types.ParseClock(start)
	if err != nil {
		return nil, ErrInvalidRange
	}
	to, err := types.ParseClock(end)
	if err != nil {
		return nil, ErrInvalidRange
	}
	if from.IsAfter(to) {
		return nil, ErrInvalidRange
	}

	boundaries := make([]types.TimeString, 0, (to.Minutes()-from.Minutes())/intervalMinutes+1)
	for m := from.Minutes(); m <= to.Minutes(); m += intervalMinutes {
		b, err := types.NewTimeStringFromMinutes(m)
		if err != nil {
			return nil, ErrInvalidRange
		}
		boundaries = append(boundaries, b)
	}

	return boundaries, nil
}
