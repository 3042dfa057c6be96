package domain

import (
	"fmt"

	"github.com/m04kA/SMC-CourtReservationService/pkg/types"
)

// TimeSlot полуинтервал времени [From, To) в 24-часовом формате
type TimeSlot struct {
	From types.TimeString
	To   types.TimeString
}

// Overlaps строгая проверка пересечения полуинтервалов (стык не пересечение)
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.From.IsBefore(other.To) && s.To.IsAfter(other.From)
}

// Contains true, если other целиком внутри s
func (s TimeSlot) Contains(other TimeSlot) bool {
	return !other.From.IsBefore(s.From) && !other.To.IsAfter(s.To)
}

// DurationMinutes длительность слота
func (s TimeSlot) DurationMinutes() int {
	return s.To.Minutes() - s.From.Minutes()
}

// Label подпись слота вида "9:00 AM - 10:00 AM"
func (s TimeSlot) Label() string {
	return fmt.Sprintf("%s - %s", s.From.Format12Hour(), s.To.Format12Hour())
}

// SlotAvailability состояние одного слота корта на дату
type SlotAvailability struct {
	Slot              TimeSlot
	Available         bool
	OccupiedSubCourts []int
	FreeSubCourts     []int
}
