package domain

import "time"

// CourtBookingSettings настройки бронирования корта.
// Иерархия: запись корта (CourtID != nil) -> глобальная запись (CourtID == nil) -> значения из конфига.
type CourtBookingSettings struct {
	ID                  int64
	CourtID             *int64
	SlotIntervalMinutes int
	LeadTimeMinutes     int
	AdvanceBookingDays  int // 0 = без ограничения
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsGlobal true для глобальной записи
func (s *CourtBookingSettings) IsGlobal() bool {
	return s.CourtID == nil
}

// HasAdvanceBookingLimit true, если дата брони ограничена сверху
func (s *CourtBookingSettings) HasAdvanceBookingLimit() bool {
	return s.AdvanceBookingDays > 0
}

// LeadTime минимальный интервал между текущим моментом и началом брони
func (s *CourtBookingSettings) LeadTime() time.Duration {
	return time.Duration(s.LeadTimeMinutes) * time.Minute
}
