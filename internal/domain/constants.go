package domain

// Значения настроек бронирования по умолчанию
const (
	DefaultSlotIntervalMinutes = 60
	DefaultLeadTimeMinutes     = 60
	DefaultAdvanceBookingDays  = 0 // 0 = без ограничения
)

// Границы допустимых значений настроек
const (
	MinSlotIntervalMinutes = 15
	MaxSlotIntervalMinutes = 240
	MinLeadTimeMinutes     = 0
	MaxLeadTimeMinutes     = 10080 // неделя
	MinAdvanceBookingDays  = 0
	MaxAdvanceBookingDays  = 365
)

// Форматы времени
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// Фильтры истории бронирований пользователя
const (
	DateFilterToday = "today"
	DateFilterWeek  = "week"
	DateFilterMonth = "month"

	StatusFilterOngoing = "ongoing"

	SortAscending  = "asc"
	SortDescending = "desc"
)
