package domain

// Типы широковещательных уведомлений
const (
	EventReservationCreated  = "reservationCreated"
	EventReservationCanceled = "reservationCanceled"
)

// ReservationEvent полезная нагрузка уведомления о бронировании
type ReservationEvent struct {
	ReservationID int64  `json:"reservationId"`
	CourtID       int64  `json:"courtId"`
	Date          string `json:"date"`
}
