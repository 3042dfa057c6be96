package reservation

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrReservationNotFound возвращается, когда бронирование не найдено
	ErrReservationNotFound = errors.New("reservation.repository: reservation not found")

	// ErrSlotTaken возвращается при нарушении уникальности ячейки слота (двойное бронирование)
	ErrSlotTaken = errors.New("reservation.repository: slot already taken")

	// ErrStateConflict возвращается, когда условное обновление не затронуло ни одной строки:
	// состояние бронирования изменилось конкурентно
	ErrStateConflict = errors.New("reservation.repository: reservation state changed concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("reservation.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("reservation.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("reservation.repository: failed to scan row")
)

// Коды ошибок postgres
const (
	pgUniqueViolation      = "23505"
	pgExclusionViolation   = "23P01"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsConflict true для ошибок, означающих проигранную гонку за слот:
// нарушение уникальности или ограничения исключения, сбой сериализации, взаимная блокировка
func IsConflict(err error) bool {
	if errors.Is(err, ErrSlotTaken) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation, pgExclusionViolation, pgSerializationFailure, pgDeadlockDetected:
			return true
		}
	}
	return false
}
