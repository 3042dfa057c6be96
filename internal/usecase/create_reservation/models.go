package create_reservation

import (
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
)

// Request модель запроса на создание бронирования
type Request struct {
	UserID    int64  // ID пользователя
	CourtID   int64  // ID корта
	Date      string // YYYY-MM-DD в часовом поясе бизнеса
	From      string // "9:00 AM" или "09:00"
	To        string // "10:00 AM" или "10:00"
	SubCourts []int  // индексы подкортов, 0-based
}

// Response модель ответа с созданным бронированием
type Response struct {
	Reservation *domain.Reservation
	ApprovalURL string // ссылка подтверждения платежа
}

// parsedRequest запрос после разбора форматов
type parsedRequest struct {
	UserID    int64
	CourtID   int64
	Date      time.Time
	Slot      domain.TimeSlot
	SubCourts []int // отсортированы по возрастанию
}
