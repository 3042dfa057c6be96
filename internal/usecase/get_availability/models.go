package get_availability

import (
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
)

// Request модель запроса доступности
type Request struct {
	UserID    int64  // ID пользователя, 0 для анонимного запроса
	CourtID   *int64 // nil = все корты
	Date      string // YYYY-MM-DD в часовом поясе бизнеса
	SubCourts []int  // учитывать только брони этих подкортов, пусто = все
}

// Response модель ответа доступности
type Response struct {
	Date              time.Time
	Courts            []CourtAvailability
	ReservedDates     []string // даты с бронями других пользователей
	UserReservedDates []string // даты с бронями пользователя
}

// CourtAvailability слоты одного корта на дату
type CourtAvailability struct {
	CourtID        int64
	CourtName      string
	TotalSubCourts int
	Available      []domain.SlotAvailability
	Unavailable    []domain.SlotAvailability
}
