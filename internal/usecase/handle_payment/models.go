package handle_payment

import "github.com/m04kA/SMC-CourtReservationService/internal/domain"

// Результаты сверки
const (
	ResultConfirmed        = "confirmed"
	ResultCancelled        = "cancelled"
	ResultSettled          = "settled"
	ResultAlreadyCompleted = "already_completed"
	ResultNoop             = "noop"
	ResultPending          = "pending"
	ResultFailed           = "failed"
)

// Request модель запроса сверки платежа
type Request struct {
	PaymentID     string // токен платежа (ID заказа у провайдера)
	ReservationID *int64 // необязательный, должен совпадать с бронью платежа
}

// Response модель результата сверки
type Response struct {
	Reservation *domain.Reservation
	Result      string
}
