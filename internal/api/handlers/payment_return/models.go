package payment_return

import (
	handlePayment "github.com/m04kA/SMC-CourtReservationService/internal/usecase/handle_payment"
)

// PaymentResultResponse HTTP response model
type PaymentResultResponse struct {
	ReservationID int64  `json:"reservationId,omitempty"`
	Result        string `json:"result"` // confirmed | cancelled | already_completed | noop | pending
	Status        string `json:"status,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *handlePayment.Response) *PaymentResultResponse {
	out := &PaymentResultResponse{Result: resp.Result}
	if resp.Reservation != nil {
		out.ReservationID = resp.Reservation.ID
		out.Status = string(resp.Reservation.Status)
		out.PaymentStatus = string(resp.Reservation.PaymentStatus)
	}
	return out
}
