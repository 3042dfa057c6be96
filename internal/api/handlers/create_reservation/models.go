package create_reservation

import (
	"github.com/m04kA/SMC-CourtReservationService/internal/service/reservations/models"
	createReservation "github.com/m04kA/SMC-CourtReservationService/internal/usecase/create_reservation"
)

// TimeSlotRequest интервал брони
type TimeSlotRequest struct {
	From string `json:"from"` // "9:00 AM" или "09:00"
	To   string `json:"to"`
}

// CreateReservationRequest HTTP request model
type CreateReservationRequest struct {
	CourtID        int64           `json:"courtId"`
	Date           string          `json:"date"` // "2025-10-15"
	TimeSlot       TimeSlotRequest `json:"timeSlot"`
	SelectedCourts []int           `json:"selectedCourts"`
}

// CreateReservationResponse HTTP response model
type CreateReservationResponse struct {
	Reservation *models.ReservationResponse `json:"reservation"`
	ApprovalURL string                      `json:"approvalUrl"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateReservationRequest) ToUseCaseRequest(userID int64) *createReservation.Request {
	return &createReservation.Request{
		UserID:    userID,
		CourtID:   r.CourtID,
		Date:      r.Date,
		From:      r.TimeSlot.From,
		To:        r.TimeSlot.To,
		SubCourts: r.SelectedCourts,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createReservation.Response) *CreateReservationResponse {
	return &CreateReservationResponse{
		Reservation: models.FromDomainReservation(resp.Reservation),
		ApprovalURL: resp.ApprovalURL,
	}
}
