package models

import (
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
)

// Request модели

// GetUserReservationsRequest запрос истории бронирований пользователя
type GetUserReservationsRequest struct {
	UserID       int64   `json:"userId"`                 // чьи бронирования
	RequesterID  int64   `json:"requesterId"`            // кто запрашивает
	DateFilter   *string `json:"dateFilter,omitempty"`   // today | week | month
	StatusFilter *string `json:"statusFilter,omitempty"` // pending | confirmed | cancelled | ongoing
	SortOrder    *string `json:"sortOrder,omitempty"`    // asc | desc
}

// GetCourtReservationsRequest запрос бронирований корта его владельцем
type GetCourtReservationsRequest struct {
	UserID          int64      `json:"userId"`
	CourtID         int64      `json:"courtId"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	IncludeInactive bool       `json:"includeInactive,omitempty"` // включить отмененные
}

// CancelReservationRequest запрос на отмену бронирования
type CancelReservationRequest struct {
	UserID int64 `json:"userId"`
}

// Response модели

// TimeSlotResponse интервал брони в 12-часовом формате
type TimeSlotResponse struct {
	From string `json:"from"` // "9:00 AM"
	To   string `json:"to"`   // "10:00 AM"
}

// ReservationResponse ответ с данными бронирования
type ReservationResponse struct {
	ID            int64            `json:"reservationId"`
	CourtID       int64            `json:"courtId"`
	CourtName     string           `json:"courtName,omitempty"`
	UserID        int64            `json:"userId"`
	Date          string           `json:"date"` // "2025-10-15"
	TimeSlot      TimeSlotResponse `json:"timeSlot"`
	SubCourts     []int            `json:"selectedCourts"`
	TotalAmount   float64          `json:"totalAmount"`
	Status        string           `json:"status"` // pending | confirmed | cancelled | ongoing
	PaymentStatus string           `json:"paymentStatus"`

	PaymentID     *string `json:"paymentId,omitempty"`
	TransactionID *string `json:"transactionId,omitempty"`
	CancelledAt   *string `json:"cancelledAt,omitempty"` // ISO 8601 format

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReservationListResponse ответ со списком бронирований
type ReservationListResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
}

// Методы конвертации

// FromDomainReservation конвертирует domain модель в DTO
func FromDomainReservation(r *domain.Reservation) *ReservationResponse {
	if r == nil {
		return nil
	}

	resp := &ReservationResponse{
		ID:      r.ID,
		CourtID: r.CourtID,
		UserID:  r.UserID,
		Date:    r.Date.Format(domain.DateFormat),
		TimeSlot: TimeSlotResponse{
			From: r.TimeSlot.From.Format12Hour(),
			To:   r.TimeSlot.To.Format12Hour(),
		},
		SubCourts:     r.SubCourts,
		TotalAmount:   r.TotalAmount,
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		PaymentID:     r.PaymentID,
		TransactionID: r.TransactionID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}

	if resp.SubCourts == nil {
		resp.SubCourts = []int{}
	}

	if r.CancelledAt != nil {
		cancelledStr := r.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &cancelledStr
	}

	return resp
}

// FromDomainReservationList конвертирует список domain моделей в DTO
func FromDomainReservationList(reservations []*domain.Reservation) *ReservationListResponse {
	resp := &ReservationListResponse{
		Reservations: make([]ReservationResponse, 0, len(reservations)),
	}

	for _, r := range reservations {
		if item := FromDomainReservation(r); item != nil {
			resp.Reservations = append(resp.Reservations, *item)
		}
	}

	return resp
}
