package domain

import (
	"slices"
	"time"
)

// ReservationStatus статус бронирования
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// PaymentStatus статус оплаты бронирования
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// PaymentStep шаг саги сверки платежа.
// Сохраняется после каждого внешнего вызова, чтобы прерванную сверку можно было продолжить.
type PaymentStep string

const (
	StepNone      PaymentStep = "none"
	StepInitiated PaymentStep = "initiated"
	StepCaptured  PaymentStep = "captured"
	StepPaidOut   PaymentStep = "paid_out"
	StepCompleted PaymentStep = "completed"
)

// Reservation бронирование одного или нескольких подкортов на интервал времени
type Reservation struct {
	ID            int64
	CourtID       int64
	UserID        int64
	Date          time.Time // дата в часовом поясе бизнеса
	TimeSlot      TimeSlot
	SubCourts     []int // индексы подкортов, 0-based
	TotalAmount   float64
	Status        ReservationStatus
	PaymentStatus PaymentStatus

	// Заполняются в процессе оплаты и сверки
	PaymentID     *string
	TransactionID *string
	PayerEmail    *string
	PayerID       *string
	PayoutBatchID *string
	PaymentStep   PaymentStep

	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive true для pending/confirmed с оплатой unpaid/paid
func (r *Reservation) IsActive() bool {
	return (r.Status == StatusPending || r.Status == StatusConfirmed) &&
		(r.PaymentStatus == PaymentUnpaid || r.PaymentStatus == PaymentPaid)
}

// IsCancelled true, если бронирование отменено
func (r *Reservation) IsCancelled() bool {
	return r.Status == StatusCancelled
}

// IsPaid true для подтвержденного и оплаченного бронирования
func (r *Reservation) IsPaid() bool {
	return r.Status == StatusConfirmed && r.PaymentStatus == PaymentPaid
}

// IsAwaitingPayment true для pending/unpaid
func (r *Reservation) IsAwaitingPayment() bool {
	return r.Status == StatusPending && r.PaymentStatus == PaymentUnpaid
}

// HasCapturedFunds true, если деньги плательщика уже списаны
func (r *Reservation) HasCapturedFunds() bool {
	if r.IsPaid() {
		return true
	}
	switch r.PaymentStep {
	case StepCaptured, StepPaidOut, StepCompleted:
		return true
	}
	return false
}

// SharesSubCourt true, если бронирование занимает хотя бы один из индексов
func (r *Reservation) SharesSubCourt(indices []int) bool {
	for _, idx := range indices {
		if slices.Contains(r.SubCourts, idx) {
			return true
		}
	}
	return false
}

// OnDate true, если бронирование на ту же календарную дату
func (r *Reservation) OnDate(date time.Time) bool {
	return IsSameDay(r.Date, date)
}

// StartsAt момент начала в часовом поясе loc
func (r *Reservation) StartsAt(loc *time.Location) time.Time {
	return r.TimeSlot.From.On(r.Date, loc)
}

// EndsAt момент окончания в часовом поясе loc
func (r *Reservation) EndsAt(loc *time.Location) time.Time {
	return r.TimeSlot.To.On(r.Date, loc)
}

// IsOngoing true, если now попадает в [начало, конец)
func (r *Reservation) IsOngoing(now time.Time, loc *time.Location) bool {
	start, end := r.StartsAt(loc), r.EndsAt(loc)
	return !now.Before(start) && now.Before(end)
}

// PaymentCapture результат списания платежа у провайдера
type PaymentCapture struct {
	TransactionID string
	PayerEmail    string
	PayerID       string
}

// ReservationsFilter фильтр выборки бронирований корта
type ReservationsFilter struct {
	CourtID    *int64     // nil = все корты
	UserID     *int64     // nil = все пользователи
	StartDate  *time.Time // включительно
	EndDate    *time.Time // включительно
	Statuses   []ReservationStatus
	OnlyActive bool
}

// ActiveStatuses статусы активных бронирований
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

// ActivePaymentStatuses статусы оплаты активных бронирований
var ActivePaymentStatuses = []PaymentStatus{PaymentUnpaid, PaymentPaid}

// IsSameDay true для одной календарной даты
func IsSameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DateOnly полночь той же даты в часовом поясе loc
func DateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
