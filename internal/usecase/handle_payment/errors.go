package handle_payment

import "errors"

var (
	// ErrInvalidInput возвращается, когда не передан токен платежа
	ErrInvalidInput = errors.New("handle_payment: invalid input data")

	// ErrReservationNotFound возвращается, когда бронирование с таким платежом не найдено
	ErrReservationNotFound = errors.New("handle_payment: reservation not found")

	// ErrReservationMismatch возвращается, когда платеж принадлежит другому бронированию
	ErrReservationMismatch = errors.New("handle_payment: payment belongs to another reservation")

	// ErrPaymentProvider возвращается, когда провайдер не ответил на запрос статуса
	ErrPaymentProvider = errors.New("handle_payment: payment provider error")

	// ErrReconciliationPending возвращается, когда сага прервана после списания.
	// Бронь остается на сохраненном шаге и будет доведена фоновой сверкой.
	ErrReconciliationPending = errors.New("handle_payment: reconciliation pending")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("handle_payment: internal error")
)
