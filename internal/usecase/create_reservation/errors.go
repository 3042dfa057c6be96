package create_reservation

import "errors"

var (
	// ErrMissingFields возвращается, когда не заполнены обязательные поля
	ErrMissingFields = errors.New("create_reservation: missing required fields")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_reservation: invalid input data")

	// ErrPastDate возвращается, когда дата брони раньше сегодняшней
	ErrPastDate = errors.New("create_reservation: date is in the past")

	// ErrPastTimeSlot возвращается, когда слот сегодняшней брони уже начался
	ErrPastTimeSlot = errors.New("create_reservation: time slot has already started")

	// ErrCourtIndexOutOfBounds возвращается, когда индекс подкорта вне [0, totalCourts)
	ErrCourtIndexOutOfBounds = errors.New("create_reservation: sub-court index out of bounds")

	// ErrSlotUnavailable возвращается, когда выбранные подкорты уже заняты на этот интервал
	ErrSlotUnavailable = errors.New("create_reservation: slot is not available")

	// ErrOutsideOperatingHours возвращается, когда слот выходит за рабочие часы корта
	ErrOutsideOperatingHours = errors.New("create_reservation: slot is outside operating hours")

	// ErrInvalidTimeRange возвращается, когда начало не раньше конца
	ErrInvalidTimeRange = errors.New("create_reservation: time slot start must be before end")

	// ErrLeadTimeViolation возвращается, когда до начала слота меньше lead-интервала
	ErrLeadTimeViolation = errors.New("create_reservation: too late to book this slot")

	// ErrDateTooFarInFuture возвращается, когда дата превышает ограничение advanceBookingDays
	ErrDateTooFarInFuture = errors.New("create_reservation: date is too far in the future")

	// ErrCourtNotFound возвращается, когда корт не найден
	ErrCourtNotFound = errors.New("create_reservation: court not found")

	// ErrPaymentProvider возвращается при ошибке инициации платежа (бронь при этом удаляется)
	ErrPaymentProvider = errors.New("create_reservation: payment provider error")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_reservation: internal error")
)
