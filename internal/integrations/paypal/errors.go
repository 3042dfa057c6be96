package paypal

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда провайдер не знает платеж
	ErrPaymentNotFound = errors.New("paypal client: payment not found")

	// ErrCaptureNotCompleted возвращается, когда списание не перешло в COMPLETED
	ErrCaptureNotCompleted = errors.New("paypal client: capture not completed")

	// ErrInvalidSignature возвращается при невалидной подписи вебхука
	ErrInvalidSignature = errors.New("paypal webhook: invalid signature")

	// ErrInvalidEvent возвращается при некорректном теле вебхука
	ErrInvalidEvent = errors.New("paypal webhook: invalid event")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("paypal client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе провайдера
	ErrInvalidResponse = errors.New("paypal client: invalid response")
)
