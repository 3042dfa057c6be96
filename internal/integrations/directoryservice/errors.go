package directoryservice

import "errors"

var (
	// ErrCourtNotFound возвращается, когда корт не найден
	ErrCourtNotFound = errors.New("court not found")

	// ErrRecipientNotFound возвращается, когда у корта нет получателя выплат
	ErrRecipientNotFound = errors.New("payment recipient not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("directoryservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("directoryservice client: invalid response")
)
