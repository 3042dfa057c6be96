package worker

import (
	"context"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/usecase/handle_payment"
)

// ReservationRepository источник бронирований для фоновой сверки
type ReservationRepository interface {
	ListForReconciliation(ctx context.Context, staleBefore time.Time, limit int) ([]*domain.Reservation, error)
}

// Reconciler доводит бронь до конечного состояния по статусу платежа
type Reconciler interface {
	Reconcile(ctx context.Context, res *domain.Reservation) (*handle_payment.Response, error)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
