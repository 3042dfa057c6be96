package get_availability

import (
	"context"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
)

// ReservationRepository интерфейс репозитория бронирований
type ReservationRepository interface {
	// List получает бронирования по фильтру
	List(ctx context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error)
}

// SettingsRepository интерфейс репозитория настроек бронирования
type SettingsRepository interface {
	// GetWithHierarchy получает настройки с учетом иерархии приоритетов
	GetWithHierarchy(ctx context.Context, courtID int64) (*domain.CourtBookingSettings, error)
}

// DirectoryClient интерфейс клиента сервиса справочников
type DirectoryClient interface {
	GetCourt(ctx context.Context, courtID int64) (*directoryservice.Court, error)
	ListCourts(ctx context.Context) ([]directoryservice.Court, error)
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
