package settings

import (
	"context"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
)

// SettingsRepository интерфейс репозитория настроек бронирования
type SettingsRepository interface {
	GetWithHierarchy(ctx context.Context, courtID int64) (*domain.CourtBookingSettings, error)
	Upsert(ctx context.Context, s *domain.CourtBookingSettings) (*domain.CourtBookingSettings, error)
}

// DirectoryClient интерфейс клиента сервиса справочников
type DirectoryClient interface {
	GetCourt(ctx context.Context, courtID int64) (*directoryservice.Court, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
