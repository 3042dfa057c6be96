package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	settingsRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/settings"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/internal/service/settings/models"
)

// Service сервис для работы с настройками бронирования кортов
type Service struct {
	settingsRepo SettingsRepository
	directory    DirectoryClient
	defaults     domain.CourtBookingSettings
	logger       Logger
}

// NewService создает новый экземпляр сервиса настроек.
// defaults применяются, когда в БД нет ни настроек корта, ни глобальных.
func NewService(
	settingsRepo SettingsRepository,
	directory DirectoryClient,
	defaults domain.CourtBookingSettings,
	logger Logger,
) *Service {
	return &Service{
		settingsRepo: settingsRepo,
		directory:    directory,
		defaults:     defaults,
		logger:       logger,
	}
}

// Get получает действующие настройки корта с учетом иерархии
// Публичный метод - доступен всем
// Приоритет: корт > глобальные > значения из конфига
func (s *Service) Get(ctx context.Context, courtID int64) (*models.SettingsResponse, error) {
	s.logger.Info("Get: fetching settings for court=%d", courtID)

	if _, err := s.getCourt(ctx, "Get", courtID); err != nil {
		return nil, err
	}

	effective, level, err := s.effective(ctx, courtID)
	if err != nil {
		s.logger.Error("Get: repository error for court=%d: %v", courtID, err)
		return nil, err
	}

	s.logger.Info("Get: successfully fetched settings for court=%d (level: %s)", courtID, level)
	return models.FromDomainSettings(courtID, effective, level), nil
}

// Update обновляет настройки корта
// Доступно только владельцу корта
// Поддерживает частичное обновление - незаданные поля берутся из действующих настроек
func (s *Service) Update(ctx context.Context, req *models.UpdateSettingsRequest) (*models.SettingsResponse, error) {
	s.logger.Info("Update: updating settings for court=%d by user=%d", req.CourtID, req.UserID)

	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	// 1. Получаем корт для проверки прав доступа
	court, err := s.getCourt(ctx, "Update", req.CourtID)
	if err != nil {
		return nil, err
	}

	// 2. Проверяем права доступа (только владелец корта)
	if court.OwnerID != req.UserID {
		s.logger.Warn("Update: user=%d is not the owner of court=%d", req.UserID, req.CourtID)
		return nil, ErrAccessDenied
	}

	// 3. Действующие настройки - основа для частичного обновления
	current, _, err := s.effective(ctx, req.CourtID)
	if err != nil {
		s.logger.Error("Update: repository error for court=%d: %v", req.CourtID, err)
		return nil, err
	}

	updated := &domain.CourtBookingSettings{
		CourtID:             &req.CourtID,
		SlotIntervalMinutes: current.SlotIntervalMinutes,
		LeadTimeMinutes:     current.LeadTimeMinutes,
		AdvanceBookingDays:  current.AdvanceBookingDays,
	}
	req.ApplyToSettings(updated)

	// 4. Валидируем обновленные данные
	if err := validateSettings(updated); err != nil {
		s.logger.Warn("Update: validation failed for court=%d: %v", req.CourtID, err)
		return nil, err
	}

	// 5. Сохраняем настройки уровня корта
	saved, err := s.settingsRepo.Upsert(ctx, updated)
	if err != nil {
		s.logger.Error("Update: repository error for court=%d: %v", req.CourtID, err)
		return nil, fmt.Errorf("%w: Update - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Update: successfully updated settings id=%d for court=%d", saved.ID, req.CourtID)
	return models.FromDomainSettings(req.CourtID, saved, models.LevelCourt), nil
}

// Вспомогательные методы

func (s *Service) getCourt(ctx context.Context, method string, courtID int64) (*directoryservice.Court, error) {
	court, err := s.directory.GetCourt(ctx, courtID)
	if err != nil {
		if errors.Is(err, directoryservice.ErrCourtNotFound) {
			s.logger.Warn("%s: court id=%d not found", method, courtID)
			return nil, ErrCourtNotFound
		}
		s.logger.Error("%s: failed to get court id=%d: %v", method, courtID, err)
		return nil, fmt.Errorf("%w: failed to get court: %v", ErrInternal, err)
	}
	return court, nil
}

// effective действующие настройки и уровень, с которого они взяты
func (s *Service) effective(ctx context.Context, courtID int64) (*domain.CourtBookingSettings, string, error) {
	found, err := s.settingsRepo.GetWithHierarchy(ctx, courtID)
	if err != nil {
		if errors.Is(err, settingsRepo.ErrSettingsNotFound) {
			defaults := s.defaults
			return &defaults, models.LevelDefault, nil
		}
		return nil, "", fmt.Errorf("%w: GetWithHierarchy - repository error: %v", ErrInternal, err)
	}

	if found.IsGlobal() {
		return found, models.LevelGlobal, nil
	}
	return found, models.LevelCourt, nil
}

// validateSettings валидирует параметры настроек
func validateSettings(s *domain.CourtBookingSettings) error {
	if s.SlotIntervalMinutes < domain.MinSlotIntervalMinutes || s.SlotIntervalMinutes > domain.MaxSlotIntervalMinutes {
		return fmt.Errorf("%w: slotIntervalMinutes must be between %d and %d",
			ErrInvalidInput, domain.MinSlotIntervalMinutes, domain.MaxSlotIntervalMinutes)
	}

	if s.LeadTimeMinutes < domain.MinLeadTimeMinutes || s.LeadTimeMinutes > domain.MaxLeadTimeMinutes {
		return fmt.Errorf("%w: leadTimeMinutes must be between %d and %d",
			ErrInvalidInput, domain.MinLeadTimeMinutes, domain.MaxLeadTimeMinutes)
	}

	if s.AdvanceBookingDays < domain.MinAdvanceBookingDays || s.AdvanceBookingDays > domain.MaxAdvanceBookingDays {
		return fmt.Errorf("%w: advanceBookingDays must be between %d and %d",
			ErrInvalidInput, domain.MinAdvanceBookingDays, domain.MaxAdvanceBookingDays)
	}

	return nil
}
