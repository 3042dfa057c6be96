package models

import (
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
)

// Уровни, с которых взяты действующие настройки
const (
	LevelCourt   = "court"
	LevelGlobal  = "global"
	LevelDefault = "default"
)

// Request модели

// UpdateSettingsRequest запрос на обновление настроек корта
// Все поля опциональны - обновляются только переданные значения
type UpdateSettingsRequest struct {
	UserID              int64 `json:"userId"`
	CourtID             int64 `json:"courtId"`
	SlotIntervalMinutes *int  `json:"slotIntervalMinutes,omitempty"`
	LeadTimeMinutes     *int  `json:"leadTimeMinutes,omitempty"`
	AdvanceBookingDays  *int  `json:"advanceBookingDays,omitempty"`
}

// Response модели

// SettingsResponse действующие настройки бронирования корта
type SettingsResponse struct {
	CourtID             int64      `json:"courtId"`
	Level               string     `json:"level"` // court | global | default
	SlotIntervalMinutes int        `json:"slotIntervalMinutes"`
	LeadTimeMinutes     int        `json:"leadTimeMinutes"`
	AdvanceBookingDays  int        `json:"advanceBookingDays"` // 0 = без ограничения
	UpdatedAt           *time.Time `json:"updatedAt,omitempty"`
}

// Методы конвертации

// FromDomainSettings конвертирует domain модель в DTO
func FromDomainSettings(courtID int64, s *domain.CourtBookingSettings, level string) *SettingsResponse {
	resp := &SettingsResponse{
		CourtID:             courtID,
		Level:               level,
		SlotIntervalMinutes: s.SlotIntervalMinutes,
		LeadTimeMinutes:     s.LeadTimeMinutes,
		AdvanceBookingDays:  s.AdvanceBookingDays,
	}

	if !s.UpdatedAt.IsZero() {
		updatedAt := s.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}

	return resp
}

// ApplyToSettings применяет обновления к настройкам
// Обновляются только непустые (not nil) поля из request
func (r *UpdateSettingsRequest) ApplyToSettings(s *domain.CourtBookingSettings) {
	if r.SlotIntervalMinutes != nil {
		s.SlotIntervalMinutes = *r.SlotIntervalMinutes
	}
	if r.LeadTimeMinutes != nil {
		s.LeadTimeMinutes = *r.LeadTimeMinutes
	}
	if r.AdvanceBookingDays != nil {
		s.AdvanceBookingDays = *r.AdvanceBookingDays
	}
}

// IsEmpty true, если не передано ни одного поля
func (r *UpdateSettingsRequest) IsEmpty() bool {
	return r.SlotIntervalMinutes == nil && r.LeadTimeMinutes == nil && r.AdvanceBookingDays == nil
}
