package update_court_settings

import (
	"github.com/m04kA/SMC-CourtReservationService/internal/service/settings/models"
)

// UpdateCourtSettingsRequest HTTP request model
type UpdateCourtSettingsRequest struct {
	SlotIntervalMinutes *int `json:"slotIntervalMinutes,omitempty"`
	LeadTimeMinutes     *int `json:"leadTimeMinutes,omitempty"`
	AdvanceBookingDays  *int `json:"advanceBookingDays,omitempty"`
}

// ToServiceRequest конвертирует HTTP request в модель сервиса
func (r *UpdateCourtSettingsRequest) ToServiceRequest(courtID, userID int64) *models.UpdateSettingsRequest {
	return &models.UpdateSettingsRequest{
		UserID:              userID,
		CourtID:             courtID,
		SlotIntervalMinutes: r.SlotIntervalMinutes,
		LeadTimeMinutes:     r.LeadTimeMinutes,
		AdvanceBookingDays:  r.AdvanceBookingDays,
	}
}
