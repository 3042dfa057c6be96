package get_availability

import (
	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	getAvailability "github.com/m04kA/SMC-CourtReservationService/internal/usecase/get_availability"
)

// SlotResponse HTTP модель слота
type SlotResponse struct {
	From              string `json:"from"` // "9:00 AM"
	To                string `json:"to"`   // "10:00 AM"
	FreeSubCourts     []int  `json:"freeCourts"`
	OccupiedSubCourts []int  `json:"occupiedCourts"`
}

// CourtAvailabilityResponse HTTP модель доступности корта
type CourtAvailabilityResponse struct {
	CourtID          int64          `json:"courtId"`
	CourtName        string         `json:"courtName"`
	TotalSubCourts   int            `json:"totalCourts"`
	AvailableSlots   []SlotResponse `json:"availableSlots"`
	UnavailableSlots []SlotResponse `json:"unavailableSlots"`
}

// AvailabilityResponse HTTP response model
type AvailabilityResponse struct {
	Date              string                      `json:"date"`
	Courts            []CourtAvailabilityResponse `json:"courts"`
	ReservedDates     []string                    `json:"reservedDates"`
	UserReservedDates []string                    `json:"userReservedDates"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailability.Response) *AvailabilityResponse {
	out := &AvailabilityResponse{
		Date:              resp.Date.Format(domain.DateFormat),
		Courts:            make([]CourtAvailabilityResponse, 0, len(resp.Courts)),
		ReservedDates:     nonNil(resp.ReservedDates),
		UserReservedDates: nonNil(resp.UserReservedDates),
	}

	for _, c := range resp.Courts {
		out.Courts = append(out.Courts, CourtAvailabilityResponse{
			CourtID:          c.CourtID,
			CourtName:        c.CourtName,
			TotalSubCourts:   c.TotalSubCourts,
			AvailableSlots:   toSlots(c.Available),
			UnavailableSlots: toSlots(c.Unavailable),
		})
	}

	return out
}

func toSlots(slots []domain.SlotAvailability) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			From:              s.Slot.From.Format12Hour(),
			To:                s.Slot.To.Format12Hour(),
			FreeSubCourts:     nonNilInts(s.FreeSubCourts),
			OccupiedSubCourts: nonNilInts(s.OccupiedSubCourts),
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
