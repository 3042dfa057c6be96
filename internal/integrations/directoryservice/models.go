package directoryservice

// OperatingHours рабочие часы корта в 12-часовом формате ("9:00 AM")
type OperatingHours struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Court модель корта из сервиса справочников
type Court struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	OperatingHours OperatingHours `json:"operating_hours"`
	HourlyRate     float64        `json:"hourly_rate"`
	TotalCourts    int            `json:"total_courts"` // количество подкортов
	OwnerID        int64          `json:"owner_id"`     // администратор корта
}

// PaymentRecipient получатель выплат по корту
type PaymentRecipient struct {
	CourtID         int64  `json:"court_id"`
	PayeeMerchantID string `json:"payee_merchant_id"`
	PayoutEmail     string `json:"payout_email"`
}

// ErrorResponse модель ошибки от сервиса справочников
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
