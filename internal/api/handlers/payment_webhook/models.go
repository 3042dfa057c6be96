package payment_webhook

// WebhookAckResponse ответ провайдеру на вебхук
type WebhookAckResponse struct {
	EventID string `json:"eventId"`
	Result  string `json:"result"` // результат сверки, duplicate или ignored
}

const (
	resultDuplicate = "duplicate"
	resultIgnored   = "ignored"
)
