package paypal

import "encoding/json"

// Статусы заказа у провайдера
const (
	StatusCreated             = "CREATED"
	StatusApproved            = "APPROVED"
	StatusCompleted           = "COMPLETED"
	StatusPayerActionRequired = "PAYER_ACTION_REQUIRED"
	StatusVoided              = "VOIDED"
)

const approvalLinkRel = "payer-action"

// CreatePaymentRequest параметры создания платежа
type CreatePaymentRequest struct {
	ReferenceID     string // ID бронирования
	Amount          float64
	PayeeMerchantID string
	Description     string
}

// Payment созданный платеж
type Payment struct {
	ID          string
	Status      string
	ApprovalURL string
}

// PaymentDetails текущее состояние платежа.
// Для списанного заказа заполнены TransactionID и плательщик.
type PaymentDetails struct {
	ID            string
	Status        string
	TransactionID string
	PayerEmail    string
	PayerID       string
}

// Capture результат списания
type Capture struct {
	TransactionID string
	Status        string
	PayerEmail    string
	PayerID       string
}

// PayoutRequest параметры выплаты владельцу корта
type PayoutRequest struct {
	SenderBatchID string // идемпотентный ключ выплаты
	ReceiverEmail string
	Amount        float64
	Note          string
}

// Payout созданная выплата
type Payout struct {
	BatchID string
	Status  string
}

// WebhookEvent уведомление провайдера
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

// ErrorResponse модель ошибки провайдера
type ErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id"`
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderRequest struct {
	Intent        string              `json:"intent"`
	PurchaseUnits []orderPurchaseUnit `json:"purchase_units"`
	PaymentSource orderPaymentSource  `json:"payment_source"`
}

type orderPurchaseUnit struct {
	ReferenceID string      `json:"reference_id"`
	Description string      `json:"description,omitempty"`
	Amount      money       `json:"amount"`
	Payee       *orderPayee `json:"payee,omitempty"`
}

type orderPayee struct {
	MerchantID string `json:"merchant_id"`
}

type orderPaymentSource struct {
	PayPal struct {
		ExperienceContext experienceContext `json:"experience_context"`
	} `json:"paypal"`
}

type experienceContext struct {
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	UserAction string `json:"user_action"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
		PayerID      string `json:"payer_id"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type payoutRequest struct {
	SenderBatchHeader struct {
		SenderBatchID string `json:"sender_batch_id"`
		EmailSubject  string `json:"email_subject"`
	} `json:"sender_batch_header"`
	Items []payoutItem `json:"items"`
}

type payoutItem struct {
	RecipientType string      `json:"recipient_type"`
	Amount        payoutMoney `json:"amount"`
	Receiver      string      `json:"receiver"`
	Note          string      `json:"note,omitempty"`
	SenderItemID  string      `json:"sender_item_id"`
}

type payoutMoney struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type payoutResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

type eventResource struct {
	ID                string `json:"id"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}
