package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Config параметры подключения к провайдеру
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string
	ReturnURL    string
	CancelURL    string
	Timeout      time.Duration
}

// Client клиент платежного провайдера (REST v2, OAuth2 client credentials)
type Client struct {
	baseURL    string
	currency   string
	returnURL  string
	cancelURL  string
	httpClient *http.Client
	log        Logger
}

// NewClient создает клиент. Токен доступа получается и обновляется автоматически.
func NewClient(cfg Config, log Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	credentials := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	base := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	httpClient := credentials.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL:    baseURL,
		currency:   cfg.Currency,
		returnURL:  cfg.ReturnURL,
		cancelURL:  cfg.CancelURL,
		httpClient: httpClient,
		log:        log,
	}
}

// CreatePayment создает заказ и возвращает ссылку подтверждения для плательщика
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []orderPurchaseUnit{
			{
				ReferenceID: req.ReferenceID,
				Description: req.Description,
				Amount:      money{CurrencyCode: c.currency, Value: formatAmount(req.Amount)},
			},
		},
	}
	if req.PayeeMerchantID != "" {
		body.PurchaseUnits[0].Payee = &orderPayee{MerchantID: req.PayeeMerchantID}
	}
	body.PaymentSource.PayPal.ExperienceContext = experienceContext{
		ReturnURL:  c.returnURL,
		CancelURL:  c.cancelURL,
		UserAction: "PAY_NOW",
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", uuid.NewString(), body, &resp); err != nil {
		return nil, err
	}

	payment := &Payment{ID: resp.ID, Status: resp.Status}
	for _, l := range resp.Links {
		if l.Rel == approvalLinkRel {
			payment.ApprovalURL = l.Href
			break
		}
	}
	if payment.ID == "" || payment.ApprovalURL == "" {
		return nil, fmt.Errorf("%w: order %q has no approval link", ErrInvalidResponse, resp.ID)
	}

	return payment, nil
}

// GetPaymentDetails получает текущий статус заказа
func (c *Client) GetPaymentDetails(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+paymentID, "", nil, &resp); err != nil {
		return nil, err
	}

	details := &PaymentDetails{
		ID:         resp.ID,
		Status:     resp.Status,
		PayerEmail: resp.Payer.EmailAddress,
		PayerID:    resp.Payer.PayerID,
	}
	if len(resp.PurchaseUnits) > 0 && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		details.TransactionID = resp.PurchaseUnits[0].Payments.Captures[0].ID
	}

	return details, nil
}

// CapturePayment списывает подтвержденный платеж.
// Повторный вызов с тем же paymentID возвращает результат первого списания.
func (c *Client) CapturePayment(ctx context.Context, paymentID string) (*Capture, error) {
	var resp orderResponse
	path := "/v2/checkout/orders/" + paymentID + "/capture"
	if err := c.do(ctx, http.MethodPost, path, "capture-"+paymentID, struct{}{}, &resp); err != nil {
		return nil, err
	}

	if resp.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: order %s status %s", ErrCaptureNotCompleted, paymentID, resp.Status)
	}
	if len(resp.PurchaseUnits) == 0 || len(resp.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, fmt.Errorf("%w: order %s has no captures", ErrInvalidResponse, paymentID)
	}

	capture := resp.PurchaseUnits[0].Payments.Captures[0]
	return &Capture{
		TransactionID: capture.ID,
		Status:        capture.Status,
		PayerEmail:    resp.Payer.EmailAddress,
		PayerID:       resp.Payer.PayerID,
	}, nil
}

// CreatePayout выплачивает сумму владельцу корта.
// SenderBatchID идемпотентен: повтор с тем же ключом не создает вторую выплату.
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (*Payout, error) {
	var body payoutRequest
	body.SenderBatchHeader.SenderBatchID = req.SenderBatchID
	body.SenderBatchHeader.EmailSubject = "You have a payout"
	body.Items = []payoutItem{
		{
			RecipientType: "EMAIL",
			Amount:        payoutMoney{Value: formatAmount(req.Amount), Currency: c.currency},
			Receiver:      req.ReceiverEmail,
			Note:          req.Note,
			SenderItemID:  req.SenderBatchID,
		},
	}

	var resp payoutResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payments/payouts", req.SenderBatchID, body, &resp); err != nil {
		return nil, err
	}

	return &Payout{
		BatchID: resp.BatchHeader.PayoutBatchID,
		Status:  resp.BatchHeader.BatchStatus,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal request: %v", ErrInternal, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// Продолжаем обработку
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrPaymentNotFound, method, path)
	default:
		var apiErr ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &apiErr)
		c.log.Error("PayPal responded %d for %s %s: %s (debug_id=%s)", resp.StatusCode, method, path, apiErr.Name, apiErr.DebugID)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return nil
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
