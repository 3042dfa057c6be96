package paypal

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
)

// Заголовки подписи вебхука
const (
	HeaderTransmissionID   = "PAYPAL-TRANSMISSION-ID"
	HeaderTransmissionTime = "PAYPAL-TRANSMISSION-TIME"
	HeaderTransmissionSig  = "PAYPAL-TRANSMISSION-SIG"
	HeaderCertURL          = "PAYPAL-CERT-URL"
	HeaderAuthAlgo         = "PAYPAL-AUTH-ALGO"
)

const supportedAuthAlgo = "SHA256withRSA"

// Verifier проверяет подлинность вебхуков провайдера
type Verifier struct {
	webhookID    string
	allowedHosts []string
	httpClient   *http.Client

	mu    sync.RWMutex
	certs map[string]*rsa.PublicKey
}

// NewVerifier создает проверяющий объект.
// Сертификат скачивается только с хостов из allowedHosts и кешируется по URL.
func NewVerifier(webhookID string, allowedHosts []string, httpClient *http.Client) *Verifier {
	return &Verifier{
		webhookID:    webhookID,
		allowedHosts: allowedHosts,
		httpClient:   httpClient,
		certs:        make(map[string]*rsa.PublicKey),
	}
}

// Verify проверяет подпись тела вебхука.
// Подписываемое сообщение: transmissionId|transmissionTime|webhookId|crc32(body)
func (v *Verifier) Verify(ctx context.Context, header http.Header, body []byte) error {
	transmissionID := header.Get(HeaderTransmissionID)
	transmissionTime := header.Get(HeaderTransmissionTime)
	signature := header.Get(HeaderTransmissionSig)
	certURL := header.Get(HeaderCertURL)
	authAlgo := header.Get(HeaderAuthAlgo)

	if transmissionID == "" || transmissionTime == "" || signature == "" || certURL == "" || authAlgo == "" {
		return fmt.Errorf("%w: missing signature headers", ErrInvalidSignature)
	}
	if v.webhookID == "" {
		return fmt.Errorf("%w: webhook id is not configured", ErrInvalidSignature)
	}
	if !strings.EqualFold(authAlgo, supportedAuthAlgo) {
		return fmt.Errorf("%w: unsupported auth algo %s", ErrInvalidSignature, authAlgo)
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not base64: %v", ErrInvalidSignature, err)
	}

	key, err := v.publicKey(ctx, certURL)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("%s|%s|%s|%d", transmissionID, transmissionTime, v.webhookID, crc32.ChecksumIEEE(body))
	digest := sha256.Sum256([]byte(message))

	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}

	return nil
}

func (v *Verifier) publicKey(ctx context.Context, certURL string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.certs[certURL]
	v.mu.RUnlock()
	if ok {
		return key, nil
	}

	u, err := url.Parse(certURL)
	if err != nil || u.Scheme != "https" || !slices.Contains(v.allowedHosts, u.Hostname()) {
		return nil, fmt.Errorf("%w: certificate url %q is not allowed", ErrInvalidSignature, certURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cert request: %v", ErrInternal, err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch certificate: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: certificate fetch returned %d", ErrInvalidSignature, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read certificate: %v", ErrInternal, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: certificate is not PEM encoded", ErrInvalidSignature)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse certificate: %v", ErrInvalidSignature, err)
	}
	key, ok = cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: certificate key is not RSA", ErrInvalidSignature)
	}

	v.mu.Lock()
	v.certs[certURL] = key
	v.mu.Unlock()

	return key, nil
}

// ParseEvent разбирает тело вебхука
func ParseEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.ID == "" || event.EventType == "" {
		return nil, fmt.Errorf("%w: id and event_type are required", ErrInvalidEvent)
	}
	return &event, nil
}

// PaymentID ID заказа, к которому относится событие.
// Для событий списания это related_ids.order_id, для событий заказа - id ресурса.
func (e *WebhookEvent) PaymentID() string {
	var res eventResource
	if err := json.Unmarshal(e.Resource, &res); err != nil {
		return ""
	}
	if res.SupplementaryData.RelatedIDs.OrderID != "" {
		return res.SupplementaryData.RelatedIDs.OrderID
	}
	return res.ID
}
