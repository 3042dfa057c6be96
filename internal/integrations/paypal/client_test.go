package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CourtReservationService/pkg/logger"
)

func newProviderServer(t *testing.T, orders http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		orders(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		Currency:     "PHP",
		ReturnURL:    "https://app.example.com/return",
		CancelURL:    "https://app.example.com/cancel",
		Timeout:      2 * time.Second,
	}, logger.Nop())
}

func TestCreatePayment(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/checkout/orders", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("PayPal-Request-Id"))

		var body orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CAPTURE", body.Intent)
		assert.Equal(t, "500.00", body.PurchaseUnits[0].Amount.Value)
		assert.Equal(t, "PHP", body.PurchaseUnits[0].Amount.CurrencyCode)
		assert.Equal(t, "MERCHANT", body.PurchaseUnits[0].Payee.MerchantID)
		assert.Equal(t, "https://app.example.com/return", body.PaymentSource.PayPal.ExperienceContext.ReturnURL)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"ORDER-1","status":"PAYER_ACTION_REQUIRED","links":[
			{"href":"https://api/self","rel":"self"},
			{"href":"https://paypal.example/approve?token=ORDER-1","rel":"payer-action"}]}`))
	})

	payment, err := newTestClient(srv).CreatePayment(context.Background(), CreatePaymentRequest{
		ReferenceID:     "42",
		Amount:          500,
		PayeeMerchantID: "MERCHANT",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", payment.ID)
	assert.Equal(t, "https://paypal.example/approve?token=ORDER-1", payment.ApprovalURL)
}

func TestCreatePayment_NoApprovalLink(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[]}`))
	})

	_, err := newTestClient(srv).CreatePayment(context.Background(), CreatePaymentRequest{Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGetPaymentDetails(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/checkout/orders/ORDER-1" {
			w.Write([]byte(`{"id":"ORDER-1","status":"APPROVED"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	client := newTestClient(srv)

	details, err := client.GetPaymentDetails(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, details.Status)
	assert.Empty(t, details.TransactionID)

	_, err = client.GetPaymentDetails(context.Background(), "ORDER-404")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestGetPaymentDetails_CompletedOrderCarriesCapture(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ORDER-2","status":"COMPLETED",
			"payer":{"email_address":"payer@example.com","payer_id":"PAYER"},
			"purchase_units":[{"payments":{"captures":[{"id":"TX-2","status":"COMPLETED"}]}}]}`))
	})

	details, err := newTestClient(srv).GetPaymentDetails(context.Background(), "ORDER-2")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, details.Status)
	assert.Equal(t, "TX-2", details.TransactionID)
	assert.Equal(t, "payer@example.com", details.PayerEmail)
	assert.Equal(t, "PAYER", details.PayerID)
}

func TestCapturePayment(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "capture-ORDER-1", r.Header.Get("PayPal-Request-Id"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"ORDER-1","status":"COMPLETED",
			"payer":{"email_address":"payer@example.com","payer_id":"PAYER"},
			"purchase_units":[{"payments":{"captures":[{"id":"TX-1","status":"COMPLETED"}]}}]}`))
	})

	capture, err := newTestClient(srv).CapturePayment(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "TX-1", capture.TransactionID)
	assert.Equal(t, "payer@example.com", capture.PayerEmail)
	assert.Equal(t, "PAYER", capture.PayerID)
}

func TestCapturePayment_NotCompleted(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ORDER-1","status":"PENDING"}`))
	})

	_, err := newTestClient(srv).CapturePayment(context.Background(), "ORDER-1")
	assert.ErrorIs(t, err, ErrCaptureNotCompleted)
}

func TestCreatePayout(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/payouts", r.URL.Path)
		assert.Equal(t, "reservation-42", r.Header.Get("PayPal-Request-Id"))

		var body payoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "reservation-42", body.SenderBatchHeader.SenderBatchID)
		assert.Equal(t, "owner@example.com", body.Items[0].Receiver)
		assert.Equal(t, "750.50", body.Items[0].Amount.Value)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"batch_header":{"payout_batch_id":"BATCH-1","batch_status":"PENDING"}}`))
	})

	payout, err := newTestClient(srv).CreatePayout(context.Background(), PayoutRequest{
		SenderBatchID: "reservation-42",
		ReceiverEmail: "owner@example.com",
		Amount:        750.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "BATCH-1", payout.BatchID)
}

func TestProviderError(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","debug_id":"abc"}`))
	})

	_, err := newTestClient(srv).CapturePayment(context.Background(), "ORDER-1")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
