package directoryservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CourtReservationService/pkg/logger"
)

func testCourt() Court {
	return Court{
		ID:             7,
		Name:           "Center Court",
		OperatingHours: OperatingHours{From: "9:00 AM", To: "5:00 PM"},
		HourlyRate:     250,
		TotalCourts:    3,
		OwnerID:        1,
	}
}

func newDirectoryServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/internal/courts/7", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		json.NewEncoder(w).Encode(testCourt())
	})
	mux.HandleFunc("/internal/courts", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		json.NewEncoder(w).Encode([]Court{testCourt()})
	})
	mux.HandleFunc("/internal/courts/7/payment-recipient", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PaymentRecipient{CourtID: 7, PayeeMerchantID: "MERCHANT", PayoutEmail: "owner@example.com"})
	})
	mux.HandleFunc("/internal/courts/8", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetCourt(t *testing.T) {
	var hits int32
	srv := newDirectoryServer(t, &hits)
	client := NewClient(srv.URL, time.Second, logger.Nop())

	court, err := client.GetCourt(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, testCourt(), *court)

	_, err = client.GetCourt(context.Background(), 99)
	assert.ErrorIs(t, err, ErrCourtNotFound)

	_, err = client.GetCourt(context.Background(), 8)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_GetPaymentRecipient(t *testing.T) {
	var hits int32
	srv := newDirectoryServer(t, &hits)
	client := NewClient(srv.URL, time.Second, logger.Nop())

	recipient, err := client.GetPaymentRecipient(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", recipient.PayoutEmail)

	_, err = client.GetPaymentRecipient(context.Background(), 99)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestCachedClient_ServesFromRedis(t *testing.T) {
	var hits int32
	srv := newDirectoryServer(t, &hits)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cached := NewCachedClient(NewClient(srv.URL, time.Second, logger.Nop()), rdb, time.Minute, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		court, err := cached.GetCourt(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), court.ID)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	courts, err := cached.ListCourts(ctx)
	require.NoError(t, err)
	assert.Len(t, courts, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	mr.FastForward(2 * time.Minute)
	_, err = cached.GetCourt(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestCachedClient_RedisDownFallsBackToUpstream(t *testing.T) {
	var hits int32
	srv := newDirectoryServer(t, &hits)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	cached := NewCachedClient(NewClient(srv.URL, time.Second, logger.Nop()), rdb, time.Minute, logger.Nop())

	court, err := cached.GetCourt(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), court.ID)
}
