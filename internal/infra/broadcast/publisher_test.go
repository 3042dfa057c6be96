package broadcast

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/pkg/logger"
)

type countingFailures struct {
	n int32
}

func (c *countingFailures) IncBroadcastFailure(string) {
	atomic.AddInt32(&c.n, 1)
}

func TestPublisher_Publish(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "court-reservations")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewPublisher(client, "court-reservations", nil, logger.Nop())
	event := domain.ReservationEvent{ReservationID: 42, CourtID: 7, Date: "2026-10-20"}
	require.NoError(t, publisher.Publish(ctx, domain.EventReservationCreated, event))

	select {
	case raw := <-sub.Channel():
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(raw.Payload), &msg))
		assert.Equal(t, domain.EventReservationCreated, msg.Type)
		assert.Equal(t, event, msg.Payload)
		assert.NotEmpty(t, msg.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestPublisher_NotifyCountsFailures(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	failures := &countingFailures{}
	publisher := NewPublisher(client, "court-reservations", failures, logger.Nop())
	publisher.Notify(domain.EventReservationCanceled, domain.ReservationEvent{ReservationID: 1})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&failures.n) == 1
	}, 3*time.Second, 10*time.Millisecond)
}
