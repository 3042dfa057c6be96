package handle_payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/paypal"
	"github.com/m04kA/SMC-CourtReservationService/pkg/logger"
	"github.com/m04kA/SMC-CourtReservationService/pkg/ptr"
	"github.com/m04kA/SMC-CourtReservationService/pkg/types"
)

// fakeRepo повторяет условные переходы репозитория
type fakeRepo struct {
	mu    sync.Mutex
	items map[int64]*domain.Reservation

	// conflictOn: метод, перед которым бронь "завершается" другим обработчиком
	conflictOn string
	// cancelOn: метод, перед которым пользователь отменяет бронь
	cancelOn string
}

func (f *fakeRepo) get(id int64) (*domain.Reservation, error) {
	r, ok := f.items[id]
	if !ok {
		return nil, reservationRepo.ErrReservationNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeRepo) GetByPaymentID(_ context.Context, paymentID string) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.items {
		if r.PaymentID != nil && *r.PaymentID == paymentID {
			return f.get(id)
		}
	}
	return nil, reservationRepo.ErrReservationNotFound
}

// transition применяет apply, если шаг равен from и статус равен status (пустой - любой)
func (f *fakeRepo) transition(
	method string,
	id int64,
	status domain.ReservationStatus,
	from domain.PaymentStep,
	apply func(r *domain.Reservation),
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.items[id]
	if f.conflictOn == method && ok {
		r.Status = domain.StatusConfirmed
		r.PaymentStatus = domain.PaymentPaid
		r.PaymentStep = domain.StepCompleted
	}
	if f.cancelOn == method && ok {
		r.Status = domain.StatusCancelled
	}
	if !ok || (status != "" && r.Status != status) || r.PaymentStep != from {
		return reservationRepo.ErrStateConflict
	}
	apply(r)
	return nil
}

func (f *fakeRepo) MarkCaptured(_ context.Context, id int64, capture domain.PaymentCapture) error {
	return f.transition("MarkCaptured", id, "", domain.StepInitiated, func(r *domain.Reservation) {
		r.TransactionID = &capture.TransactionID
		r.PayerEmail = &capture.PayerEmail
		r.PayerID = &capture.PayerID
		r.PaymentStep = domain.StepCaptured
	})
}

func (f *fakeRepo) MarkPaidOut(_ context.Context, id int64, batchID string) error {
	return f.transition("MarkPaidOut", id, "", domain.StepCaptured, func(r *domain.Reservation) {
		r.PayoutBatchID = &batchID
		r.PaymentStep = domain.StepPaidOut
	})
}

func (f *fakeRepo) Confirm(_ context.Context, id int64) error {
	return f.transition("Confirm", id, domain.StatusPending, domain.StepPaidOut, func(r *domain.Reservation) {
		r.Status = domain.StatusConfirmed
		r.PaymentStatus = domain.PaymentPaid
		r.PaymentStep = domain.StepCompleted
	})
}

func (f *fakeRepo) Settle(_ context.Context, id int64) error {
	return f.transition("Settle", id, domain.StatusCancelled, domain.StepPaidOut, func(r *domain.Reservation) {
		r.PaymentStatus = domain.PaymentPaid
		r.PaymentStep = domain.StepCompleted
	})
}

func (f *fakeRepo) DeletePending(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.items[id]
	if !ok || !r.IsAwaitingPayment() {
		return false, nil
	}
	delete(f.items, id)
	return true, nil
}

type fakeProvider struct {
	mu         sync.Mutex
	status     string
	noCapture  bool // COMPLETED без записи о списании
	detailsErr error
	captureErr error
	payoutErr  error

	captures int
	payouts  []paypal.PayoutRequest
}

func (f *fakeProvider) GetPaymentDetails(_ context.Context, paymentID string) (*paypal.PaymentDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	details := &paypal.PaymentDetails{ID: paymentID, Status: f.status}
	if f.status == paypal.StatusCompleted && !f.noCapture {
		details.TransactionID = "TX-1"
		details.PayerEmail = "payer@example.com"
		details.PayerID = "PAYER"
	}
	return details, nil
}

func (f *fakeProvider) CapturePayment(context.Context, string) (*paypal.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	f.status = paypal.StatusCompleted
	return &paypal.Capture{TransactionID: "TX-1", Status: paypal.StatusCompleted, PayerEmail: "payer@example.com", PayerID: "PAYER"}, nil
}

func (f *fakeProvider) CreatePayout(_ context.Context, req paypal.PayoutRequest) (*paypal.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payouts = append(f.payouts, req)
	if f.payoutErr != nil {
		return nil, f.payoutErr
	}
	return &paypal.Payout{BatchID: "BATCH-" + req.SenderBatchID, Status: "PENDING"}, nil
}

type fakeDirectory struct{}

func (fakeDirectory) GetPaymentRecipient(_ context.Context, courtID int64) (*directoryservice.PaymentRecipient, error) {
	return &directoryservice.PaymentRecipient{CourtID: courtID, PayeeMerchantID: "MERCHANT", PayoutEmail: "owner@example.com"}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(eventType string, _ domain.ReservationEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

type fakeMetrics struct {
	mu      sync.Mutex
	results []string
}

func (f *fakeMetrics) IncReconciliation(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
}

type fixture struct {
	uc       *UseCase
	repo     *fakeRepo
	provider *fakeProvider
	notifier *fakeNotifier
	metrics  *fakeMetrics
}

func newFixture(status string) *fixture {
	f := &fixture{
		repo: &fakeRepo{items: map[int64]*domain.Reservation{
			1: {
				ID:            1,
				CourtID:       3,
				UserID:        50,
				Date:          time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
				TimeSlot:      domain.TimeSlot{From: types.TimeString("10:00"), To: types.TimeString("12:00")},
				SubCourts:     []int{0},
				TotalAmount:   400,
				Status:        domain.StatusPending,
				PaymentStatus: domain.PaymentUnpaid,
				PaymentID:     ptr.Ptr("ORDER-1"),
				PaymentStep:   domain.StepInitiated,
			},
		}},
		provider: &fakeProvider{status: status},
		notifier: &fakeNotifier{},
		metrics:  &fakeMetrics{},
	}
	f.uc = NewUseCase(f.repo, f.provider, fakeDirectory{}, f.notifier, f.metrics, time.Second, logger.Nop())
	return f
}

func TestExecute_ApprovedPaymentIsConfirmed(t *testing.T) {
	f := newFixture(paypal.StatusApproved)
	ctx := context.Background()

	resp, err := f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1", ReservationID: ptr.Ptr(int64(1))})
	require.NoError(t, err)
	assert.Equal(t, ResultConfirmed, resp.Result)

	stored, err := f.repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, domain.StepCompleted, stored.PaymentStep)
	assert.Equal(t, "TX-1", *stored.TransactionID)
	assert.Equal(t, "payer@example.com", *stored.PayerEmail)
	assert.Equal(t, "BATCH-reservation-1", *stored.PayoutBatchID)

	require.Len(t, f.provider.payouts, 1)
	assert.Equal(t, "reservation-1", f.provider.payouts[0].SenderBatchID)
	assert.Equal(t, "owner@example.com", f.provider.payouts[0].ReceiverEmail)
	assert.InDelta(t, 400.0, f.provider.payouts[0].Amount, 0.001)

	// повторная сверка ничего не списывает
	resp, err = f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
	require.NoError(t, err)
	assert.Equal(t, ResultAlreadyCompleted, resp.Result)
	assert.Equal(t, 1, f.provider.captures)
	assert.Len(t, f.provider.payouts, 1)
	assert.Empty(t, f.notifier.events)
	assert.Equal(t, []string{ResultConfirmed, ResultAlreadyCompleted}, f.metrics.results)
}

func TestExecute_AbandonedPaymentDeletesReservationOnce(t *testing.T) {
	for _, status := range []string{paypal.StatusPayerActionRequired, paypal.StatusVoided} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(status)
			ctx := context.Background()

			resp, err := f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
			require.NoError(t, err)
			assert.Equal(t, ResultCancelled, resp.Result)
			assert.Equal(t, []string{domain.EventReservationCanceled}, f.notifier.events)

			_, err = f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
			assert.ErrorIs(t, err, ErrReservationNotFound)
			assert.Len(t, f.notifier.events, 1)
			assert.Zero(t, f.provider.captures)
		})
	}
}

func TestReconcile_DeleteRaceBroadcastsOnce(t *testing.T) {
	f := newFixture(paypal.StatusVoided)
	ctx := context.Background()

	res, err := f.repo.GetByID(ctx, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			copied := *res
			_, _ = f.uc.Reconcile(ctx, &copied)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{domain.EventReservationCanceled}, f.notifier.events)
}

func TestExecute_PayoutFailureResumesFromCapturedStep(t *testing.T) {
	f := newFixture(paypal.StatusApproved)
	f.provider.payoutErr = errors.New("payouts unavailable")
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
	assert.ErrorIs(t, err, ErrReconciliationPending)

	stored, err := f.repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StepCaptured, stored.PaymentStep)
	assert.Equal(t, domain.StatusPending, stored.Status)

	f.provider.payoutErr = nil
	resp, err := f.uc.Reconcile(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, ResultConfirmed, resp.Result)

	assert.Equal(t, 1, f.provider.captures)
	require.Len(t, f.provider.payouts, 2)
	assert.Equal(t, f.provider.payouts[0].SenderBatchID, f.provider.payouts[1].SenderBatchID)
	assert.Equal(t, []string{ResultPending, ResultConfirmed}, f.metrics.results)
}

func TestExecute_CompletedAtProviderWithoutCapturedStep(t *testing.T) {
	f := newFixture(paypal.StatusCompleted)

	ctx := context.Background()

	resp, err := f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
	require.NoError(t, err)
	assert.Equal(t, ResultConfirmed, resp.Result)
	assert.Zero(t, f.provider.captures)
	assert.Len(t, f.provider.payouts, 1)

	stored, err := f.repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stored.TransactionID)
	assert.Equal(t, "TX-1", *stored.TransactionID)
	assert.Equal(t, "payer@example.com", *stored.PayerEmail)
	assert.Equal(t, "PAYER", *stored.PayerID)
}

func TestExecute_CompletedAtProviderWithoutCaptureRecord(t *testing.T) {
	f := newFixture(paypal.StatusCompleted)
	f.provider.noCapture = true
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
	assert.ErrorIs(t, err, ErrPaymentProvider)
	assert.Empty(t, f.provider.payouts)

	stored, err := f.repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StepInitiated, stored.PaymentStep)
	assert.Nil(t, stored.TransactionID)
}

func TestReconcile_CancelledAfterCaptureIsSettled(t *testing.T) {
	for _, step := range []domain.PaymentStep{domain.StepCaptured, domain.StepPaidOut} {
		t.Run(string(step), func(t *testing.T) {
			f := newFixture(paypal.StatusCompleted)
			item := f.repo.items[1]
			item.Status = domain.StatusCancelled
			item.PaymentStep = step
			item.TransactionID = ptr.Ptr("TX-1")
			if step == domain.StepPaidOut {
				item.PayoutBatchID = ptr.Ptr("BATCH-reservation-1")
			}
			ctx := context.Background()

			res, err := f.repo.GetByID(ctx, 1)
			require.NoError(t, err)
			resp, err := f.uc.Reconcile(ctx, res)
			require.NoError(t, err)
			assert.Equal(t, ResultSettled, resp.Result)

			stored, err := f.repo.GetByID(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCancelled, stored.Status)
			assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
			assert.Equal(t, domain.StepCompleted, stored.PaymentStep)
			assert.Zero(t, f.provider.captures)
			if step == domain.StepCaptured {
				assert.Len(t, f.provider.payouts, 1)
			} else {
				assert.Empty(t, f.provider.payouts)
			}

			// сага закрыта, повторная сверка ничего не делает
			resp, err = f.uc.Reconcile(ctx, stored)
			require.NoError(t, err)
			assert.Equal(t, ResultAlreadyCompleted, resp.Result)
			assert.Equal(t, []string{ResultSettled, ResultAlreadyCompleted}, f.metrics.results)
		})
	}
}

func TestExecute_CancelledDuringSagaIsSettled(t *testing.T) {
	for _, method := range []string{"MarkCaptured", "MarkPaidOut", "Confirm"} {
		t.Run(method, func(t *testing.T) {
			f := newFixture(paypal.StatusApproved)
			f.repo.cancelOn = method
			ctx := context.Background()

			resp, err := f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
			require.NoError(t, err)
			assert.Equal(t, ResultSettled, resp.Result)

			stored, err := f.repo.GetByID(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCancelled, stored.Status)
			assert.Equal(t, domain.StepCompleted, stored.PaymentStep)
			assert.Equal(t, "TX-1", *stored.TransactionID)
			assert.Equal(t, 1, f.provider.captures)
			assert.Len(t, f.provider.payouts, 1)
		})
	}
}

func TestExecute_ConcurrentCompletion(t *testing.T) {
	f := newFixture(paypal.StatusApproved)
	f.repo.conflictOn = "MarkPaidOut"

	resp, err := f.uc.Execute(context.Background(), &Request{PaymentID: "ORDER-1"})
	require.NoError(t, err)
	assert.Equal(t, ResultAlreadyCompleted, resp.Result)
}

func TestExecute_NoopCases(t *testing.T) {
	t.Run("payment still created", func(t *testing.T) {
		f := newFixture(paypal.StatusCreated)

		resp, err := f.uc.Execute(context.Background(), &Request{PaymentID: "ORDER-1"})
		require.NoError(t, err)
		assert.Equal(t, ResultNoop, resp.Result)
		assert.Len(t, f.repo.items, 1)
	})

	t.Run("cancelled reservation", func(t *testing.T) {
		f := newFixture(paypal.StatusApproved)
		f.repo.items[1].Status = domain.StatusCancelled

		resp, err := f.uc.Execute(context.Background(), &Request{PaymentID: "ORDER-1"})
		require.NoError(t, err)
		assert.Equal(t, ResultNoop, resp.Result)
		assert.Zero(t, f.provider.captures)
	})
}

func TestExecute_Errors(t *testing.T) {
	f := newFixture(paypal.StatusApproved)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{PaymentID: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.uc.Execute(ctx, &Request{PaymentID: "ORDER-404"})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	_, err = f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1", ReservationID: ptr.Ptr(int64(2))})
	assert.ErrorIs(t, err, ErrReservationMismatch)

	f.provider.detailsErr = paypal.ErrInvalidResponse
	_, err = f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
	assert.ErrorIs(t, err, ErrPaymentProvider)

	f.provider.detailsErr = nil
	f.provider.captureErr = paypal.ErrCaptureNotCompleted
	_, err = f.uc.Execute(ctx, &Request{PaymentID: "ORDER-1"})
	assert.ErrorIs(t, err, ErrPaymentProvider)

	stored, err := f.repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StepInitiated, stored.PaymentStep)
}
