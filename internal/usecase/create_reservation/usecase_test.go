package create_reservation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/reservation"
	settingsRepo "github.com/m04kA/SMC-CourtReservationService/internal/infra/storage/settings"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/directoryservice"
	"github.com/m04kA/SMC-CourtReservationService/internal/integrations/paypal"
	"github.com/m04kA/SMC-CourtReservationService/pkg/logger"
	"github.com/m04kA/SMC-CourtReservationService/pkg/types"
)

var manila = mustLocation("Asia/Manila")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

// slotClaim строка reservation_slots: интервал одного подкорта
type slotClaim struct {
	reservationID int64
	courtID       int64
	date          string
	subCourt      int
	slot          domain.TimeSlot
}

// fakeRepo хранит брони в памяти и повторяет ограничение исключения reservation_slots
type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Reservation
	claims []slotClaim
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[int64]*domain.Reservation)}
}

func (f *fakeRepo) Create(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	date := res.Date.Format(domain.DateFormat)
	for _, c := range f.claims {
		if c.courtID == res.CourtID && c.date == date && slices.Contains(res.SubCourts, c.subCourt) && c.slot.Overlaps(res.TimeSlot) {
			return nil, fmt.Errorf("%w: sub-court %d %s", reservationRepo.ErrSlotTaken, c.subCourt, c.slot.Label())
		}
	}

	f.nextID++
	res.ID = f.nextID
	for _, idx := range res.SubCourts {
		f.claims = append(f.claims, slotClaim{reservationID: res.ID, courtID: res.CourtID, date: date, subCourt: idx, slot: res.TimeSlot})
	}
	stored := *res
	f.items[res.ID] = &stored
	return res, nil
}

func (f *fakeRepo) List(_ context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.Reservation
	for _, r := range f.items {
		if filter.CourtID != nil && r.CourtID != *filter.CourtID {
			continue
		}
		if filter.StartDate != nil && r.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && r.Date.After(*filter.EndDate) {
			continue
		}
		if filter.OnlyActive && !r.IsActive() {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRepo) SetPaymentInitiated(_ context.Context, id int64, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.items[id]
	if !ok || r.PaymentStep != domain.StepNone {
		return reservationRepo.ErrStateConflict
	}
	r.PaymentID = &paymentID
	r.PaymentStep = domain.StepInitiated
	return nil
}

func (f *fakeRepo) DeletePending(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.items[id]
	if !ok || !r.IsAwaitingPayment() {
		return false, nil
	}
	delete(f.items, id)
	f.claims = slices.DeleteFunc(f.claims, func(c slotClaim) bool { return c.reservationID == id })
	return true, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeSettings struct {
	settings *domain.CourtBookingSettings
}

func (f fakeSettings) GetWithHierarchy(context.Context, int64) (*domain.CourtBookingSettings, error) {
	if f.settings == nil {
		return nil, settingsRepo.ErrSettingsNotFound
	}
	return f.settings, nil
}

type fakeDirectory struct {
	court        directoryservice.Court
	recipientErr error
}

func (f *fakeDirectory) GetCourt(_ context.Context, id int64) (*directoryservice.Court, error) {
	if id != f.court.ID {
		return nil, directoryservice.ErrCourtNotFound
	}
	c := f.court
	return &c, nil
}

func (f *fakeDirectory) GetPaymentRecipient(_ context.Context, courtID int64) (*directoryservice.PaymentRecipient, error) {
	if f.recipientErr != nil {
		return nil, f.recipientErr
	}
	return &directoryservice.PaymentRecipient{CourtID: courtID, PayeeMerchantID: "MERCHANT", PayoutEmail: "owner@example.com"}, nil
}

type fakePayments struct {
	mu       sync.Mutex
	err      error
	requests []paypal.CreatePaymentRequest
}

func (f *fakePayments) CreatePayment(_ context.Context, req paypal.CreatePaymentRequest) (*paypal.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	id := "ORDER-" + req.ReferenceID
	return &paypal.Payment{ID: id, Status: paypal.StatusPayerActionRequired, ApprovalURL: "https://paypal.example/approve?token=" + id}, nil
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
	mu       sync.Mutex
	outcomes []string
}

func (f *fakeMetrics) IncReservation(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

type passThroughTx struct {
	err error
}

func (t passThroughTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return t.err
}

type fixture struct {
	uc       *UseCase
	repo     *fakeRepo
	dir      *fakeDirectory
	payments *fakePayments
	notifier *fakeNotifier
	metrics  *fakeMetrics
}

func newFixture(now time.Time, settings *domain.CourtBookingSettings, tx TransactionManager) *fixture {
	f := &fixture{
		repo: newFakeRepo(),
		dir: &fakeDirectory{court: directoryservice.Court{
			ID:             1,
			Name:           "Center Court",
			OperatingHours: directoryservice.OperatingHours{From: "9:00 AM", To: "5:00 PM"},
			HourlyRate:     200,
			TotalCourts:    2,
			OwnerID:        100,
		}},
		payments: &fakePayments{},
		notifier: &fakeNotifier{},
		metrics:  &fakeMetrics{},
	}
	if tx == nil {
		tx = passThroughTx{}
	}

	f.uc = NewUseCase(f.repo, fakeSettings{settings: settings}, f.dir, f.payments, f.notifier, f.metrics, tx,
		domain.CourtBookingSettings{
			SlotIntervalMinutes: domain.DefaultSlotIntervalMinutes,
			LeadTimeMinutes:     domain.DefaultLeadTimeMinutes,
		}, manila, time.Second, logger.Nop())
	f.uc.timeProvider = fixedTime{now: now}
	return f
}

func TestExecute_CreatesPendingReservation(t *testing.T) {
	f := newFixture(time.Date(2026, 10, 15, 8, 0, 0, 0, manila), nil, nil)

	resp, err := f.uc.Execute(context.Background(), &Request{
		UserID:    50,
		CourtID:   1,
		Date:      "2026-10-16",
		From:      "10:00 AM",
		To:        "12:00 PM",
		SubCourts: []int{1, 0},
	})
	require.NoError(t, err)

	res := resp.Reservation
	assert.Equal(t, domain.StatusPending, res.Status)
	assert.Equal(t, domain.PaymentUnpaid, res.PaymentStatus)
	assert.Equal(t, domain.StepInitiated, res.PaymentStep)
	assert.Equal(t, types.TimeString("10:00"), res.TimeSlot.From)
	assert.Equal(t, types.TimeString("12:00"), res.TimeSlot.To)
	assert.Equal(t, []int{0, 1}, res.SubCourts)
	assert.InDelta(t, 800.0, res.TotalAmount, 0.001)
	require.NotNil(t, res.PaymentID)
	assert.Equal(t, "ORDER-1", *res.PaymentID)
	assert.Equal(t, "https://paypal.example/approve?token=ORDER-1", resp.ApprovalURL)

	require.Len(t, f.payments.requests, 1)
	assert.Equal(t, "MERCHANT", f.payments.requests[0].PayeeMerchantID)
	assert.Equal(t, []string{domain.EventReservationCreated}, f.notifier.events)
	assert.Equal(t, []string{outcomeCreated}, f.metrics.outcomes)
}

func TestExecute_ValidationOrder(t *testing.T) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, manila)

	tests := []struct {
		name     string
		req      Request
		settings *domain.CourtBookingSettings
		wantErr  error
	}{
		{
			name:    "missing sub-courts",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "malformed time",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "25:00 PM", To: "11:00 AM", SubCourts: []int{0}},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "yesterday",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-14", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{0}},
			wantErr: ErrPastDate,
		},
		{
			name:    "slot already started",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-15", From: "9:00 AM", To: "11:00 AM", SubCourts: []int{0}},
			wantErr: ErrPastTimeSlot,
		},
		{
			name:    "sub-court index out of bounds",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{2}},
			wantErr: ErrCourtIndexOutOfBounds,
		},
		{
			name:    "duplicate sub-court",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{1, 1}},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "before opening",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "8:00 AM", To: "9:00 AM", SubCourts: []int{0}},
			wantErr: ErrOutsideOperatingHours,
		},
		{
			name:    "reversed range",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "11:00 AM", To: "10:00 AM", SubCourts: []int{0}},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "starts in thirty minutes",
			req:     Request{UserID: 50, CourtID: 1, Date: "2026-10-15", From: "10:30", To: "11:30", SubCourts: []int{0}},
			wantErr: ErrLeadTimeViolation,
		},
		{
			name:     "beyond advance booking window",
			req:      Request{UserID: 50, CourtID: 1, Date: "2026-10-30", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{0}},
			settings: &domain.CourtBookingSettings{SlotIntervalMinutes: 60, LeadTimeMinutes: 60, AdvanceBookingDays: 7},
			wantErr:  ErrDateTooFarInFuture,
		},
		{
			name:    "unknown court",
			req:     Request{UserID: 50, CourtID: 9, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{0}},
			wantErr: ErrCourtNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(now, tt.settings, nil)

			_, err := f.uc.Execute(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.repo.count())
			assert.Empty(t, f.payments.requests)
			assert.Empty(t, f.notifier.events)
		})
	}
}

func TestExecute_SubCourtsAreIndependent(t *testing.T) {
	f := newFixture(time.Date(2026, 10, 15, 8, 0, 0, 0, manila), nil, nil)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{0}})
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, &Request{UserID: 60, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{0}})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.uc.Execute(ctx, &Request{UserID: 60, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{1}})
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, &Request{UserID: 70, CourtID: 1, Date: "2026-10-16", From: "10:30", To: "11:30", SubCourts: []int{1}})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.uc.Execute(ctx, &Request{UserID: 70, CourtID: 1, Date: "2026-10-16", From: "11:00 AM", To: "12:00 PM", SubCourts: []int{0, 1}})
	require.NoError(t, err)

	assert.Equal(t, 3, f.repo.count())
}

func TestExecute_AdjacentOffGridSlotsDoNotConflict(t *testing.T) {
	f := newFixture(time.Date(2026, 10, 15, 8, 0, 0, 0, manila), nil, nil)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "10:00", To: "10:50", SubCourts: []int{0}})
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, &Request{UserID: 60, CourtID: 1, Date: "2026-10-16", From: "10:50", To: "11:50", SubCourts: []int{0}})
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, &Request{UserID: 70, CourtID: 1, Date: "2026-10-16", From: "10:45", To: "10:55", SubCourts: []int{0}})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	assert.Equal(t, 2, f.repo.count())
}

func TestExecute_RaceForLastSubCourt(t *testing.T) {
	f := newFixture(time.Date(2026, 10, 15, 8, 0, 0, 0, manila), nil, nil)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "2:00 PM", To: "3:00 PM", SubCourts: []int{0}})
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := f.uc.Execute(ctx, &Request{UserID: userID, CourtID: 1, Date: "2026-10-16", From: "2:00 PM", To: "3:00 PM", SubCourts: []int{1}})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotUnavailable):
				conflicts++
			}
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 2, f.repo.count())
}

func TestExecute_SerializationFailureIsSlotConflict(t *testing.T) {
	tx := passThroughTx{err: fmt.Errorf("commit: %w", &pq.Error{Code: "40001"})}
	f := newFixture(time.Date(2026, 10, 15, 8, 0, 0, 0, manila), nil, tx)

	_, err := f.uc.Execute(context.Background(), &Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{0}})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Contains(t, f.metrics.outcomes, outcomeConflict)
}

func TestExecute_PaymentFailureDeletesReservation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{
			name:  "provider error",
			setup: func(f *fixture) { f.payments.err = errors.New("timeout") },
		},
		{
			name:  "no payment recipient",
			setup: func(f *fixture) { f.dir.recipientErr = directoryservice.ErrRecipientNotFound },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(time.Date(2026, 10, 15, 8, 0, 0, 0, manila), nil, nil)
			tt.setup(f)

			_, err := f.uc.Execute(context.Background(), &Request{UserID: 50, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{0}})
			assert.ErrorIs(t, err, ErrPaymentProvider)
			assert.Zero(t, f.repo.count())
			assert.Empty(t, f.repo.claims)
			assert.Empty(t, f.notifier.events)

			// слот снова свободен
			f.payments.err = nil
			f.dir.recipientErr = nil
			_, err = f.uc.Execute(context.Background(), &Request{UserID: 60, CourtID: 1, Date: "2026-10-16", From: "10:00 AM", To: "11:00 AM", SubCourts: []int{0}})
			require.NoError(t, err)
		})
	}
}
