package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/usecase/handle_payment"
)

// ReconciliationJobName имя задачи фоновой сверки платежей
const ReconciliationJobName = "payment_reconciliation"

// ErrSweepFailed возвращается, если не удалось получить бронирования для сверки
var ErrSweepFailed = errors.New("worker: reconciliation sweep failed")

// SweepSummary итог одного прохода сверки
type SweepSummary struct {
	Scanned int
	Results map[string]int // результат сверки -> количество
}

// ReconciliationSweeper находит брони с незавершенной оплатой
// и доводит их до конечного состояния: оплаченные подтверждаются,
// брошенные удаляются, прерванные после списания дожимаются.
type ReconciliationSweeper struct {
	repo         ReservationRepository
	reconciler   Reconciler
	staleAfter   time.Duration
	batchSize    int
	runTimeout   time.Duration
	timeProvider TimeProvider
	logger       Logger
}

// NewReconciliationSweeper создает новый экземпляр задачи сверки
func NewReconciliationSweeper(
	repo ReservationRepository,
	reconciler Reconciler,
	staleAfter time.Duration,
	batchSize int,
	runTimeout time.Duration,
	logger Logger,
) *ReconciliationSweeper {
	return &ReconciliationSweeper{
		repo:         repo,
		reconciler:   reconciler,
		staleAfter:   staleAfter,
		batchSize:    batchSize,
		runTimeout:   runTimeout,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Register регистрирует задачу в планировщике
func (w *ReconciliationSweeper) Register(s *Scheduler, cronExpr string) error {
	_, err := s.AddJob(ReconciliationJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.runTimeout)
		defer cancel()

		if _, err := w.Sweep(ctx); err != nil {
			w.logger.Error("ReconciliationSweeper: %v", err)
		}
	})
	return err
}

// Sweep выполняет один проход сверки.
// Ошибка одной брони не прерывает проход, она будет повторена в следующий раз.
func (w *ReconciliationSweeper) Sweep(ctx context.Context) (*SweepSummary, error) {
	staleBefore := w.timeProvider.Now().Add(-w.staleAfter)

	reservations, err := w.repo.ListForReconciliation(ctx, staleBefore, w.batchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: Sweep - list reservations: %v", ErrSweepFailed, err)
	}

	summary := &SweepSummary{
		Scanned: len(reservations),
		Results: make(map[string]int),
	}
	if len(reservations) == 0 {
		return summary, nil
	}

	w.logger.Info("ReconciliationSweeper: %d reservations to reconcile (stale before %s)",
		len(reservations), staleBefore.Format(time.RFC3339))

	for _, res := range reservations {
		if ctx.Err() != nil {
			w.logger.Warn("ReconciliationSweeper: sweep interrupted: %v", ctx.Err())
			break
		}

		resp, err := w.reconciler.Reconcile(ctx, res)
		switch {
		case err == nil:
			summary.Results[resp.Result]++
		case errors.Is(err, handle_payment.ErrReconciliationPending):
			w.logger.Warn("ReconciliationSweeper: reservation id=%d still pending: %v", res.ID, err)
			summary.Results[handle_payment.ResultPending]++
		default:
			w.logger.Error("ReconciliationSweeper: reservation id=%d failed: %v", res.ID, err)
			summary.Results[handle_payment.ResultFailed]++
		}
	}

	w.logger.Info("ReconciliationSweeper: done, scanned=%d results=%v", summary.Scanned, summary.Results)
	return summary, nil
}
