package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-CourtReservationService/pkg/psqlbuilder"
)

var reservationColumns = []string{
	"id",
	"court_id",
	"user_id",
	"reservation_date",
	"time_from",
	"time_to",
	"sub_courts",
	"total_amount",
	"status",
	"payment_status",
	"payment_id",
	"transaction_id",
	"payer_email",
	"payer_id",
	"payout_batch_id",
	"payment_step",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий бронирований
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет бронирование и занимает ячейки слотов по каждому подкорту.
// Должен вызываться внутри транзакции: при конфликте ячейки возвращается ErrSlotTaken,
// и вставленная строка бронирования откатывается вместе с транзакцией.
func (r *Repository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if res.PaymentStep == "" {
		res.PaymentStep = domain.StepNone
	}

	query, args, err := psqlbuilder.Insert("reservations").
		Columns(
			"court_id",
			"user_id",
			"reservation_date",
			"time_from",
			"time_to",
			"sub_courts",
			"total_amount",
			"status",
			"payment_status",
			"payment_step",
		).
		Values(
			res.CourtID,
			res.UserID,
			res.Date.Format(domain.DateFormat),
			res.TimeSlot.From,
			res.TimeSlot.To,
			toInt64Array(res.SubCourts),
			res.TotalAmount,
			res.Status,
			res.PaymentStatus,
			res.PaymentStep,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&res.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}
	res.CreatedAt = createdAt.Time
	res.UpdatedAt = updatedAt.Time

	if err := r.claimSlots(ctx, executor, res); err != nil {
		return nil, err
	}

	return res, nil
}

// claimSlots вставляет по строке на каждый подкорт с интервалом [начало, конец).
// Пересечение с активной бронью отсекает ограничение исключения reservation_slots_no_overlap.
func (r *Repository) claimSlots(ctx context.Context, executor DBExecutor, res *domain.Reservation) error {
	if !res.TimeSlot.From.IsBefore(res.TimeSlot.To) {
		return fmt.Errorf("%w: claimSlots - invalid slot %s-%s", ErrBuildQuery, res.TimeSlot.From, res.TimeSlot.To)
	}

	insert := psqlbuilder.Insert("reservation_slots").
		Columns("reservation_id", "court_id", "sub_court_index", "period")

	date := res.Date.Format(domain.DateFormat)
	for _, idx := range res.SubCourts {
		insert = insert.Values(res.ID, res.CourtID, idx, ClaimPeriod(date, res.TimeSlot))
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("%w: claimSlots - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch string(pqErr.Code) {
			case pgExclusionViolation, pgUniqueViolation:
				return fmt.Errorf("%w: reservation court=%d date=%s %s", ErrSlotTaken, res.CourtID, date, res.TimeSlot.Label())
			}
		}
		return fmt.Errorf("%w: claimSlots - execute insert: %w", ErrExecQuery, err)
	}

	return nil
}

// ClaimPeriod полуоткрытый tsrange слота на дату
func ClaimPeriod(date string, slot domain.TimeSlot) squirrel.Sqlizer {
	return squirrel.Expr("tsrange(?::timestamp, ?::timestamp, '[)')",
		date+" "+slot.From.String(),
		date+" "+slot.To.String(),
	)
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id})
}

// GetByPaymentID получает бронирование по идентификатору платежа (token провайдера)
func (r *Repository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Reservation, error) {
	return r.getOne(ctx, "GetByPaymentID", squirrel.Eq{"payment_id": paymentID})
}

func (r *Repository) getOne(ctx context.Context, method string, where squirrel.Sqlizer) (*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(reservationColumns...).
		From("reservations").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, method, err)
	}

	res, err := scanReservation(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan reservation: %v", ErrScanRow, method, err)
	}

	return res, nil
}

// List получает бронирования по фильтру.
// Внутри транзакции для одного корта на одну дату строки блокируются (FOR UPDATE).
func (r *Repository) List(ctx context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(reservationColumns...).From("reservations")

	if filter.CourtID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"court_id": *filter.CourtID})
	}
	if filter.UserID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"user_id": *filter.UserID})
	}
	if filter.StartDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"reservation_date": filter.StartDate.Format(domain.DateFormat)})
	}
	if filter.EndDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"reservation_date": filter.EndDate.Format(domain.DateFormat)})
	}

	if len(filter.Statuses) > 0 {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": statusStrings(filter.Statuses)})
	}
	if filter.OnlyActive {
		selectBuilder = selectBuilder.Where(squirrel.And{
			squirrel.Eq{"status": statusStrings(domain.ActiveStatuses)},
			squirrel.Eq{"payment_status": paymentStatusStrings(domain.ActivePaymentStatuses)},
		})
	}

	selectBuilder = selectBuilder.OrderBy("reservation_date ASC", "time_from ASC", "id ASC")

	singleDay := filter.StartDate != nil && filter.EndDate != nil && domain.IsSameDay(*filter.StartDate, *filter.EndDate)
	if dbmetrics.IsInTransaction(ctx) && filter.CourtID != nil && singleDay {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// ListForReconciliation бронирования, чья сверка прервана после списания,
// и pending-бронирования с инициированным платежом старше staleBefore
func (r *Repository) ListForReconciliation(ctx context.Context, staleBefore time.Time, limit int) ([]*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(reservationColumns...).
		From("reservations").
		Where(squirrel.Or{
			squirrel.Eq{"payment_step": []string{string(domain.StepCaptured), string(domain.StepPaidOut)}},
			squirrel.And{
				squirrel.Eq{"payment_step": string(domain.StepInitiated)},
				squirrel.Eq{"status": string(domain.StatusPending)},
				squirrel.Lt{"updated_at": staleBefore},
			},
		}).
		OrderBy("updated_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListForReconciliation - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListForReconciliation - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// SetPaymentInitiated сохраняет идентификатор созданного платежа
func (r *Repository) SetPaymentInitiated(ctx context.Context, id int64, paymentID string) error {
	return r.updateWhere(ctx, "SetPaymentInitiated", id,
		squirrel.Eq{"status": string(domain.StatusPending), "payment_step": string(domain.StepNone)},
		map[string]interface{}{
			"payment_id":   paymentID,
			"payment_step": domain.StepInitiated,
		})
}

// MarkCaptured фиксирует списание платежа (шаг саги captured)
func (r *Repository) MarkCaptured(ctx context.Context, id int64, capture domain.PaymentCapture) error {
	return r.updateWhere(ctx, "MarkCaptured", id,
		squirrel.Eq{"payment_step": string(domain.StepInitiated)},
		map[string]interface{}{
			"transaction_id": capture.TransactionID,
			"payer_email":    capture.PayerEmail,
			"payer_id":       capture.PayerID,
			"payment_step":   domain.StepCaptured,
		})
}

// MarkPaidOut фиксирует выплату владельцу корта (шаг саги paid_out).
// Для отмененной после списания брони выплата тоже фиксируется.
func (r *Repository) MarkPaidOut(ctx context.Context, id int64, batchID string) error {
	return r.updateWhere(ctx, "MarkPaidOut", id,
		squirrel.Eq{"payment_step": string(domain.StepCaptured)},
		map[string]interface{}{
			"payout_batch_id": batchID,
			"payment_step":    domain.StepPaidOut,
		})
}

// Confirm завершает сагу: confirmed/paid
func (r *Repository) Confirm(ctx context.Context, id int64) error {
	return r.updateWhere(ctx, "Confirm", id,
		squirrel.Eq{"status": string(domain.StatusPending), "payment_step": string(domain.StepPaidOut)},
		map[string]interface{}{
			"status":         domain.StatusConfirmed,
			"payment_status": domain.PaymentPaid,
			"payment_step":   domain.StepCompleted,
		})
}

// Settle закрывает сагу отмененной брони, деньги по которой списаны и выплачены.
// Статус остается cancelled.
func (r *Repository) Settle(ctx context.Context, id int64) error {
	return r.updateWhere(ctx, "Settle", id,
		squirrel.Eq{"status": string(domain.StatusCancelled), "payment_step": string(domain.StepPaidOut)},
		map[string]interface{}{
			"payment_status": domain.PaymentPaid,
			"payment_step":   domain.StepCompleted,
		})
}

// Cancel переводит бронирование в cancelled, если статус и шаг оплаты не изменились
// с момента чтения, и освобождает занятые слоты
func (r *Repository) Cancel(ctx context.Context, id int64, expected domain.ReservationStatus, expectedStep domain.PaymentStep) error {
	err := r.updateWhere(ctx, "Cancel", id,
		squirrel.Eq{"status": string(expected), "payment_step": string(expectedStep)},
		map[string]interface{}{
			"status":       domain.StatusCancelled,
			"cancelled_at": squirrel.Expr("NOW()"),
		})
	if err != nil {
		return err
	}

	return r.releaseSlots(ctx, id)
}

func (r *Repository) releaseSlots(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("reservation_slots").
		Where(squirrel.Eq{"reservation_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: releaseSlots - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: releaseSlots - execute delete: %w", ErrExecQuery, err)
	}
	return nil
}

// DeletePending физически удаляет бронирование, ожидающее оплаты (pending/unpaid).
// Возвращает false, если строки уже нет или она перешла в другое состояние.
// Ячейки слотов удаляются каскадно.
func (r *Repository) DeletePending(ctx context.Context, id int64) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("reservations").
		Where(squirrel.Eq{
			"id":             id,
			"status":         string(domain.StatusPending),
			"payment_status": string(domain.PaymentUnpaid),
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: DeletePending - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: DeletePending - execute delete: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: DeletePending - get rows affected: %w", ErrExecQuery, err)
	}

	return rowsAffected > 0, nil
}

// updateWhere условное обновление: 0 затронутых строк = ErrStateConflict
func (r *Repository) updateWhere(
	ctx context.Context,
	method string,
	id int64,
	cond squirrel.Eq,
	set map[string]interface{},
) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("reservations").
		SetMap(set).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(cond).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s - build update query: %v", ErrBuildQuery, method, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %w", ErrExecQuery, method, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %w", ErrExecQuery, method, err)
	}

	if rowsAffected == 0 {
		return ErrStateConflict
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var (
		res                  domain.Reservation
		subCourts            pq.Int64Array
		createdAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&res.ID,
		&res.CourtID,
		&res.UserID,
		&res.Date,
		&res.TimeSlot.From,
		&res.TimeSlot.To,
		&subCourts,
		&res.TotalAmount,
		&res.Status,
		&res.PaymentStatus,
		&res.PaymentID,
		&res.TransactionID,
		&res.PayerEmail,
		&res.PayerID,
		&res.PayoutBatchID,
		&res.PaymentStep,
		&res.CancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	res.SubCourts = fromInt64Array(subCourts)
	res.CreatedAt = createdAt.Time
	res.UpdatedAt = updatedAt.Time

	return &res, nil
}

func scanReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	reservations := make([]*domain.Reservation, 0)

	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanReservations - scan row: %v", ErrScanRow, err)
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanReservations - rows error: %v", ErrScanRow, err)
	}

	return reservations, nil
}

func toInt64Array(values []int) pq.Int64Array {
	out := make(pq.Int64Array, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func fromInt64Array(values pq.Int64Array) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}

func statusStrings(statuses []domain.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func paymentStatusStrings(statuses []domain.PaymentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
