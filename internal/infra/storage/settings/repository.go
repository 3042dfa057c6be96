package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-CourtReservationService/pkg/psqlbuilder"
)

var settingsColumns = []string{
	"id",
	"court_id",
	"slot_interval_minutes",
	"lead_time_minutes",
	"advance_booking_days",
	"created_at",
	"updated_at",
}

// Repository репозиторий настроек бронирования кортов
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория настроек
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByCourt получает настройки конкретного корта (courtID == nil - глобальные)
func (r *Repository) GetByCourt(ctx context.Context, courtID *int64) (*domain.CourtBookingSettings, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(settingsColumns...).From("court_booking_settings")
	if courtID == nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"court_id": nil})
	} else {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"court_id": *courtID})
	}

	query, args, err := selectBuilder.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByCourt - build select query: %v", ErrBuildQuery, err)
	}

	var (
		s                    domain.CourtBookingSettings
		createdAt, updatedAt sql.NullTime
	)
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&s.ID,
		&s.CourtID,
		&s.SlotIntervalMinutes,
		&s.LeadTimeMinutes,
		&s.AdvanceBookingDays,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByCourt - scan settings: %v", ErrScanRow, err)
	}

	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time

	return &s, nil
}

// GetWithHierarchy получает настройки с учетом приоритета:
// 1. Настройки корта
// 2. Глобальные настройки
//
// Если нет ни тех, ни других, возвращает ErrSettingsNotFound
func (r *Repository) GetWithHierarchy(ctx context.Context, courtID int64) (*domain.CourtBookingSettings, error) {
	s, err := r.GetByCourt(ctx, &courtID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSettingsNotFound) {
		return nil, fmt.Errorf("%w: GetWithHierarchy - court level: %v", ErrExecQuery, err)
	}

	s, err = r.GetByCourt(ctx, nil)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSettingsNotFound) {
		return nil, fmt.Errorf("%w: GetWithHierarchy - global level: %v", ErrExecQuery, err)
	}

	return nil, ErrSettingsNotFound
}

// Upsert создает или обновляет настройки конкретного корта
func (r *Repository) Upsert(ctx context.Context, s *domain.CourtBookingSettings) (*domain.CourtBookingSettings, error) {
	if s.CourtID == nil {
		return nil, fmt.Errorf("%w: Upsert - court id is required", ErrBuildQuery)
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("court_booking_settings").
		Columns("court_id", "slot_interval_minutes", "lead_time_minutes", "advance_booking_days").
		Values(*s.CourtID, s.SlotIntervalMinutes, s.LeadTimeMinutes, s.AdvanceBookingDays).
		Suffix(`ON CONFLICT (court_id) WHERE court_id IS NOT NULL DO UPDATE SET
			slot_interval_minutes = EXCLUDED.slot_interval_minutes,
			lead_time_minutes = EXCLUDED.lead_time_minutes,
			advance_booking_days = EXCLUDED.advance_booking_days,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&s.ID, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %v", ErrExecQuery, err)
	}

	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time

	return s, nil
}
