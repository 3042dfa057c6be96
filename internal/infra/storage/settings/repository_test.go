package settings

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CourtReservationService/internal/domain"
	"github.com/m04kA/SMC-CourtReservationService/pkg/ptr"
)

func newRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestGetWithHierarchy_CourtLevel(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM court_booking_settings WHERE court_id = \$1 LIMIT 1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(settingsColumns).AddRow(int64(2), int64(7), 30, 120, 14, now, now))

	s, err := repo.GetWithHierarchy(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 30, s.SlotIntervalMinutes)
	assert.False(t, s.IsGlobal())
	assert.Equal(t, 2*time.Hour, s.LeadTime())
}

func TestGetWithHierarchy_FallsBackToGlobal(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE court_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(settingsColumns))
	mock.ExpectQuery(`WHERE court_id IS NULL`).
		WillReturnRows(sqlmock.NewRows(settingsColumns).AddRow(int64(1), nil, 60, 60, 0, now, now))

	s, err := repo.GetWithHierarchy(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, s.IsGlobal())
	assert.False(t, s.HasAdvanceBookingLimit())
}

func TestGetWithHierarchy_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`WHERE court_id = \$1`).WillReturnRows(sqlmock.NewRows(settingsColumns))
	mock.ExpectQuery(`WHERE court_id IS NULL`).WillReturnRows(sqlmock.NewRows(settingsColumns))

	_, err := repo.GetWithHierarchy(context.Background(), 7)
	assert.ErrorIs(t, err, ErrSettingsNotFound)
}

func TestUpsert(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO court_booking_settings .* ON CONFLICT \(court_id\)`).
		WithArgs(int64(7), 30, 90, 30).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(3), now, now))

	s, err := repo.Upsert(context.Background(), &domain.CourtBookingSettings{
		CourtID:             ptr.Ptr(int64(7)),
		SlotIntervalMinutes: 30,
		LeadTimeMinutes:     90,
		AdvanceBookingDays:  30,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.ID)

	_, err = repo.Upsert(context.Background(), &domain.CourtBookingSettings{})
	assert.ErrorIs(t, err, ErrBuildQuery)
}
