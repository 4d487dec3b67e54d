package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewplan/crew-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func assignmentRowColumns() []string {
	return []string{"id", "shift_id", "staff_id", "status", "kind", "created_at", "assigned_at", "confirmed_at", "cancelled_at"}
}

func TestAssignmentRepositoryFindByShiftAndStaff(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows(assignmentRowColumns()).
		AddRow("a1", "sh1", "st1", "ASSIGNED", "FINAL", time.Now(), time.Now(), nil, nil)
	mock.ExpectQuery("SELECT .* FROM assignments a WHERE a.shift_id = \\$1 AND a.staff_id = \\$2").
		WithArgs("sh1", "st1").
		WillReturnRows(rows)

	assignment, err := repo.FindByShiftAndStaff(context.Background(), db, "sh1", "st1")
	require.NoError(t, err)
	assert.Equal(t, "a1", assignment.ID)
	assert.Equal(t, models.AssignmentStatusAssigned, assignment.Status)
	assert.Equal(t, models.AssignmentKindFinal, assignment.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindByShiftAndStaffMissing(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("SELECT .* FROM assignments a WHERE a.shift_id = \\$1 AND a.staff_id = \\$2").
		WithArgs("sh1", "st1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByShiftAndStaff(context.Background(), db, "sh1", "st1")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAssignmentRepositoryCountByShift(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM assignments WHERE shift_id = \\$1 AND status = ANY\\(\\$2\\)").
		WithArgs("sh1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByShift(context.Background(), db, "sh1", []models.AssignmentStatus{
		models.AssignmentStatusAssigned, models.AssignmentStatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCountByShiftNilExecutor(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM assignments WHERE shift_id = \\$1 AND status = ANY\\(\\$2\\)").
		WithArgs("sh1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountByShift(context.Background(), nil, "sh1", []models.AssignmentStatus{
		models.AssignmentStatusAssigned,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignments").
		WithArgs(sqlmock.AnyArg(), "sh1", "st1", "INTERESTED", "", sqlmock.AnyArg(), nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.Assignment{ShiftID: "sh1", StaffID: "st1", Status: models.AssignmentStatusInterested}
	require.NoError(t, repo.Create(context.Background(), db, assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.False(t, assignment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdateState(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	cancelled := time.Now().UTC()
	mock.ExpectExec("UPDATE assignments SET status = \\$2").
		WithArgs("a1", "CANCELLED", "FINAL", sqlmock.AnyArg(), nil, cancelled).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assigned := cancelled.Add(-time.Hour)
	assignment := &models.Assignment{
		ID: "a1", ShiftID: "sh1", StaffID: "st1",
		Status: models.AssignmentStatusCancelled, Kind: models.AssignmentKindFinal,
		AssignedAt: &assigned, CancelledAt: &cancelled,
	}
	require.NoError(t, repo.UpdateState(context.Background(), db, assignment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdateStateMissing(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("UPDATE assignments SET status = \\$2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateState(context.Background(), db, &models.Assignment{ID: "missing"})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAssignmentRepositoryOccupancyByShifts(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"shift_id", "current"}).
		AddRow("sh1", 2).
		AddRow("sh2", 1)
	mock.ExpectQuery("SELECT shift_id, COUNT\\(\\*\\) AS current").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	occupancy, err := repo.OccupancyByShifts(context.Background(), []string{"sh1", "sh2", "sh3"}, []models.AssignmentStatus{
		models.AssignmentStatusAssigned, models.AssignmentStatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, occupancy["sh1"])
	assert.Equal(t, 1, occupancy["sh2"])
	_, ok := occupancy["sh3"]
	assert.False(t, ok)
}

func TestAssignmentRepositoryOccupancyByShiftsEmpty(t *testing.T) {
	db, _, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	occupancy, err := repo.OccupancyByShifts(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, occupancy)
}
