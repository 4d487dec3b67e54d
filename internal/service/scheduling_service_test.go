package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/internal/scheduling"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
)

type stubStaffRepo struct {
	members        map[string]*models.Staff
	qualifications map[string][]string
}

func (r *stubStaffRepo) FindByID(_ context.Context, id string) (*models.Staff, error) {
	staff, ok := r.members[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *staff
	return &copied, nil
}

func (r *stubStaffRepo) ListQualificationIDs(_ context.Context, staffID string) ([]string, error) {
	return r.qualifications[staffID], nil
}

func (r *stubStaffRepo) LockByID(_ context.Context, _ sqlx.ExtContext, id string) error {
	if _, ok := r.members[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

type stubShiftRepo struct {
	shifts map[string]models.ShiftDetail
}

func (r *stubShiftRepo) FindDetailByID(_ context.Context, id string) (*models.ShiftDetail, error) {
	shift, ok := r.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &shift, nil
}

func (r *stubShiftRepo) ListUpcomingPublished(_ context.Context, from time.Time) ([]models.ShiftDetail, error) {
	listed := make([]models.ShiftDetail, 0, len(r.shifts))
	for _, shift := range r.shifts {
		if shift.EventStatus == models.EventStatusPublished && shift.StartsAt.After(from) {
			listed = append(listed, shift)
		}
	}
	return listed, nil
}

func (r *stubShiftRepo) LockByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Shift, error) {
	shift, ok := r.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := shift.Shift
	return &copied, nil
}

type stubEventRepo struct {
	events map[string]*models.Event
}

func (r *stubEventRepo) FindByID(_ context.Context, id string) (*models.Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *event
	return &copied, nil
}

type stubInvitationRepo struct {
	invitations []models.Invitation
}

func (r *stubInvitationRepo) FindByEventAndStaff(_ context.Context, eventID, staffID string) (*models.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.EventID == eventID && inv.StaffID == staffID {
			copied := inv
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *stubInvitationRepo) ListByStaff(_ context.Context, staffID string) ([]models.InvitationDetail, error) {
	var listed []models.InvitationDetail
	for _, inv := range r.invitations {
		if inv.StaffID == staffID {
			listed = append(listed, models.InvitationDetail{Invitation: inv})
		}
	}
	return listed, nil
}

type stubAssignmentRepo struct {
	db     *sqlx.DB
	shifts *stubShiftRepo
	rows   map[string]*models.Assignment
	seq    int
}

func assignmentKey(shiftID, staffID string) string {
	return shiftID + "|" + staffID
}

func (r *stubAssignmentRepo) Begin(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

func (r *stubAssignmentRepo) FindByID(_ context.Context, id string) (*models.Assignment, error) {
	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *stubAssignmentRepo) FindByShiftAndStaff(_ context.Context, _ sqlx.ExtContext, shiftID, staffID string) (*models.Assignment, error) {
	row, ok := r.rows[assignmentKey(shiftID, staffID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func statusIn(status models.AssignmentStatus, statuses []models.AssignmentStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (r *stubAssignmentRepo) detail(row models.Assignment) models.AssignmentDetail {
	shift := r.shifts.shifts[row.ShiftID]
	return models.AssignmentDetail{
		Assignment: row,
		ShiftName:  shift.Name,
		ShiftStart: shift.StartsAt,
		ShiftEnd:   shift.EndsAt,
		EventID:    shift.EventID,
		EventName:  shift.EventName,
	}
}

func (r *stubAssignmentRepo) ListCommitments(_ context.Context, _ sqlx.ExtContext, staffID string, statuses []models.AssignmentStatus) ([]models.AssignmentDetail, error) {
	var listed []models.AssignmentDetail
	for _, row := range r.rows {
		if row.StaffID == staffID && statusIn(row.Status, statuses) {
			listed = append(listed, r.detail(*row))
		}
	}
	return listed, nil
}

func (r *stubAssignmentRepo) CountByShift(_ context.Context, _ sqlx.ExtContext, shiftID string, statuses []models.AssignmentStatus) (int, error) {
	count := 0
	for _, row := range r.rows {
		if row.ShiftID == shiftID && statusIn(row.Status, statuses) {
			count++
		}
	}
	return count, nil
}

func (r *stubAssignmentRepo) OccupancyByShifts(ctx context.Context, shiftIDs []string, statuses []models.AssignmentStatus) (map[string]int, error) {
	occupancy := make(map[string]int, len(shiftIDs))
	for _, shiftID := range shiftIDs {
		count, _ := r.CountByShift(ctx, nil, shiftID, statuses)
		occupancy[shiftID] = count
	}
	return occupancy, nil
}

func (r *stubAssignmentRepo) ListByShift(_ context.Context, shiftID string) ([]models.AssignmentDetail, error) {
	var listed []models.AssignmentDetail
	for _, row := range r.rows {
		if row.ShiftID == shiftID {
			listed = append(listed, r.detail(*row))
		}
	}
	return listed, nil
}

func (r *stubAssignmentRepo) Create(_ context.Context, _ sqlx.ExtContext, assignment *models.Assignment) error {
	r.seq++
	assignment.ID = fmt.Sprintf("assignment-%d", r.seq)
	copied := *assignment
	r.rows[assignmentKey(assignment.ShiftID, assignment.StaffID)] = &copied
	return nil
}

func (r *stubAssignmentRepo) UpdateState(_ context.Context, _ sqlx.ExtContext, assignment *models.Assignment) error {
	key := assignmentKey(assignment.ShiftID, assignment.StaffID)
	if _, ok := r.rows[key]; !ok {
		return sql.ErrNoRows
	}
	copied := *assignment
	r.rows[key] = &copied
	return nil
}

type stubNotifier struct {
	recorded []models.NotificationKind
	enqueued int
}

func (n *stubNotifier) Record(_ context.Context, _ sqlx.ExtContext, kind models.NotificationKind, assignment *models.Assignment) (*models.Notification, error) {
	n.recorded = append(n.recorded, kind)
	return &models.Notification{
		ID:           fmt.Sprintf("notification-%d", len(n.recorded)),
		Kind:         kind,
		AssignmentID: assignment.ID,
		StaffID:      assignment.StaffID,
		ShiftID:      assignment.ShiftID,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (n *stubNotifier) EnqueueDispatch(_ *models.Notification) {
	n.enqueued++
}

type engineFixture struct {
	service     *SchedulingService
	staff       *stubStaffRepo
	shifts      *stubShiftRepo
	events      *stubEventRepo
	invitations *stubInvitationRepo
	assignments *stubAssignmentRepo
	notifier    *stubNotifier
	base        time.Time
}

func newTxProvider(t *testing.T) *sqlx.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 64; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock")
}

func newEngineFixture(t *testing.T, policy SchedulingPolicy) *engineFixture {
	t.Helper()
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	staff := &stubStaffRepo{
		members: map[string]*models.Staff{
			"staff-1": {ID: "staff-1", FirstName: "Mara", LastName: "Ilves", PersonalCode: "EMP-001", Active: true},
			"staff-2": {ID: "staff-2", FirstName: "Jon", LastName: "Tamm", PersonalCode: "EMP-002", Active: true},
			"staff-3": {ID: "staff-3", FirstName: "Liis", LastName: "Kask", PersonalCode: "EMP-003", Active: true},
			"staff-9": {ID: "staff-9", FirstName: "Old", LastName: "Account", PersonalCode: "EMP-009", Active: false},
		},
		qualifications: map[string][]string{
			"staff-1": {"qual-forklift", "qual-first-aid"},
			"staff-2": {"qual-first-aid"},
		},
	}

	events := &stubEventRepo{events: map[string]*models.Event{
		"event-1": {ID: "event-1", Name: "Harbor Festival", Status: models.EventStatusPublished},
		"event-2": {ID: "event-2", Name: "Warehouse Move", Status: models.EventStatusDraft},
	}}

	shifts := &stubShiftRepo{shifts: map[string]models.ShiftDetail{
		"shift-1": {
			Shift: models.Shift{
				ID: "shift-1", EventID: "event-1", Name: "Gate A",
				StartsAt: base, EndsAt: base.Add(4 * time.Hour),
				RequiredHeadcount: 2, RequiredQualCodes: []string{"qual-forklift"},
			},
			EventName: "Harbor Festival", EventStatus: models.EventStatusPublished,
		},
		"shift-2": {
			Shift: models.Shift{
				ID: "shift-2", EventID: "event-1", Name: "Gate B",
				StartsAt: base.Add(2 * time.Hour), EndsAt: base.Add(6 * time.Hour),
				RequiredHeadcount: 1,
			},
			EventName: "Harbor Festival", EventStatus: models.EventStatusPublished,
		},
		"shift-3": {
			Shift: models.Shift{
				ID: "shift-3", EventID: "event-1", Name: "Cleanup",
				StartsAt: base.Add(6 * time.Hour), EndsAt: base.Add(8 * time.Hour),
				RequiredHeadcount: 3,
			},
			EventName: "Harbor Festival", EventStatus: models.EventStatusPublished,
		},
	}}

	invitations := &stubInvitationRepo{invitations: []models.Invitation{
		{ID: "inv-1", EventID: "event-1", StaffID: "staff-1", Status: models.InvitationStatusAccepted},
		{ID: "inv-2", EventID: "event-1", StaffID: "staff-2", Status: models.InvitationStatusAccepted},
	}}

	assignments := &stubAssignmentRepo{
		db:     newTxProvider(t),
		shifts: shifts,
		rows:   map[string]*models.Assignment{},
	}
	notifier := &stubNotifier{}

	cache := NewCacheService(nil, nil, 0, zap.NewNop(), false)
	svc := NewSchedulingService(staff, shifts, events, invitations, assignments, notifier, cache, nil, policy, nil, zap.NewNop())

	return &engineFixture{
		service:     svc,
		staff:       staff,
		shifts:      shifts,
		events:      events,
		invitations: invitations,
		assignments: assignments,
		notifier:    notifier,
		base:        base,
	}
}

func (f *engineFixture) seedAssignment(shiftID, staffID string, status models.AssignmentStatus, kind models.AssignmentKind) *models.Assignment {
	f.assignments.seq++
	row := &models.Assignment{
		ID:        fmt.Sprintf("assignment-%d", f.assignments.seq),
		ShiftID:   shiftID,
		StaffID:   staffID,
		Status:    status,
		Kind:      kind,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	f.assignments.rows[assignmentKey(shiftID, staffID)] = row
	return row
}

func requireEngineError(t *testing.T, err error, code string) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, code, appErr.Code)
	return appErr
}

func TestApplyForShift(t *testing.T) {
	ctx := context.Background()

	t.Run("registers interest", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		assignment, err := f.service.ApplyForShift(ctx, "staff-1", "shift-1")
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusInterested, assignment.Status)
		assert.Empty(t, string(assignment.Kind))
		assert.Nil(t, assignment.AssignedAt)
		require.Len(t, f.notifier.recorded, 1)
		assert.Equal(t, models.NotificationAssignmentCreated, f.notifier.recorded[0])
		assert.Equal(t, 1, f.notifier.enqueued)
	})

	t.Run("rejects without accepted invitation", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		_, err := f.service.ApplyForShift(ctx, "staff-3", "shift-1")
		requireEngineError(t, err, appErrors.ErrNotInvited.Code)
	})

	t.Run("rejects declined invitation", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.invitations.invitations = append(f.invitations.invitations,
			models.Invitation{ID: "inv-3", EventID: "event-1", StaffID: "staff-3", Status: models.InvitationStatusDeclined})
		_, err := f.service.ApplyForShift(ctx, "staff-3", "shift-1")
		requireEngineError(t, err, appErrors.ErrNotInvited.Code)
	})

	t.Run("rejects overlapping commitment", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-2", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		_, err := f.service.ApplyForShift(ctx, "staff-1", "shift-1")
		appErr := requireEngineError(t, err, appErrors.ErrShiftConflict.Code)
		conflicts, ok := appErr.Details.([]scheduling.Conflict)
		require.True(t, ok)
		require.Len(t, conflicts, 1)
		assert.Equal(t, "shift-2", conflicts[0].ShiftID)
	})

	t.Run("allows back to back shifts", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-2", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		_, err := f.service.ApplyForShift(ctx, "staff-1", "shift-3")
		require.NoError(t, err)
	})

	t.Run("rejects full shift", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-2", "staff-2", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		f.invitations.invitations = append(f.invitations.invitations,
			models.Invitation{ID: "inv-3", EventID: "event-1", StaffID: "staff-3", Status: models.InvitationStatusAccepted})
		_, err := f.service.ApplyForShift(ctx, "staff-3", "shift-2")
		requireEngineError(t, err, appErrors.ErrShiftFull.Code)
	})

	t.Run("cancelled rows do not consume capacity", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-2", "staff-2", models.AssignmentStatusCancelled, "")
		_, err := f.service.ApplyForShift(ctx, "staff-1", "shift-2")
		require.NoError(t, err)
	})

	t.Run("rejects started shift", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		shift := f.shifts.shifts["shift-1"]
		shift.StartsAt = time.Now().UTC().Add(-time.Hour)
		f.shifts.shifts["shift-1"] = shift
		_, err := f.service.ApplyForShift(ctx, "staff-1", "shift-1")
		requireEngineError(t, err, appErrors.ErrShiftClosed.Code)
	})

	t.Run("rejects unpublished event", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.events.events["event-1"].Status = models.EventStatusDraft
		_, err := f.service.ApplyForShift(ctx, "staff-1", "shift-1")
		requireEngineError(t, err, appErrors.ErrShiftClosed.Code)
	})

	t.Run("rejects inactive staff", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		_, err := f.service.ApplyForShift(ctx, "staff-9", "shift-1")
		requireEngineError(t, err, appErrors.ErrInactiveAccount.Code)
	})

	t.Run("partial qualification passes by default", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		_, err := f.service.ApplyForShift(ctx, "staff-2", "shift-1")
		require.NoError(t, err)
	})

	t.Run("partial qualification rejected under strict policy", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{RequireQualification: true})
		_, err := f.service.ApplyForShift(ctx, "staff-2", "shift-1")
		requireEngineError(t, err, appErrors.ErrNotQualified.Code)
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		_, err := f.service.ApplyForShift(ctx, "staff-1", "shift-1")
		requireEngineError(t, err, appErrors.ErrInvalidTransition.Code)
	})

	t.Run("re-apply after cancellation clears timestamps", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		cancelled := time.Now().UTC().Add(-time.Minute)
		row := f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusCancelled, "")
		row.CancelledAt = &cancelled
		originalCreated := row.CreatedAt

		assignment, err := f.service.ApplyForShift(ctx, "staff-1", "shift-1")
		require.NoError(t, err)
		assert.Equal(t, row.ID, assignment.ID)
		assert.Equal(t, models.AssignmentStatusInterested, assignment.Status)
		assert.Equal(t, originalCreated, assignment.CreatedAt)
		assert.Nil(t, assignment.CancelledAt)
		assert.Nil(t, assignment.AssignedAt)
		assert.Nil(t, assignment.ConfirmedAt)
	})
}

func TestAssignStaff(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns without invitation", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		assignment, err := f.service.AssignStaff(ctx, "shift-1", AssignStaffRequest{StaffID: "staff-3", Kind: models.AssignmentKindPreliminary})
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusAssigned, assignment.Status)
		assert.Equal(t, models.AssignmentKindPreliminary, assignment.Kind)
		require.NotNil(t, assignment.AssignedAt)
	})

	t.Run("promotes interested registration", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusInterested, "")
		assignment, err := f.service.AssignStaff(ctx, "shift-1", AssignStaffRequest{StaffID: "staff-1", Kind: models.AssignmentKindFinal})
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusAssigned, assignment.Status)
		assert.Equal(t, models.AssignmentKindFinal, assignment.Kind)
	})

	t.Run("own interested row does not block counted capacity", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{CountInterested: true})
		f.seedAssignment("shift-2", "staff-1", models.AssignmentStatusInterested, "")
		assignment, err := f.service.AssignStaff(ctx, "shift-2", AssignStaffRequest{StaffID: "staff-1", Kind: models.AssignmentKindFinal})
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusAssigned, assignment.Status)
	})

	t.Run("rejects full shift without force", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-2", "staff-2", models.AssignmentStatusConfirmed, models.AssignmentKindFinal)
		_, err := f.service.AssignStaff(ctx, "shift-2", AssignStaffRequest{StaffID: "staff-3", Kind: models.AssignmentKindFinal})
		requireEngineError(t, err, appErrors.ErrShiftFull.Code)
	})

	t.Run("force overrides capacity", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-2", "staff-2", models.AssignmentStatusConfirmed, models.AssignmentKindFinal)
		_, err := f.service.AssignStaff(ctx, "shift-2", AssignStaffRequest{StaffID: "staff-3", Kind: models.AssignmentKindFinal, Force: true})
		require.NoError(t, err)
	})

	t.Run("force does not override conflicts", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-2", "staff-3", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		_, err := f.service.AssignStaff(ctx, "shift-1", AssignStaffRequest{StaffID: "staff-3", Kind: models.AssignmentKindFinal, Force: true})
		requireEngineError(t, err, appErrors.ErrShiftConflict.Code)
	})

	t.Run("rejects invalid kind", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		_, err := f.service.AssignStaff(ctx, "shift-1", AssignStaffRequest{StaffID: "staff-1", Kind: "TENTATIVE"})
		requireEngineError(t, err, appErrors.ErrValidation.Code)
	})

	t.Run("rejects already assigned staff", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusConfirmed, models.AssignmentKindFinal)
		_, err := f.service.AssignStaff(ctx, "shift-1", AssignStaffRequest{StaffID: "staff-1", Kind: models.AssignmentKindFinal})
		requireEngineError(t, err, appErrors.ErrInvalidTransition.Code)
	})
}

func TestBulkAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("partial success", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		// staff-2 is busy on an overlapping shift; the rest go through.
		f.seedAssignment("shift-2", "staff-2", models.AssignmentStatusAssigned, models.AssignmentKindFinal)

		result, err := f.service.BulkAssign(ctx, "shift-1", BulkAssignRequest{
			StaffIDs: []string{"staff-1", "staff-2", "staff-3"},
			Kind:     models.AssignmentKindPreliminary,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"staff-1", "staff-3"}, result.Succeeded)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, "staff-2", result.Failed[0].StaffID)
		assert.Equal(t, appErrors.ErrShiftConflict.Code, result.Failed[0].Reason.Code)
	})

	t.Run("capacity consumed in order", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.invitations.invitations = nil
		result, err := f.service.BulkAssign(ctx, "shift-2", BulkAssignRequest{
			StaffIDs: []string{"staff-1", "staff-2"},
			Kind:     models.AssignmentKindFinal,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"staff-1"}, result.Succeeded)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, appErrors.ErrShiftFull.Code, result.Failed[0].Reason.Code)
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		_, err := f.service.BulkAssign(ctx, "shift-1", BulkAssignRequest{Kind: models.AssignmentKindFinal})
		requireEngineError(t, err, appErrors.ErrValidation.Code)
	})
}

func TestUnassign(t *testing.T) {
	ctx := context.Background()

	t.Run("staff releases own assignment", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		err := f.service.Unassign(ctx, scheduling.Actor{StaffID: "staff-1"}, "shift-1", "staff-1")
		require.NoError(t, err)

		row := f.assignments.rows[assignmentKey("shift-1", "staff-1")]
		assert.Equal(t, models.AssignmentStatusCancelled, row.Status)
		require.NotNil(t, row.CancelledAt)
		require.Len(t, f.notifier.recorded, 1)
		assert.Equal(t, models.NotificationAssignmentCancelled, f.notifier.recorded[0])
	})

	t.Run("staff cannot release someone else", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		err := f.service.Unassign(ctx, scheduling.Actor{StaffID: "staff-2"}, "shift-1", "staff-1")
		requireEngineError(t, err, appErrors.ErrForbidden.Code)
	})

	t.Run("staff cannot release confirmed assignment", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusConfirmed, models.AssignmentKindFinal)
		err := f.service.Unassign(ctx, scheduling.Actor{StaffID: "staff-1"}, "shift-1", "staff-1")
		requireEngineError(t, err, appErrors.ErrInvalidTransition.Code)
	})

	t.Run("admin releases confirmed assignment", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusConfirmed, models.AssignmentKindFinal)
		err := f.service.Unassign(ctx, scheduling.Actor{Admin: true}, "shift-1", "staff-1")
		require.NoError(t, err)
	})

	t.Run("missing assignment", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		err := f.service.Unassign(ctx, scheduling.Actor{Admin: true}, "shift-1", "staff-1")
		requireEngineError(t, err, appErrors.ErrNotFound.Code)
	})
}

func TestConfirmAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("owner confirms final assignment", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		seeded := f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)

		assignment, err := f.service.ConfirmAssignment(ctx, scheduling.Actor{StaffID: "staff-1"}, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusConfirmed, assignment.Status)
		require.NotNil(t, assignment.ConfirmedAt)
		require.Len(t, f.notifier.recorded, 1)
		assert.Equal(t, models.NotificationAssignmentConfirmed, f.notifier.recorded[0])
	})

	t.Run("preliminary assignment cannot be confirmed", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		seeded := f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindPreliminary)
		_, err := f.service.ConfirmAssignment(ctx, scheduling.Actor{StaffID: "staff-1"}, seeded.ID)
		requireEngineError(t, err, appErrors.ErrInvalidTransition.Code)
	})

	t.Run("promote then confirm", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		seeded := f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindPreliminary)

		upgraded, err := f.service.UpgradeAssignment(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentKindFinal, upgraded.Kind)

		confirmed, err := f.service.ConfirmAssignment(ctx, scheduling.Actor{StaffID: "staff-1"}, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentStatusConfirmed, confirmed.Status)
		assert.Equal(t, []models.NotificationKind{
			models.NotificationAssignmentUpgraded,
			models.NotificationAssignmentConfirmed,
		}, f.notifier.recorded)
	})

	t.Run("stranger cannot confirm", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		seeded := f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		_, err := f.service.ConfirmAssignment(ctx, scheduling.Actor{StaffID: "staff-2"}, seeded.ID)
		requireEngineError(t, err, appErrors.ErrForbidden.Code)
	})

	t.Run("interested registration cannot be confirmed", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		seeded := f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusInterested, "")
		_, err := f.service.ConfirmAssignment(ctx, scheduling.Actor{Admin: true}, seeded.ID)
		requireEngineError(t, err, appErrors.ErrInvalidTransition.Code)
	})
}

func TestUpgradeAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("already final", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		seeded := f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		_, err := f.service.UpgradeAssignment(ctx, seeded.ID)
		requireEngineError(t, err, appErrors.ErrInvalidTransition.Code)
	})

	t.Run("missing assignment", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		_, err := f.service.UpgradeAssignment(ctx, "assignment-404")
		requireEngineError(t, err, appErrors.ErrNotFound.Code)
	})
}

func TestListAvailableShifts(t *testing.T) {
	ctx := context.Background()

	t.Run("lists invited shifts with eligibility", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		browse, err := f.service.ListAvailableShifts(ctx, "staff-1", false)
		require.NoError(t, err)
		assert.Equal(t, 3, browse.Stats.Total)
		assert.Equal(t, 3, browse.Stats.Available)
		assert.Equal(t, 0, browse.Stats.WithConflicts)

		for _, entry := range browse.Shifts {
			assert.True(t, entry.CanApply, entry.Shift.ID)
			if entry.Shift.ID == "shift-1" {
				assert.True(t, entry.Match.FullyQualified)
			}
		}
	})

	t.Run("claimed shifts are skipped", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusAssigned, models.AssignmentKindFinal)
		browse, err := f.service.ListAvailableShifts(ctx, "staff-1", false)
		require.NoError(t, err)
		assert.Equal(t, 2, browse.Stats.Total)
		for _, entry := range browse.Shifts {
			assert.NotEqual(t, "shift-1", entry.Shift.ID)
		}
	})

	t.Run("conflicts and occupancy surfaced", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		f.seedAssignment("shift-2", "staff-1", models.AssignmentStatusConfirmed, models.AssignmentKindFinal)
		f.seedAssignment("shift-1", "staff-2", models.AssignmentStatusAssigned, models.AssignmentKindFinal)

		browse, err := f.service.ListAvailableShifts(ctx, "staff-1", false)
		require.NoError(t, err)
		assert.Equal(t, 2, browse.Stats.Total)
		assert.Equal(t, 1, browse.Stats.WithConflicts)

		for _, entry := range browse.Shifts {
			switch entry.Shift.ID {
			case "shift-1":
				require.Len(t, entry.Conflicts, 1)
				assert.Equal(t, "shift-2", entry.Conflicts[0].ShiftID)
				assert.False(t, entry.CanApply)
				assert.Equal(t, 1, entry.Occupancy.Current)
			case "shift-3":
				assert.Empty(t, entry.Conflicts)
				assert.True(t, entry.CanApply)
			}
		}
	})

	t.Run("uninvited staff sees nothing by default", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		browse, err := f.service.ListAvailableShifts(ctx, "staff-3", false)
		require.NoError(t, err)
		assert.Equal(t, 0, browse.Stats.Total)
	})

	t.Run("showAll includes uninvited shifts", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		browse, err := f.service.ListAvailableShifts(ctx, "staff-3", true)
		require.NoError(t, err)
		assert.Equal(t, 3, browse.Stats.Total)
		assert.Equal(t, 0, browse.Stats.Available)
		for _, entry := range browse.Shifts {
			assert.False(t, entry.CanApply)
		}
	})

	t.Run("inactive staff rejected", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingPolicy{})
		_, err := f.service.ListAvailableShifts(ctx, "staff-9", false)
		requireEngineError(t, err, appErrors.ErrInactiveAccount.Code)
	})
}

func TestShiftRoster(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, SchedulingPolicy{})
	f.seedAssignment("shift-1", "staff-1", models.AssignmentStatusConfirmed, models.AssignmentKindFinal)
	f.seedAssignment("shift-1", "staff-2", models.AssignmentStatusInterested, "")

	roster, occupancy, err := f.service.ShiftRoster(ctx, "shift-1")
	require.NoError(t, err)
	assert.Len(t, roster, 2)
	assert.Equal(t, 1, occupancy.Current)
	assert.Equal(t, 2, occupancy.Required)
	assert.False(t, occupancy.Full)
}
