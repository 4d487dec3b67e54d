package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/crewplan/crew-api/internal/models"
)

// AssignmentRepository owns the (staff, shift) relationship records and
// the derived occupancy counts. Mutating methods take an ExtContext so
// the scheduling engine can run them inside its guard transaction.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `a.id, a.shift_id, a.staff_id, a.status, a.kind, a.created_at, a.assigned_at, a.confirmed_at, a.cancelled_at`

const assignmentDetailColumns = assignmentColumns + `,
	sh.name AS shift_name, sh.position, sh.starts_at AS shift_start, sh.ends_at AS shift_end,
	e.id AS event_id, e.name AS event_name,
	st.first_name || ' ' || st.last_name AS staff_name, st.personal_code AS staff_code`

const assignmentDetailJoins = `
	FROM assignments a
	JOIN shifts sh ON sh.id = a.shift_id
	JOIN events e ON e.id = sh.event_id
	JOIN staff st ON st.id = a.staff_id`

// Begin opens a transaction for the scheduling engine's guard-and-write
// critical sections.
func (r *AssignmentRepository) Begin(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// FindByID returns an assignment by its ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments a WHERE a.id = $1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindByShiftAndStaff returns the unique record for the pair, cancelled
// or not, or sql.ErrNoRows. Runs on the provided executor so the engine
// sees the row under its transaction's locks.
func (r *AssignmentRepository) FindByShiftAndStaff(ctx context.Context, exec sqlx.ExtContext, shiftID, staffID string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments a WHERE a.shift_id = $1 AND a.staff_id = $2`, assignmentColumns)
	var assignment models.Assignment
	if err := sqlx.GetContext(ctx, exec, &assignment, query, shiftID, staffID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListCommitments returns a staff member's active assignments with shift
// and event context, ordered by shift start. A nil executor reads outside
// any transaction.
func (r *AssignmentRepository) ListCommitments(ctx context.Context, exec sqlx.ExtContext, staffID string, statuses []models.AssignmentStatus) ([]models.AssignmentDetail, error) {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`SELECT %s %s
		WHERE a.staff_id = $1 AND a.status = ANY($2)
		ORDER BY sh.starts_at ASC`, assignmentDetailColumns, assignmentDetailJoins)
	var commitments []models.AssignmentDetail
	if err := sqlx.SelectContext(ctx, exec, &commitments, query, staffID, pq.Array(statusStrings(statuses))); err != nil {
		return nil, fmt.Errorf("list staff commitments: %w", err)
	}
	return commitments, nil
}

// CountByShift counts capacity-consuming assignments of a shift. A nil
// executor reads outside any transaction.
func (r *AssignmentRepository) CountByShift(ctx context.Context, exec sqlx.ExtContext, shiftID string, statuses []models.AssignmentStatus) (int, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `SELECT COUNT(*) FROM assignments WHERE shift_id = $1 AND status = ANY($2)`
	var count int
	if err := sqlx.GetContext(ctx, exec, &count, query, shiftID, pq.Array(statusStrings(statuses))); err != nil {
		return 0, fmt.Errorf("count shift assignments: %w", err)
	}
	return count, nil
}

// OccupancyByShifts returns occupancy counts for many shifts at once,
// for the listing read path.
func (r *AssignmentRepository) OccupancyByShifts(ctx context.Context, shiftIDs []string, statuses []models.AssignmentStatus) (map[string]int, error) {
	if len(shiftIDs) == 0 {
		return map[string]int{}, nil
	}
	const query = `SELECT shift_id, COUNT(*) AS current
		FROM assignments
		WHERE shift_id = ANY($1) AND status = ANY($2)
		GROUP BY shift_id`
	var rows []models.ShiftOccupancy
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(shiftIDs), pq.Array(statusStrings(statuses))); err != nil {
		return nil, fmt.Errorf("load shift occupancy: %w", err)
	}
	occupancy := make(map[string]int, len(rows))
	for _, row := range rows {
		occupancy[row.ShiftID] = row.Current
	}
	return occupancy, nil
}

// ListByShift returns all assignments of a shift with context.
func (r *AssignmentRepository) ListByShift(ctx context.Context, shiftID string) ([]models.AssignmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE a.shift_id = $1
		ORDER BY st.last_name ASC, st.first_name ASC`, assignmentDetailColumns, assignmentDetailJoins)
	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, shiftID); err != nil {
		return nil, fmt.Errorf("list shift assignments: %w", err)
	}
	return assignments, nil
}

// ListConfirmedByEvent returns the confirmed roster of an event for the
// reporting collaborator.
func (r *AssignmentRepository) ListConfirmedByEvent(ctx context.Context, eventID string) ([]models.AssignmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE e.id = $1 AND a.status = $2
		ORDER BY sh.starts_at ASC, st.last_name ASC`, assignmentDetailColumns, assignmentDetailJoins)
	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, eventID, models.AssignmentStatusConfirmed); err != nil {
		return nil, fmt.Errorf("list confirmed roster: %w", err)
	}
	return assignments, nil
}

// Create inserts a new assignment record.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments (id, shift_id, staff_id, status, kind, created_at, assigned_at, confirmed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := exec.ExecContext(ctx, query,
		assignment.ID, assignment.ShiftID, assignment.StaffID, assignment.Status, assignment.Kind,
		assignment.CreatedAt, assignment.AssignedAt, assignment.ConfirmedAt, assignment.CancelledAt); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// UpdateState rewrites the lifecycle fields of an assignment. Used for
// every transition including resurrection after cancellation, which
// clears the old timestamps.
func (r *AssignmentRepository) UpdateState(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	const query = `UPDATE assignments SET status = $2, kind = $3, assigned_at = $4, confirmed_at = $5, cancelled_at = $6
		WHERE id = $1`
	result, err := exec.ExecContext(ctx, query,
		assignment.ID, assignment.Status, assignment.Kind,
		assignment.AssignedAt, assignment.ConfirmedAt, assignment.CancelledAt)
	if err != nil {
		return fmt.Errorf("update assignment state: %w", err)
	}
	return requireAffected(result)
}

func statusStrings(statuses []models.AssignmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
