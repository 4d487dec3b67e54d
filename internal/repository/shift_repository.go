package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crewplan/crew-api/internal/models"
)

// ShiftRepository persists shifts.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository constructs the repository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

const shiftColumns = `s.id, s.event_id, s.name, s.position, s.starts_at, s.ends_at,
	s.required_headcount, s.required_qualifications, s.notes, s.created_at, s.updated_at`

// ListByEvent returns all shifts of an event ordered by start time.
func (r *ShiftRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Shift, error) {
	query := fmt.Sprintf(`SELECT %s FROM shifts s WHERE s.event_id = $1 ORDER BY s.starts_at ASC, s.name ASC`, shiftColumns)
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, eventID); err != nil {
		return nil, fmt.Errorf("list shifts by event: %w", err)
	}
	return shifts, nil
}

// ListUpcomingPublished returns future shifts of published events, the
// candidate pool for staff-facing listings.
func (r *ShiftRepository) ListUpcomingPublished(ctx context.Context, from time.Time) ([]models.ShiftDetail, error) {
	query := fmt.Sprintf(`SELECT %s, e.name AS event_name, e.status AS event_status
		FROM shifts s
		JOIN events e ON e.id = s.event_id
		WHERE e.status = $1 AND s.starts_at > $2
		ORDER BY s.starts_at ASC, s.name ASC`, shiftColumns)
	var shifts []models.ShiftDetail
	if err := r.db.SelectContext(ctx, &shifts, query, models.EventStatusPublished, from); err != nil {
		return nil, fmt.Errorf("list upcoming shifts: %w", err)
	}
	return shifts, nil
}

// FindByID returns a shift by its ID.
func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	query := fmt.Sprintf(`SELECT %s FROM shifts s WHERE s.id = $1`, shiftColumns)
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// FindDetailByID returns a shift with its event context.
func (r *ShiftRepository) FindDetailByID(ctx context.Context, id string) (*models.ShiftDetail, error) {
	query := fmt.Sprintf(`SELECT %s, e.name AS event_name, e.status AS event_status
		FROM shifts s
		JOIN events e ON e.id = s.event_id
		WHERE s.id = $1`, shiftColumns)
	var shift models.ShiftDetail
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// Create inserts a new shift.
func (r *ShiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	shift.CreatedAt = now
	shift.UpdatedAt = now
	const query = `INSERT INTO shifts (id, event_id, name, position, starts_at, ends_at, required_headcount, required_qualifications, notes, created_at, updated_at)
		VALUES (:id, :event_id, :name, :position, :starts_at, :ends_at, :required_headcount, :required_qualifications, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

// Update persists shift changes.
func (r *ShiftRepository) Update(ctx context.Context, shift *models.Shift) error {
	shift.UpdatedAt = time.Now().UTC()
	const query = `UPDATE shifts SET name = :name, position = :position, starts_at = :starts_at, ends_at = :ends_at,
		required_headcount = :required_headcount, required_qualifications = :required_qualifications, notes = :notes,
		updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, shift)
	if err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a shift. Assignments cascade at the schema level.
func (r *ShiftRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM shifts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	return requireAffected(result)
}

// LockByID takes a row lock on the shift, the serialisation point for
// capacity guards.
func (r *ShiftRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Shift, error) {
	query := fmt.Sprintf(`SELECT %s FROM shifts s WHERE s.id = $1 FOR UPDATE`, shiftColumns)
	var shift models.Shift
	if err := sqlx.GetContext(ctx, exec, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}
