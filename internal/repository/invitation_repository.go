package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crewplan/crew-api/internal/models"
)

// InvitationRepository persists per-event staff invitations.
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository constructs the repository.
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// FindByID returns an invitation by its ID.
func (r *InvitationRepository) FindByID(ctx context.Context, id string) (*models.Invitation, error) {
	const query = `SELECT id, event_id, staff_id, status, invited_at, responded_at FROM invitations WHERE id = $1`
	var invitation models.Invitation
	if err := r.db.GetContext(ctx, &invitation, query, id); err != nil {
		return nil, err
	}
	return &invitation, nil
}

// FindByEventAndStaff returns the unique invitation for the pair, or
// sql.ErrNoRows.
func (r *InvitationRepository) FindByEventAndStaff(ctx context.Context, eventID, staffID string) (*models.Invitation, error) {
	const query = `SELECT id, event_id, staff_id, status, invited_at, responded_at
		FROM invitations WHERE event_id = $1 AND staff_id = $2`
	var invitation models.Invitation
	if err := r.db.GetContext(ctx, &invitation, query, eventID, staffID); err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ListByEvent returns invitations of an event with staff context.
func (r *InvitationRepository) ListByEvent(ctx context.Context, eventID string) ([]models.InvitationDetail, error) {
	const query = `SELECT i.id, i.event_id, i.staff_id, i.status, i.invited_at, i.responded_at,
		e.name AS event_name, e.starts_at AS event_start,
		s.first_name || ' ' || s.last_name AS staff_name
		FROM invitations i
		JOIN events e ON e.id = i.event_id
		JOIN staff s ON s.id = i.staff_id
		WHERE i.event_id = $1
		ORDER BY s.last_name ASC, s.first_name ASC`
	var invitations []models.InvitationDetail
	if err := r.db.SelectContext(ctx, &invitations, query, eventID); err != nil {
		return nil, fmt.Errorf("list invitations by event: %w", err)
	}
	return invitations, nil
}

// ListByStaff returns a staff member's invitations with event context.
func (r *InvitationRepository) ListByStaff(ctx context.Context, staffID string) ([]models.InvitationDetail, error) {
	const query = `SELECT i.id, i.event_id, i.staff_id, i.status, i.invited_at, i.responded_at,
		e.name AS event_name, e.starts_at AS event_start,
		s.first_name || ' ' || s.last_name AS staff_name
		FROM invitations i
		JOIN events e ON e.id = i.event_id
		JOIN staff s ON s.id = i.staff_id
		WHERE i.staff_id = $1
		ORDER BY e.starts_at ASC`
	var invitations []models.InvitationDetail
	if err := r.db.SelectContext(ctx, &invitations, query, staffID); err != nil {
		return nil, fmt.Errorf("list invitations by staff: %w", err)
	}
	return invitations, nil
}

// Create inserts a pending invitation. The unique (event_id, staff_id)
// constraint rejects duplicates.
func (r *InvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	if invitation.ID == "" {
		invitation.ID = uuid.NewString()
	}
	if invitation.Status == "" {
		invitation.Status = models.InvitationStatusPending
	}
	if invitation.InvitedAt.IsZero() {
		invitation.InvitedAt = time.Now().UTC()
	}
	const query = `INSERT INTO invitations (id, event_id, staff_id, status, invited_at)
		VALUES (:id, :event_id, :staff_id, :status, :invited_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invitation); err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

// Respond records the staff member's accept/decline decision.
func (r *InvitationRepository) Respond(ctx context.Context, id string, status models.InvitationStatus, respondedAt time.Time) error {
	const query = `UPDATE invitations SET status = $2, responded_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, respondedAt)
	if err != nil {
		return fmt.Errorf("respond to invitation: %w", err)
	}
	return requireAffected(result)
}
