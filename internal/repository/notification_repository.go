package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crewplan/crew-api/internal/models"
)

// NotificationRepository persists the outbox of assignment state changes.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts an outbox row. Runs on the engine's transaction so the
// notification commits atomically with the state change it describes.
func (r *NotificationRepository) Create(ctx context.Context, exec sqlx.ExtContext, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, kind, assignment_id, staff_id, shift_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := exec.ExecContext(ctx, query,
		notification.ID, notification.Kind, notification.AssignmentID,
		notification.StaffID, notification.ShiftID, notification.CreatedAt); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindByID returns an outbox row by ID.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	const query = `SELECT id, kind, assignment_id, staff_id, shift_id, created_at, dispatched_at
		FROM notifications WHERE id = $1`
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListPending returns undispatched notifications oldest-first.
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, kind, assignment_id, staff_id, shift_id, created_at, dispatched_at
		FROM notifications WHERE dispatched_at IS NULL ORDER BY created_at ASC LIMIT $1`
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, limit); err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return notifications, nil
}

// MarkDispatched records a completed delivery attempt.
func (r *NotificationRepository) MarkDispatched(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE notifications SET dispatched_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, ts)
	if err != nil {
		return fmt.Errorf("mark notification dispatched: %w", err)
	}
	return requireAffected(result)
}
