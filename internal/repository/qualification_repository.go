package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crewplan/crew-api/internal/models"
)

// QualificationRepository persists the qualification catalog.
type QualificationRepository struct {
	db *sqlx.DB
}

// NewQualificationRepository constructs the repository.
func NewQualificationRepository(db *sqlx.DB) *QualificationRepository {
	return &QualificationRepository{db: db}
}

// List returns qualifications, optionally restricted to active ones.
func (r *QualificationRepository) List(ctx context.Context, activeOnly bool) ([]models.Qualification, error) {
	query := `SELECT id, name, color, active, created_at, updated_at FROM qualifications`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC`

	var qualifications []models.Qualification
	if err := r.db.SelectContext(ctx, &qualifications, query); err != nil {
		return nil, fmt.Errorf("list qualifications: %w", err)
	}
	return qualifications, nil
}

// FindByID returns a qualification by its ID.
func (r *QualificationRepository) FindByID(ctx context.Context, id string) (*models.Qualification, error) {
	const query = `SELECT id, name, color, active, created_at, updated_at FROM qualifications WHERE id = $1`
	var qualification models.Qualification
	if err := r.db.GetContext(ctx, &qualification, query, id); err != nil {
		return nil, err
	}
	return &qualification, nil
}

// ExistsByName checks name uniqueness.
func (r *QualificationRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM qualifications WHERE LOWER(name) = LOWER($1)`
	args := []interface{}{name}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check qualification name: %w", err)
	}
	return true, nil
}

// Create inserts a new qualification.
func (r *QualificationRepository) Create(ctx context.Context, qualification *models.Qualification) error {
	if qualification.ID == "" {
		qualification.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	qualification.CreatedAt = now
	qualification.UpdatedAt = now
	const query = `INSERT INTO qualifications (id, name, color, active, created_at, updated_at)
		VALUES (:id, :name, :color, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, qualification); err != nil {
		return fmt.Errorf("create qualification: %w", err)
	}
	return nil
}

// Update persists name, color and active flag changes.
func (r *QualificationRepository) Update(ctx context.Context, qualification *models.Qualification) error {
	qualification.UpdatedAt = time.Now().UTC()
	const query = `UPDATE qualifications SET name = :name, color = :color, active = :active, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, qualification)
	if err != nil {
		return fmt.Errorf("update qualification: %w", err)
	}
	return requireAffected(result)
}

// Deactivate retires a qualification without deleting it.
func (r *QualificationRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE qualifications SET active = FALSE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate qualification: %w", err)
	}
	return requireAffected(result)
}
