package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crewplan/crew-api/internal/models"
)

// StaffRepository persists crew member records and their qualification
// links.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// List returns staff filtered by the provided criteria.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, int, error) {
	base := `FROM staff s`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.QualificationID != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM staff_qualifications sq WHERE sq.staff_id = s.id AND sq.qualification_id = $%d)", len(args)+1))
		args = append(args, filter.QualificationID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(s.first_name ILIKE $%d OR s.last_name ILIKE $%d OR s.personal_code ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":          "s.last_name",
		"personal_code": "s.personal_code",
		"created_at":    "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.last_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.personal_code, s.first_name, s.last_name, s.email, s.phone, s.active, s.created_at, s.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}
	return staff, total, nil
}

// FindByID returns a staff member by ID.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	const query = `SELECT id, personal_code, first_name, last_name, email, phone, active, created_at, updated_at
		FROM staff WHERE id = $1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}

// ExistsByPersonalCode checks personal code uniqueness.
func (r *StaffRepository) ExistsByPersonalCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := `SELECT 1 FROM staff WHERE personal_code = $1`
	args := []interface{}{code}
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
		return false, fmt.Errorf("check personal code: %w", err)
	}
	return true, nil
}

// Create inserts a new staff member.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	const query = `INSERT INTO staff (id, personal_code, first_name, last_name, email, phone, active, created_at, updated_at)
		VALUES (:id, :personal_code, :first_name, :last_name, :email, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, staff); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// Update persists profile changes.
func (r *StaffRepository) Update(ctx context.Context, staff *models.Staff) error {
	staff.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff SET personal_code = :personal_code, first_name = :first_name, last_name = :last_name,
		email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, staff)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	return requireAffected(result)
}

// Deactivate marks the staff member inactive. Historical assignments are
// untouched.
func (r *StaffRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE staff SET active = FALSE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate staff: %w", err)
	}
	return requireAffected(result)
}

// ListQualifications returns the qualification records held by a staff
// member.
func (r *StaffRepository) ListQualifications(ctx context.Context, staffID string) ([]models.Qualification, error) {
	const query = `SELECT q.id, q.name, q.color, q.active, q.created_at, q.updated_at
		FROM qualifications q
		JOIN staff_qualifications sq ON sq.qualification_id = q.id
		WHERE sq.staff_id = $1
		ORDER BY q.name ASC`
	var qualifications []models.Qualification
	if err := r.db.SelectContext(ctx, &qualifications, query, staffID); err != nil {
		return nil, fmt.Errorf("list staff qualifications: %w", err)
	}
	return qualifications, nil
}

// ListQualificationIDs returns just the qualification IDs for matching.
func (r *StaffRepository) ListQualificationIDs(ctx context.Context, staffID string) ([]string, error) {
	const query = `SELECT qualification_id FROM staff_qualifications WHERE staff_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, staffID); err != nil {
		return nil, fmt.Errorf("list staff qualification ids: %w", err)
	}
	return ids, nil
}

// ReplaceQualifications swaps the staff member's qualification set inside
// one transaction.
func (r *StaffRepository) ReplaceQualifications(ctx context.Context, staffID string, qualificationIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin qualification replace: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM staff_qualifications WHERE staff_id = $1`, staffID); err != nil {
		return fmt.Errorf("clear staff qualifications: %w", err)
	}
	for _, qualificationID := range qualificationIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO staff_qualifications (staff_id, qualification_id) VALUES ($1, $2)`,
			staffID, qualificationID); err != nil {
			return fmt.Errorf("link qualification %s: %w", qualificationID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit qualification replace: %w", err)
	}
	return nil
}

// LockByID takes a row lock on the staff record, serialising concurrent
// scheduling mutations for the same staff member.
func (r *StaffRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `SELECT id FROM staff WHERE id = $1 FOR UPDATE`
	var locked string
	if err := sqlx.GetContext(ctx, exec, &locked, query, id); err != nil {
		if isNoRows(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock staff row: %w", err)
	}
	return nil
}
