package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crewplan/crew-api/internal/models"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
)

type staffRepo interface {
	List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, int, error)
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	ExistsByPersonalCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, staff *models.Staff) error
	Update(ctx context.Context, staff *models.Staff) error
	Deactivate(ctx context.Context, id string) error
	ListQualifications(ctx context.Context, staffID string) ([]models.Qualification, error)
	ReplaceQualifications(ctx context.Context, staffID string, qualificationIDs []string) error
}

type staffQualificationRepo interface {
	FindByID(ctx context.Context, id string) (*models.Qualification, error)
}

// CreateStaffRequest is the payload for registering a staff member.
type CreateStaffRequest struct {
	PersonalCode     string   `json:"personal_code" validate:"required,max=32"`
	FirstName        string   `json:"first_name" validate:"required,max=100"`
	LastName         string   `json:"last_name" validate:"required,max=100"`
	Email            string   `json:"email" validate:"required,email"`
	Phone            string   `json:"phone" validate:"omitempty,max=32"`
	QualificationIDs []string `json:"qualification_ids" validate:"omitempty,dive,required"`
}

// UpdateStaffRequest is the payload for editing a staff member.
type UpdateStaffRequest struct {
	PersonalCode string `json:"personal_code" validate:"required,max=32"`
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"omitempty,max=32"`
}

// StaffService manages staff records and their qualification sets.
type StaffService struct {
	staff          staffRepo
	qualifications staffQualificationRepo
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewStaffService constructs a staff service.
func NewStaffService(staff staffRepo, qualifications staffQualificationRepo, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{staff: staff, qualifications: qualifications, validator: validate, logger: logger}
}

// List returns staff matching the filter with pagination metadata.
func (s *StaffService) List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	staff, total, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return staff, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a staff member with their qualifications.
func (s *StaffService) Get(ctx context.Context, id string) (*models.StaffDetail, error) {
	staff, err := s.staff.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	qualifications, err := s.staff.ListQualifications(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualifications")
	}
	return &models.StaffDetail{Staff: *staff, Qualifications: qualifications}, nil
}

// Create registers a new staff member, optionally with an initial
// qualification set.
func (s *StaffService) Create(ctx context.Context, req CreateStaffRequest) (*models.StaffDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}
	taken, err := s.staff.ExistsByPersonalCode(ctx, req.PersonalCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check personal code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "personal code already in use")
	}
	if err := s.checkQualifications(ctx, req.QualificationIDs); err != nil {
		return nil, err
	}

	staff := &models.Staff{
		PersonalCode: req.PersonalCode,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff member")
	}
	if len(req.QualificationIDs) > 0 {
		if err := s.staff.ReplaceQualifications(ctx, staff.ID, req.QualificationIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set qualifications")
		}
	}
	s.logger.Info("staff member created", zap.String("staff_id", staff.ID), zap.String("personal_code", staff.PersonalCode))
	return s.Get(ctx, staff.ID)
}

// Update edits a staff member's profile.
func (s *StaffService) Update(ctx context.Context, id string, req UpdateStaffRequest) (*models.StaffDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}
	staff, err := s.staff.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	taken, err := s.staff.ExistsByPersonalCode(ctx, req.PersonalCode, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check personal code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "personal code already in use")
	}

	staff.PersonalCode = req.PersonalCode
	staff.FirstName = req.FirstName
	staff.LastName = req.LastName
	staff.Email = req.Email
	staff.Phone = req.Phone
	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update staff member")
	}
	return s.Get(ctx, id)
}

// SetQualifications replaces the staff member's qualification set.
func (s *StaffService) SetQualifications(ctx context.Context, id string, qualificationIDs []string) (*models.StaffDetail, error) {
	if _, err := s.staff.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	if err := s.checkQualifications(ctx, qualificationIDs); err != nil {
		return nil, err
	}
	if err := s.staff.ReplaceQualifications(ctx, id, qualificationIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set qualifications")
	}
	return s.Get(ctx, id)
}

// Deactivate retires a staff member. Their historical assignments stay.
func (s *StaffService) Deactivate(ctx context.Context, id string) error {
	if err := s.staff.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate staff member")
	}
	s.logger.Info("staff member deactivated", zap.String("staff_id", id))
	return nil
}

func (s *StaffService) checkQualifications(ctx context.Context, ids []string) error {
	for _, id := range ids {
		qualification, err := s.qualifications.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "unknown qualification: "+id)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualification")
		}
		if !qualification.Active {
			return appErrors.Clone(appErrors.ErrValidation, "qualification is inactive: "+qualification.Name)
		}
	}
	return nil
}
