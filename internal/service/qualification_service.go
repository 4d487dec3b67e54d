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

type qualificationRepo interface {
	List(ctx context.Context, activeOnly bool) ([]models.Qualification, error)
	FindByID(ctx context.Context, id string) (*models.Qualification, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, qualification *models.Qualification) error
	Update(ctx context.Context, qualification *models.Qualification) error
	Deactivate(ctx context.Context, id string) error
}

// QualificationRequest is the payload for creating or editing a
// qualification.
type QualificationRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// QualificationService manages the qualification catalogue.
type QualificationService struct {
	qualifications qualificationRepo
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewQualificationService constructs a qualification service.
func NewQualificationService(qualifications qualificationRepo, validate *validator.Validate, logger *zap.Logger) *QualificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QualificationService{qualifications: qualifications, validator: validate, logger: logger}
}

// List returns qualifications, optionally only active ones.
func (s *QualificationService) List(ctx context.Context, activeOnly bool) ([]models.Qualification, error) {
	qualifications, err := s.qualifications.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qualifications")
	}
	return qualifications, nil
}

// Get returns one qualification.
func (s *QualificationService) Get(ctx context.Context, id string) (*models.Qualification, error) {
	qualification, err := s.qualifications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "qualification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualification")
	}
	return qualification, nil
}

// Create adds a qualification to the catalogue.
func (s *QualificationService) Create(ctx context.Context, req QualificationRequest) (*models.Qualification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid qualification payload")
	}
	taken, err := s.qualifications.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "qualification name already in use")
	}

	qualification := &models.Qualification{Name: req.Name, Color: req.Color, Active: true}
	if err := s.qualifications.Create(ctx, qualification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create qualification")
	}
	s.logger.Info("qualification created", zap.String("qualification_id", qualification.ID), zap.String("name", qualification.Name))
	return qualification, nil
}

// Update edits a qualification.
func (s *QualificationService) Update(ctx context.Context, id string, req QualificationRequest) (*models.Qualification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid qualification payload")
	}
	qualification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.qualifications.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "qualification name already in use")
	}

	qualification.Name = req.Name
	qualification.Color = req.Color
	if err := s.qualifications.Update(ctx, qualification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update qualification")
	}
	return qualification, nil
}

// Deactivate retires a qualification. Shifts that already require it are
// unaffected; staff simply stop matching against it for new shifts.
func (s *QualificationService) Deactivate(ctx context.Context, id string) error {
	if err := s.qualifications.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "qualification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate qualification")
	}
	return nil
}
