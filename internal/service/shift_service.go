package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crewplan/crew-api/internal/models"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
)

type shiftRepo interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Shift, error)
	FindByID(ctx context.Context, id string) (*models.Shift, error)
	Create(ctx context.Context, shift *models.Shift) error
	Update(ctx context.Context, shift *models.Shift) error
	Delete(ctx context.Context, id string) error
}

type shiftEventRepo interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

// ShiftRequest is the payload for creating or editing a shift.
type ShiftRequest struct {
	Name              string    `json:"name" validate:"required,max=200"`
	Position          string    `json:"position" validate:"omitempty,max=100"`
	StartsAt          time.Time `json:"starts_at" validate:"required"`
	EndsAt            time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	RequiredHeadcount int       `json:"required_headcount" validate:"required,min=1"`
	RequiredQualIDs   []string  `json:"required_qualifications" validate:"omitempty,dive,required"`
	Notes             string    `json:"notes" validate:"omitempty,max=2000"`
}

// ShiftService manages shift definitions within events.
type ShiftService struct {
	shifts         shiftRepo
	events         shiftEventRepo
	qualifications staffQualificationRepo
	cache          *CacheService
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewShiftService constructs a shift service.
func NewShiftService(shifts shiftRepo, events shiftEventRepo, qualifications staffQualificationRepo, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ShiftService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShiftService{shifts: shifts, events: events, qualifications: qualifications, cache: cache, validator: validate, logger: logger}
}

// ListByEvent returns all shifts of an event.
func (s *ShiftService) ListByEvent(ctx context.Context, eventID string) ([]models.Shift, error) {
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}
	shifts, err := s.shifts.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}
	return shifts, nil
}

// Get returns one shift.
func (s *ShiftService) Get(ctx context.Context, id string) (*models.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	return shift, nil
}

// Create adds a shift to an event. The shift window must lie within a
// sane range but is allowed to extend past the event bounds; overnight
// events legitimately spill over.
func (s *ShiftService) Create(ctx context.Context, eventID string, req ShiftRequest) (*models.Shift, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventStatusCompleted || event.Status == models.EventStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event is no longer editable")
	}
	if err := s.checkQualifications(ctx, req.RequiredQualIDs); err != nil {
		return nil, err
	}

	shift := &models.Shift{
		EventID:           eventID,
		Name:              req.Name,
		Position:          req.Position,
		StartsAt:          req.StartsAt,
		EndsAt:            req.EndsAt,
		RequiredHeadcount: req.RequiredHeadcount,
		RequiredQualCodes: req.RequiredQualIDs,
		Notes:             req.Notes,
	}
	if err := s.shifts.Create(ctx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shift")
	}
	s.cache.Invalidate(ctx, "shifts:browse:*")
	s.logger.Info("shift created", zap.String("shift_id", shift.ID), zap.String("event_id", eventID))
	return shift, nil
}

// Update edits a shift definition.
func (s *ShiftService) Update(ctx context.Context, id string, req ShiftRequest) (*models.Shift, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}
	shift, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkQualifications(ctx, req.RequiredQualIDs); err != nil {
		return nil, err
	}

	shift.Name = req.Name
	shift.Position = req.Position
	shift.StartsAt = req.StartsAt
	shift.EndsAt = req.EndsAt
	shift.RequiredHeadcount = req.RequiredHeadcount
	shift.RequiredQualCodes = req.RequiredQualIDs
	shift.Notes = req.Notes
	if err := s.shifts.Update(ctx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update shift")
	}
	s.cache.Invalidate(ctx, "shifts:browse:*")
	return shift, nil
}

// Delete removes a shift together with its assignment rows.
func (s *ShiftService) Delete(ctx context.Context, id string) error {
	if err := s.shifts.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete shift")
	}
	s.cache.Invalidate(ctx, "shifts:browse:*")
	s.logger.Info("shift deleted", zap.String("shift_id", id))
	return nil
}

func (s *ShiftService) loadEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *ShiftService) checkQualifications(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.qualifications.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "unknown qualification: "+id)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualification")
		}
	}
	return nil
}
