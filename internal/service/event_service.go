package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crewplan/crew-api/internal/models"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
)

type eventRepo interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
}

// EventRequest is the payload for creating or editing an event.
type EventRequest struct {
	Name     string    `json:"name" validate:"required,max=200"`
	Location string    `json:"location" validate:"omitempty,max=200"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Notes    string    `json:"notes" validate:"omitempty,max=2000"`
}

// EventService manages the event lifecycle. Shifts only become visible to
// staff once their event is published.
type EventService struct {
	events    eventRepo
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs an event service.
func NewEventService(events eventRepo, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{events: events, cache: cache, validator: validate, logger: logger}
}

// List returns events matching the filter with pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	events, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create adds a draft event.
func (s *EventService) Create(ctx context.Context, req EventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	event := &models.Event{
		Name:     req.Name,
		Location: req.Location,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Notes:    req.Notes,
		Status:   models.EventStatusDraft,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("name", event.Name))
	return event, nil
}

// Update edits an event. Completed and cancelled events are frozen.
func (s *EventService) Update(ctx context.Context, id string, req EventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventStatusCompleted || event.Status == models.EventStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event is no longer editable")
	}

	event.Name = req.Name
	event.Location = req.Location
	event.StartsAt = req.StartsAt
	event.EndsAt = req.EndsAt
	event.Notes = req.Notes
	if err := s.events.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	s.cache.Invalidate(ctx, "shifts:browse:*")
	return event, nil
}

// ChangeStatus moves the event through its lifecycle, enforcing the
// allowed transitions.
func (s *EventService) ChangeStatus(ctx context.Context, id string, status models.EventStatus) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.ValidStatusChange(event.Status, status) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("event cannot move from %s to %s", event.Status, status))
	}
	if err := s.events.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change event status")
	}
	event.Status = status
	s.cache.Invalidate(ctx, "shifts:browse:*")
	s.logger.Info("event status changed", zap.String("event_id", id), zap.String("status", string(status)))
	return event, nil
}
