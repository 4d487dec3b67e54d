package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/internal/scheduling"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
)

type invitationRepo interface {
	FindByID(ctx context.Context, id string) (*models.Invitation, error)
	FindByEventAndStaff(ctx context.Context, eventID, staffID string) (*models.Invitation, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.InvitationDetail, error)
	ListByStaff(ctx context.Context, staffID string) ([]models.InvitationDetail, error)
	Create(ctx context.Context, invitation *models.Invitation) error
	Respond(ctx context.Context, id string, status models.InvitationStatus, respondedAt time.Time) error
}

type invitationStaffRepo interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

// InviteRequest is the payload for inviting staff to an event.
type InviteRequest struct {
	StaffIDs []string `json:"staff_ids" validate:"required,min=1,dive,required"`
}

// InviteResult reports a batch invitation outcome. Already-invited staff
// are skipped, not errors.
type InviteResult struct {
	Invited []models.Invitation `json:"invited"`
	Skipped []string            `json:"skipped"`
}

// InvitationService manages the per-event opt-in gate.
type InvitationService struct {
	invitations invitationRepo
	events      shiftEventRepo
	staff       invitationStaffRepo
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewInvitationService constructs an invitation service.
func NewInvitationService(invitations invitationRepo, events shiftEventRepo, staff invitationStaffRepo, validate *validator.Validate, logger *zap.Logger) *InvitationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvitationService{
		invitations: invitations,
		events:      events,
		staff:       staff,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListByEvent returns an event's invitations.
func (s *InvitationService) ListByEvent(ctx context.Context, eventID string) ([]models.InvitationDetail, error) {
	invitations, err := s.invitations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invitations")
	}
	return invitations, nil
}

// ListByStaff returns a staff member's invitations across events.
func (s *InvitationService) ListByStaff(ctx context.Context, staffID string) ([]models.InvitationDetail, error) {
	invitations, err := s.invitations.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invitations")
	}
	return invitations, nil
}

// Invite creates pending invitations for the given staff. At most one
// invitation exists per (event, staff) pair; duplicates are skipped.
func (s *InvitationService) Invite(ctx context.Context, eventID string, req InviteRequest) (*InviteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invitation payload")
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status == models.EventStatusCompleted || event.Status == models.EventStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event no longer accepts invitations")
	}

	result := &InviteResult{Invited: []models.Invitation{}, Skipped: []string{}}
	for _, staffID := range req.StaffIDs {
		staff, err := s.staff.FindByID(ctx, staffID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown staff member: "+staffID)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
		}
		if !staff.Active {
			result.Skipped = append(result.Skipped, staffID)
			continue
		}

		if _, err := s.invitations.FindByEventAndStaff(ctx, eventID, staffID); err == nil {
			result.Skipped = append(result.Skipped, staffID)
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check invitation")
		}

		invitation := &models.Invitation{EventID: eventID, StaffID: staffID, Status: models.InvitationStatusPending}
		if err := s.invitations.Create(ctx, invitation); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invitation")
		}
		result.Invited = append(result.Invited, *invitation)
	}
	s.logger.Info("staff invited",
		zap.String("event_id", eventID),
		zap.Int("invited", len(result.Invited)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// Respond records the staff member's answer to their invitation. Only the
// invitee may respond; an answer may be revised until the event closes.
func (s *InvitationService) Respond(ctx context.Context, actor scheduling.Actor, invitationID string, accept bool) (*models.Invitation, error) {
	invitation, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invitation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitation")
	}
	if !actor.Admin && actor.StaffID != invitation.StaffID {
		return nil, appErrors.ErrForbidden
	}

	status := models.InvitationStatusDeclined
	if accept {
		status = models.InvitationStatusAccepted
	}
	respondedAt := s.now()
	if err := s.invitations.Respond(ctx, invitationID, status, respondedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record response")
	}
	invitation.Status = status
	invitation.RespondedAt = &respondedAt
	return invitation, nil
}
