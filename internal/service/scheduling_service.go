package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/internal/scheduling"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
)

type schedulingStaffRepo interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	ListQualificationIDs(ctx context.Context, staffID string) ([]string, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type schedulingShiftRepo interface {
	FindDetailByID(ctx context.Context, id string) (*models.ShiftDetail, error)
	ListUpcomingPublished(ctx context.Context, from time.Time) ([]models.ShiftDetail, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Shift, error)
}

type schedulingEventRepo interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type schedulingInvitationRepo interface {
	FindByEventAndStaff(ctx context.Context, eventID, staffID string) (*models.Invitation, error)
	ListByStaff(ctx context.Context, staffID string) ([]models.InvitationDetail, error)
}

type schedulingAssignmentRepo interface {
	Begin(ctx context.Context) (*sqlx.Tx, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindByShiftAndStaff(ctx context.Context, exec sqlx.ExtContext, shiftID, staffID string) (*models.Assignment, error)
	ListCommitments(ctx context.Context, exec sqlx.ExtContext, staffID string, statuses []models.AssignmentStatus) ([]models.AssignmentDetail, error)
	CountByShift(ctx context.Context, exec sqlx.ExtContext, shiftID string, statuses []models.AssignmentStatus) (int, error)
	OccupancyByShifts(ctx context.Context, shiftIDs []string, statuses []models.AssignmentStatus) (map[string]int, error)
	ListByShift(ctx context.Context, shiftID string) ([]models.AssignmentDetail, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	UpdateState(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
}

type assignmentNotifier interface {
	Record(ctx context.Context, exec sqlx.ExtContext, kind models.NotificationKind, assignment *models.Assignment) (*models.Notification, error)
	EnqueueDispatch(notification *models.Notification)
}

// SchedulingPolicy carries the engine's configurable decisions.
type SchedulingPolicy struct {
	CountInterested      bool
	RequireQualification bool
}

// ShiftEligibility is one listed shift with the full eligibility verdict,
// computed server-side so clients never re-derive it.
type ShiftEligibility struct {
	Shift              models.ShiftDetail      `json:"shift"`
	Occupancy          scheduling.Occupancy    `json:"occupancy"`
	Match              scheduling.MatchResult  `json:"qualification_match"`
	Conflicts          []scheduling.Conflict   `json:"conflicts"`
	InvitationStatus   models.InvitationStatus `json:"invitation_status,omitempty"`
	RegistrationStatus models.AssignmentStatus `json:"registration_status,omitempty"`
	CanApply           bool                    `json:"can_apply"`
}

// ShiftBrowseStats aggregates a listing.
type ShiftBrowseStats struct {
	Total          int `json:"total"`
	FullyQualified int `json:"fully_qualified"`
	Available      int `json:"available"`
	WithConflicts  int `json:"with_conflicts"`
}

// ShiftBrowse is the staff-facing listing result.
type ShiftBrowse struct {
	Shifts []ShiftEligibility `json:"shifts"`
	Stats  ShiftBrowseStats   `json:"stats"`
}

// BulkAssignFailure reports one rejected batch item.
type BulkAssignFailure struct {
	StaffID string           `json:"staff_id"`
	Reason  *appErrors.Error `json:"reason"`
}

// BulkAssignResult reports a partial-success batch outcome.
type BulkAssignResult struct {
	Succeeded []string            `json:"succeeded"`
	Failed    []BulkAssignFailure `json:"failed"`
}

// AssignStaffRequest is the admin assignment payload.
type AssignStaffRequest struct {
	StaffID string                `json:"staff_id" validate:"required"`
	Kind    models.AssignmentKind `json:"kind" validate:"required,oneof=PRELIMINARY FINAL"`
	Force   bool                  `json:"force"`
}

// BulkAssignRequest is the admin batch payload.
type BulkAssignRequest struct {
	StaffIDs []string              `json:"staff_ids" validate:"required,min=1,dive,required"`
	Kind     models.AssignmentKind `json:"kind" validate:"required,oneof=PRELIMINARY FINAL"`
}

// SchedulingService composes the qualification matcher, conflict detector,
// capacity tracker and transition guards into the public assignment
// operations. Every mutation re-validates its guards inside a transaction
// holding row locks on the shift and the staff member, so concurrent
// requests against the last open slot are linearised.
type SchedulingService struct {
	staff       schedulingStaffRepo
	shifts      schedulingShiftRepo
	events      schedulingEventRepo
	invitations schedulingInvitationRepo
	assignments schedulingAssignmentRepo
	notifier    assignmentNotifier
	cache       *CacheService
	metrics     *MetricsService
	policy      SchedulingPolicy
	capacity    scheduling.CapacityPolicy
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSchedulingService wires the engine.
func NewSchedulingService(
	staff schedulingStaffRepo,
	shifts schedulingShiftRepo,
	events schedulingEventRepo,
	invitations schedulingInvitationRepo,
	assignments schedulingAssignmentRepo,
	notifier assignmentNotifier,
	cache *CacheService,
	metrics *MetricsService,
	policy SchedulingPolicy,
	validate *validator.Validate,
	logger *zap.Logger,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulingService{
		staff:       staff,
		shifts:      shifts,
		events:      events,
		invitations: invitations,
		assignments: assignments,
		notifier:    notifier,
		cache:       cache,
		metrics:     metrics,
		policy:      policy,
		capacity:    scheduling.CapacityPolicy{CountInterested: policy.CountInterested},
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func activeStatuses() []models.AssignmentStatus {
	return []models.AssignmentStatus{
		models.AssignmentStatusInterested,
		models.AssignmentStatusAssigned,
		models.AssignmentStatusConfirmed,
	}
}

// ListAvailableShifts returns upcoming shifts of published events with the
// eligibility verdict per shift. By default only events the staff member
// accepted an invitation for are listed and already-claimed shifts are
// skipped; showAll widens the listing to everything upcoming. The read is
// cache-backed and may be stale; every mutating operation re-validates.
func (s *SchedulingService) ListAvailableShifts(ctx context.Context, staffID string, showAll bool) (*ShiftBrowse, error) {
	staff, err := s.loadStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !staff.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "staff member is inactive")
	}

	cacheKey := fmt.Sprintf("shifts:browse:%s:%t", staffID, showAll)
	if s.cache.Enabled() {
		var cached ShiftBrowse
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	shifts, err := s.shifts.ListUpcomingPublished(ctx, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}

	qualificationIDs, err := s.staff.ListQualificationIDs(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualifications")
	}

	commitments, err := s.assignments.ListCommitments(ctx, nil, staffID, activeStatuses())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commitments")
	}
	commitmentByShift := make(map[string]models.AssignmentStatus, len(commitments))
	for _, c := range commitments {
		commitmentByShift[c.ShiftID] = c.Status
	}

	invitations, err := s.invitations.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitations")
	}
	invitationByEvent := make(map[string]models.InvitationStatus, len(invitations))
	for _, inv := range invitations {
		invitationByEvent[inv.EventID] = inv.Status
	}

	shiftIDs := make([]string, 0, len(shifts))
	for _, shift := range shifts {
		shiftIDs = append(shiftIDs, shift.ID)
	}
	occupancy, err := s.assignments.OccupancyByShifts(ctx, shiftIDs, s.capacity.CountedStatuses())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy")
	}

	browse := &ShiftBrowse{Shifts: make([]ShiftEligibility, 0, len(shifts))}
	for _, shift := range shifts {
		registration, claimed := commitmentByShift[shift.ID]
		if claimed {
			continue
		}
		invitationStatus, invited := invitationByEvent[shift.EventID]
		accepted := invited && invitationStatus == models.InvitationStatusAccepted
		if !showAll && !accepted {
			continue
		}

		entry := ShiftEligibility{
			Shift:              shift,
			Match:              scheduling.Match(qualificationIDs, shift.RequiredQualCodes),
			Conflicts:          s.conflictsFor(shift.Shift, commitments),
			Occupancy:          scheduling.NewOccupancy(occupancy[shift.ID], shift.RequiredHeadcount),
			InvitationStatus:   invitationStatus,
			RegistrationStatus: registration,
		}
		qualified := entry.Match.FullyQualified || !s.policy.RequireQualification
		entry.CanApply = accepted && qualified && len(entry.Conflicts) == 0 && !entry.Occupancy.Full

		browse.Shifts = append(browse.Shifts, entry)
		browse.Stats.Total++
		if entry.Match.FullyQualified {
			browse.Stats.FullyQualified++
		}
		if entry.CanApply {
			browse.Stats.Available++
		}
		if len(entry.Conflicts) > 0 {
			browse.Stats.WithConflicts++
		}
	}

	s.cache.Set(ctx, cacheKey, browse)
	return browse, nil
}

// ApplyForShift registers the staff member's interest in a shift,
// re-validating every guard at commit time.
func (s *SchedulingService) ApplyForShift(ctx context.Context, staffID, shiftID string) (assignment *models.Assignment, err error) {
	defer s.observe("apply", &err)

	staff, err := s.loadStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !staff.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "staff member is inactive")
	}

	tx, err := s.assignments.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Per-staff then per-shift lock; every engine mutation takes them in
	// this order to avoid lock cycles.
	if err := s.staff.LockByID(ctx, tx, staffID); err != nil {
		return nil, s.notFoundOr(err, "staff member not found")
	}
	shift, err := s.shifts.LockByID(ctx, tx, shiftID)
	if err != nil {
		return nil, s.notFoundOr(err, "shift not found")
	}

	event, err := s.events.FindByID(ctx, shift.EventID)
	if err != nil {
		return nil, s.notFoundOr(err, "event not found")
	}
	if event.Status != models.EventStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrShiftClosed, "event is not published")
	}
	if !shift.StartsAt.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrShiftClosed, "shift has already started")
	}

	invitation, err := s.invitations.FindByEventAndStaff(ctx, shift.EventID, staffID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitation")
	}
	if invitation == nil || invitation.Status != models.InvitationStatusAccepted {
		return nil, appErrors.ErrNotInvited
	}

	existing, err := s.findExisting(ctx, tx, shiftID, staffID)
	if err != nil {
		return nil, err
	}
	if err := scheduling.CheckRegisterInterest(existing); err != nil {
		return nil, err
	}

	if err := s.guardConflicts(ctx, tx, staffID, shift); err != nil {
		return nil, err
	}

	qualificationIDs, err := s.staff.ListQualificationIDs(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualifications")
	}
	match := scheduling.Match(qualificationIDs, shift.RequiredQualCodes)
	if s.policy.RequireQualification && !match.FullyQualified {
		return nil, appErrors.WithDetails(appErrors.ErrNotQualified, match)
	}

	if err := s.guardCapacity(ctx, tx, shift, existing, false); err != nil {
		return nil, err
	}

	assignment = s.resurrectOrNew(existing, shiftID, staffID)
	assignment.Status = models.AssignmentStatusInterested
	assignment.Kind = ""
	if err := s.persist(ctx, tx, assignment, existing != nil); err != nil {
		return nil, err
	}

	notification, err := s.notifier.Record(ctx, tx, models.NotificationAssignmentCreated, assignment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notification")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit registration")
	}
	s.afterMutation(ctx, notification)
	return assignment, nil
}

// AssignStaff is the admin path: assigns a staff member to a shift with
// the given kind, optionally overriding a full shift. No invitation is
// required; conflicts still block.
func (s *SchedulingService) AssignStaff(ctx context.Context, shiftID string, req AssignStaffRequest) (assignment *models.Assignment, err error) {
	defer s.observe("assign", &err)

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	staff, err := s.loadStaff(ctx, req.StaffID)
	if err != nil {
		return nil, err
	}
	if !staff.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "staff member is inactive")
	}

	tx, err := s.assignments.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.staff.LockByID(ctx, tx, req.StaffID); err != nil {
		return nil, s.notFoundOr(err, "staff member not found")
	}
	shift, err := s.shifts.LockByID(ctx, tx, shiftID)
	if err != nil {
		return nil, s.notFoundOr(err, "shift not found")
	}

	event, err := s.events.FindByID(ctx, shift.EventID)
	if err != nil {
		return nil, s.notFoundOr(err, "event not found")
	}
	if event.Status != models.EventStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrShiftClosed, "event is not published")
	}

	existing, err := s.findExisting(ctx, tx, shiftID, req.StaffID)
	if err != nil {
		return nil, err
	}
	if err := scheduling.CheckAssign(existing); err != nil {
		return nil, err
	}

	if err := s.guardConflicts(ctx, tx, req.StaffID, shift); err != nil {
		return nil, err
	}
	if err := s.guardCapacity(ctx, tx, shift, existing, req.Force); err != nil {
		return nil, err
	}

	// Admins may assign under-qualified staff; the gap is logged, not
	// fatal.
	qualificationIDs, err := s.staff.ListQualificationIDs(ctx, req.StaffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualifications")
	}
	if match := scheduling.Match(qualificationIDs, shift.RequiredQualCodes); !match.FullyQualified {
		s.logger.Warn("assigning staff without full qualification",
			zap.String("shift_id", shiftID),
			zap.String("staff_id", req.StaffID),
			zap.Int("matching", match.MatchingCount),
			zap.Int("required", match.RequiredCount),
		)
	}

	now := s.now()
	assignment = s.resurrectOrNew(existing, shiftID, req.StaffID)
	assignment.Status = models.AssignmentStatusAssigned
	assignment.Kind = req.Kind
	assignment.AssignedAt = &now
	if err := s.persist(ctx, tx, assignment, existing != nil); err != nil {
		return nil, err
	}

	notification, err := s.notifier.Record(ctx, tx, models.NotificationAssignmentCreated, assignment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notification")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignment")
	}
	s.afterMutation(ctx, notification)
	return assignment, nil
}

// BulkAssign applies the single-assignment guards independently to each
// staff member in the supplied order. Partial success: failures are
// collected, remaining items proceed.
func (s *SchedulingService) BulkAssign(ctx context.Context, shiftID string, req BulkAssignRequest) (*BulkAssignResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk assignment payload")
	}

	result := &BulkAssignResult{Succeeded: []string{}, Failed: []BulkAssignFailure{}}
	for _, staffID := range req.StaffIDs {
		_, err := s.AssignStaff(ctx, shiftID, AssignStaffRequest{StaffID: staffID, Kind: req.Kind})
		if err != nil {
			result.Failed = append(result.Failed, BulkAssignFailure{StaffID: staffID, Reason: appErrors.FromError(err)})
			continue
		}
		result.Succeeded = append(result.Succeeded, staffID)
	}
	s.logger.Info("bulk assignment finished",
		zap.String("shift_id", shiftID),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// Unassign cancels an assignment. Staff may release their own interested
// or assigned records; confirmed records require the admin path.
func (s *SchedulingService) Unassign(ctx context.Context, actor scheduling.Actor, shiftID, staffID string) (err error) {
	defer s.observe("unassign", &err)

	tx, err := s.assignments.Begin(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.staff.LockByID(ctx, tx, staffID); err != nil {
		return s.notFoundOr(err, "staff member not found")
	}
	if _, err := s.shifts.LockByID(ctx, tx, shiftID); err != nil {
		return s.notFoundOr(err, "shift not found")
	}

	assignment, err := s.assignments.FindByShiftAndStaff(ctx, tx, shiftID, staffID)
	if err != nil {
		return s.notFoundOr(err, "assignment not found")
	}
	if err := scheduling.CheckCancel(assignment, actor); err != nil {
		return err
	}
	if assignment.Status == models.AssignmentStatusConfirmed {
		s.logger.Info("confirmed assignment released by admin",
			zap.String("assignment_id", assignment.ID),
			zap.String("shift_id", shiftID),
			zap.String("staff_id", staffID),
		)
	}

	now := s.now()
	assignment.Status = models.AssignmentStatusCancelled
	assignment.CancelledAt = &now
	if err := s.assignments.UpdateState(ctx, tx, assignment); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel assignment")
	}

	notification, err := s.notifier.Record(ctx, tx, models.NotificationAssignmentCancelled, assignment)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notification")
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit cancellation")
	}
	s.afterMutation(ctx, notification)
	return nil
}

// ConfirmAssignment moves a final assignment into CONFIRMED. Only the
// assigned staff member or an admin may confirm.
func (s *SchedulingService) ConfirmAssignment(ctx context.Context, actor scheduling.Actor, assignmentID string) (result *models.Assignment, err error) {
	defer s.observe("confirm", &err)

	located, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, s.notFoundOr(err, "assignment not found")
	}

	tx, err := s.assignments.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := s.shifts.LockByID(ctx, tx, located.ShiftID); err != nil {
		return nil, s.notFoundOr(err, "shift not found")
	}
	assignment, err := s.assignments.FindByShiftAndStaff(ctx, tx, located.ShiftID, located.StaffID)
	if err != nil {
		return nil, s.notFoundOr(err, "assignment not found")
	}
	if err := scheduling.CheckConfirm(assignment, actor); err != nil {
		return nil, err
	}

	now := s.now()
	assignment.Status = models.AssignmentStatusConfirmed
	assignment.ConfirmedAt = &now
	if err := s.assignments.UpdateState(ctx, tx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm assignment")
	}

	notification, err := s.notifier.Record(ctx, tx, models.NotificationAssignmentConfirmed, assignment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notification")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit confirmation")
	}
	s.afterMutation(ctx, notification)
	return assignment, nil
}

// UpgradeAssignment promotes a preliminary assignment to final, making it
// confirmable and re-triggering the staff notification.
func (s *SchedulingService) UpgradeAssignment(ctx context.Context, assignmentID string) (result *models.Assignment, err error) {
	defer s.observe("upgrade", &err)

	located, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, s.notFoundOr(err, "assignment not found")
	}

	tx, err := s.assignments.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := s.shifts.LockByID(ctx, tx, located.ShiftID); err != nil {
		return nil, s.notFoundOr(err, "shift not found")
	}
	assignment, err := s.assignments.FindByShiftAndStaff(ctx, tx, located.ShiftID, located.StaffID)
	if err != nil {
		return nil, s.notFoundOr(err, "assignment not found")
	}
	if err := scheduling.CheckUpgrade(assignment); err != nil {
		return nil, err
	}

	assignment.Kind = models.AssignmentKindFinal
	if err := s.assignments.UpdateState(ctx, tx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upgrade assignment")
	}

	notification, err := s.notifier.Record(ctx, tx, models.NotificationAssignmentUpgraded, assignment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notification")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit upgrade")
	}
	s.afterMutation(ctx, notification)
	return assignment, nil
}

// ShiftRoster returns a shift's assignments with its occupancy verdict.
func (s *SchedulingService) ShiftRoster(ctx context.Context, shiftID string) ([]models.AssignmentDetail, scheduling.Occupancy, error) {
	shift, err := s.shifts.FindDetailByID(ctx, shiftID)
	if err != nil {
		return nil, scheduling.Occupancy{}, s.notFoundOr(err, "shift not found")
	}
	assignments, err := s.assignments.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, scheduling.Occupancy{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	count, err := s.assignments.CountByShift(ctx, nil, shiftID, s.capacity.CountedStatuses())
	if err != nil {
		return nil, scheduling.Occupancy{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	return assignments, scheduling.NewOccupancy(count, shift.RequiredHeadcount), nil
}

func (s *SchedulingService) loadStaff(ctx context.Context, staffID string) (*models.Staff, error) {
	staff, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		return nil, s.notFoundOr(err, "staff member not found")
	}
	return staff, nil
}

func (s *SchedulingService) findExisting(ctx context.Context, tx *sqlx.Tx, shiftID, staffID string) (*models.Assignment, error) {
	existing, err := s.assignments.FindByShiftAndStaff(ctx, tx, shiftID, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return existing, nil
}

// guardConflicts rejects the mutation when the shift overlaps any of the
// staff member's other active commitments.
func (s *SchedulingService) guardConflicts(ctx context.Context, tx *sqlx.Tx, staffID string, shift *models.Shift) error {
	commitments, err := s.assignments.ListCommitments(ctx, tx, staffID, activeStatuses())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commitments")
	}
	conflicts := s.conflictsFor(*shift, commitments)
	if len(conflicts) > 0 {
		return appErrors.WithDetails(appErrors.ErrShiftConflict, conflicts)
	}
	return nil
}

func (s *SchedulingService) conflictsFor(shift models.Shift, commitments []models.AssignmentDetail) []scheduling.Conflict {
	candidates := make([]scheduling.Commitment, 0, len(commitments))
	for _, c := range commitments {
		if c.ShiftID == shift.ID {
			continue
		}
		candidates = append(candidates, scheduling.Commitment{
			ShiftID:   c.ShiftID,
			ShiftName: c.ShiftName,
			EventName: c.EventName,
			Window:    scheduling.Window{Start: c.ShiftStart, End: c.ShiftEnd},
		})
	}
	return scheduling.FindConflicts(scheduling.Window{Start: shift.StartsAt, End: shift.EndsAt}, candidates)
}

// guardCapacity enforces the headcount under the configured policy. The
// staff member's own record is excluded from the count so that upgrading
// an interested registration never trips over itself.
func (s *SchedulingService) guardCapacity(ctx context.Context, tx *sqlx.Tx, shift *models.Shift, existing *models.Assignment, force bool) error {
	count, err := s.assignments.CountByShift(ctx, tx, shift.ID, s.capacity.CountedStatuses())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	if existing != nil && existing.Status.Active() {
		for _, counted := range s.capacity.CountedStatuses() {
			if existing.Status == counted {
				count--
				break
			}
		}
	}
	occupancy := scheduling.NewOccupancy(count, shift.RequiredHeadcount)
	if occupancy.Full && !force {
		return appErrors.WithDetails(appErrors.ErrShiftFull, occupancy)
	}
	return nil
}

// resurrectOrNew reuses a cancelled record with cleared timestamps or
// starts a fresh lifecycle.
func (s *SchedulingService) resurrectOrNew(existing *models.Assignment, shiftID, staffID string) *models.Assignment {
	if existing != nil {
		assignment := *existing
		assignment.AssignedAt = nil
		assignment.ConfirmedAt = nil
		assignment.CancelledAt = nil
		return &assignment
	}
	return &models.Assignment{ShiftID: shiftID, StaffID: staffID, CreatedAt: s.now()}
}

func (s *SchedulingService) persist(ctx context.Context, tx *sqlx.Tx, assignment *models.Assignment, update bool) error {
	var err error
	if update {
		err = s.assignments.UpdateState(ctx, tx, assignment)
	} else {
		err = s.assignments.Create(ctx, tx, assignment)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist assignment")
	}
	return nil
}

// afterMutation runs the fire-and-forget follow-ups of a committed write.
func (s *SchedulingService) afterMutation(ctx context.Context, notification *models.Notification) {
	s.notifier.EnqueueDispatch(notification)
	s.cache.Invalidate(ctx, "shifts:browse:*")
}

func (s *SchedulingService) observe(operation string, err *error) {
	if s.metrics != nil {
		s.metrics.RecordSchedulingOperation(operation, *err)
	}
}

func (s *SchedulingService) notFoundOr(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
