package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/pkg/jobs"
)

type notificationOutbox interface {
	Create(ctx context.Context, exec sqlx.ExtContext, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListPending(ctx context.Context, limit int) ([]models.Notification, error)
	MarkDispatched(ctx context.Context, id string, ts time.Time) error
}

// NotificationSink delivers a notification out-of-band (email, SMS, …).
// The engine never awaits delivery.
type NotificationSink interface {
	Deliver(ctx context.Context, notification models.Notification) error
}

// LogSink is the default sink; it only logs. Real transports plug in
// behind the same interface.
type LogSink struct {
	Logger *zap.Logger
}

// Deliver implements NotificationSink.
func (s LogSink) Deliver(_ context.Context, notification models.Notification) error {
	s.Logger.Info("notification dispatched",
		zap.String("kind", string(notification.Kind)),
		zap.String("assignment_id", notification.AssignmentID),
		zap.String("staff_id", notification.StaffID),
	)
	return nil
}

// NotificationService records assignment state changes in the outbox and
// dispatches them through a worker queue.
type NotificationService struct {
	outbox  notificationOutbox
	sink    NotificationSink
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService wires the outbox, sink and queue.
func NewNotificationService(outbox notificationOutbox, sink NotificationSink, logger *zap.Logger, queueCfg jobs.QueueConfig, enabled bool) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = LogSink{Logger: logger}
	}
	s := &NotificationService{outbox: outbox, sink: sink, logger: logger, enabled: enabled}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handleJob, queueCfg)
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// Record writes an outbox row on the caller's transaction so the
// notification commits atomically with the state change.
func (s *NotificationService) Record(ctx context.Context, exec sqlx.ExtContext, kind models.NotificationKind, assignment *models.Assignment) (*models.Notification, error) {
	notification := &models.Notification{
		Kind:         kind,
		AssignmentID: assignment.ID,
		StaffID:      assignment.StaffID,
		ShiftID:      assignment.ShiftID,
	}
	if err := s.outbox.Create(ctx, exec, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// EnqueueDispatch schedules delivery after the engine commit. Errors are
// logged, never propagated: the outbox row remains pending and can be
// re-driven.
func (s *NotificationService) EnqueueDispatch(notification *models.Notification) {
	if !s.enabled || notification == nil {
		return
	}
	job := jobs.Job{ID: notification.ID, Type: string(notification.Kind), Payload: notification.ID}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("notification_id", notification.ID), zap.Error(err))
	}
}

// DispatchPending re-drives outbox rows that never made it onto the
// queue, e.g. after a restart. Called once at startup, after the
// workers are running.
func (s *NotificationService) DispatchPending(ctx context.Context, limit int) error {
	if !s.enabled {
		return nil
	}
	pending, err := s.outbox.ListPending(ctx, limit)
	if err != nil {
		return err
	}
	for _, notification := range pending {
		s.EnqueueDispatch(&notification)
	}
	return nil
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	id, _ := job.Payload.(string)
	if id == "" {
		id = job.ID
	}
	notification, err := s.outbox.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.DispatchedAt != nil {
		return nil
	}
	if err := s.sink.Deliver(ctx, *notification); err != nil {
		return err
	}
	return s.outbox.MarkDispatched(ctx, notification.ID, time.Now().UTC())
}
