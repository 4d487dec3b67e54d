package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/crewplan/crew-api/internal/models"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
	"github.com/crewplan/crew-api/pkg/export"
)

type exportAssignmentRepo interface {
	ListConfirmedByEvent(ctx context.Context, eventID string) ([]models.AssignmentDetail, error)
}

// RosterFormat selects the export encoding.
type RosterFormat string

// Supported roster formats.
const (
	RosterFormatPDF RosterFormat = "pdf"
	RosterFormatCSV RosterFormat = "csv"
)

// RosterExport is a rendered roster ready to stream to the client.
type RosterExport struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders event rosters. Only confirmed assignments are
// included; preliminary plans are not handed out.
type ExportService struct {
	events      shiftEventRepo
	assignments exportAssignmentRepo
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an export service.
func NewExportService(events shiftEventRepo, assignments exportAssignmentRepo, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		events:      events,
		assignments: assignments,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EventRoster renders the confirmed roster of an event.
func (s *ExportService) EventRoster(ctx context.Context, eventID string, format RosterFormat) (*RosterExport, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	assignments, err := s.assignments.ListConfirmedByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	roster := export.Roster{
		EventName: event.Name,
		Generated: s.now(),
		Rows:      make([]export.RosterRow, 0, len(assignments)),
	}
	for _, a := range assignments {
		roster.Rows = append(roster.Rows, export.RosterRow{
			ShiftName: a.ShiftName,
			Position:  a.Position,
			Starts:    a.ShiftStart,
			Ends:      a.ShiftEnd,
			StaffName: a.StaffName,
			StaffCode: a.StaffCode,
			Status:    string(a.Status),
		})
	}

	var data []byte
	var contentType, extension string
	switch format {
	case RosterFormatCSV:
		data, err = export.RenderCSV(roster)
		contentType, extension = "text/csv", "csv"
	case RosterFormatPDF:
		data, err = export.RenderPDF(roster)
		contentType, extension = "application/pdf", "pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported roster format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	s.logger.Info("roster exported",
		zap.String("event_id", eventID),
		zap.String("format", string(format)),
		zap.Int("rows", len(roster.Rows)),
	)
	return &RosterExport{
		FileName:    "roster-" + eventID + "-" + s.now().Format("20060102") + "." + extension,
		ContentType: contentType,
		Data:        data,
	}, nil
}
