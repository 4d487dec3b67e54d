package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/crewplan/crew-api/internal/middleware"
	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/internal/scheduling"
	"github.com/crewplan/crew-api/internal/service"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
	"github.com/crewplan/crew-api/pkg/response"
)

type schedulingEngineMock struct {
	applyStaffID  string
	applyShiftID  string
	applyErr      error
	assignReq     service.AssignStaffRequest
	unassignActor scheduling.Actor
	bulkResult    *service.BulkAssignResult
	browseShowAll bool
	browseStaffID string
}

func (m *schedulingEngineMock) ListAvailableShifts(_ context.Context, staffID string, showAll bool) (*service.ShiftBrowse, error) {
	m.browseStaffID = staffID
	m.browseShowAll = showAll
	return &service.ShiftBrowse{Shifts: []service.ShiftEligibility{}}, nil
}

func (m *schedulingEngineMock) ApplyForShift(_ context.Context, staffID, shiftID string) (*models.Assignment, error) {
	m.applyStaffID = staffID
	m.applyShiftID = shiftID
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	return &models.Assignment{ID: "a1", ShiftID: shiftID, StaffID: staffID, Status: models.AssignmentStatusInterested}, nil
}

func (m *schedulingEngineMock) AssignStaff(_ context.Context, shiftID string, req service.AssignStaffRequest) (*models.Assignment, error) {
	m.assignReq = req
	return &models.Assignment{ID: "a1", ShiftID: shiftID, StaffID: req.StaffID, Status: models.AssignmentStatusAssigned, Kind: req.Kind}, nil
}

func (m *schedulingEngineMock) BulkAssign(_ context.Context, shiftID string, req service.BulkAssignRequest) (*service.BulkAssignResult, error) {
	if m.bulkResult != nil {
		return m.bulkResult, nil
	}
	return &service.BulkAssignResult{Succeeded: req.StaffIDs, Failed: []service.BulkAssignFailure{}}, nil
}

func (m *schedulingEngineMock) Unassign(_ context.Context, actor scheduling.Actor, _, _ string) error {
	m.unassignActor = actor
	return nil
}

func (m *schedulingEngineMock) ConfirmAssignment(_ context.Context, _ scheduling.Actor, assignmentID string) (*models.Assignment, error) {
	return &models.Assignment{ID: assignmentID, Status: models.AssignmentStatusConfirmed}, nil
}

func (m *schedulingEngineMock) UpgradeAssignment(_ context.Context, assignmentID string) (*models.Assignment, error) {
	return &models.Assignment{ID: assignmentID, Kind: models.AssignmentKindFinal}, nil
}

func (m *schedulingEngineMock) ShiftRoster(_ context.Context, _ string) ([]models.AssignmentDetail, scheduling.Occupancy, error) {
	return nil, scheduling.Occupancy{}, nil
}

func staffContext(w *httptest.ResponseRecorder, req *http.Request, staffID string) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(middleware.ContextRole, models.RoleStaff)
	c.Set(middleware.ContextStaffID, staffID)
	return c
}

func TestApplyUsesCallerIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &schedulingEngineMock{}
	h := &SchedulingHandler{scheduling: mockSvc}

	req, _ := http.NewRequest(http.MethodPost, "/shifts/shift-1/apply", nil)
	w := httptest.NewRecorder()
	c := staffContext(w, req, "staff-1")
	c.Params = gin.Params{{Key: "id", Value: "shift-1"}}

	h.Apply(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "staff-1", mockSvc.applyStaffID)
	require.Equal(t, "shift-1", mockSvc.applyShiftID)
}

func TestApplyWithoutStaffIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &SchedulingHandler{scheduling: &schedulingEngineMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/shifts/shift-1/apply", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(middleware.ContextRole, models.RoleStaff)

	h.Apply(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestApplyConflictSurfacesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &schedulingEngineMock{applyErr: appErrors.ErrShiftConflict}
	h := &SchedulingHandler{scheduling: mockSvc}

	req, _ := http.NewRequest(http.MethodPost, "/shifts/shift-1/apply", nil)
	w := httptest.NewRecorder()
	c := staffContext(w, req, "staff-1")
	c.Params = gin.Params{{Key: "id", Value: "shift-1"}}

	h.Apply(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	require.Equal(t, appErrors.ErrShiftConflict.Code, envelope.Error.Code)
}

func TestAssignParsesPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &schedulingEngineMock{}
	h := &SchedulingHandler{scheduling: mockSvc}

	payload := []byte(`{"staff_id":"staff-2","kind":"FINAL","force":true}`)
	req, _ := http.NewRequest(http.MethodPost, "/shifts/shift-1/assignments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(middleware.ContextRole, models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "shift-1"}}

	h.Assign(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "staff-2", mockSvc.assignReq.StaffID)
	require.Equal(t, models.AssignmentKindFinal, mockSvc.assignReq.Kind)
	require.True(t, mockSvc.assignReq.Force)
}

func TestBrowseAdminOnBehalf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &schedulingEngineMock{}
	h := &SchedulingHandler{scheduling: mockSvc}

	req, _ := http.NewRequest(http.MethodGet, "/shifts/available?staff_id=staff-7&all=true", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(middleware.ContextRole, models.RoleAdmin)

	h.Browse(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "staff-7", mockSvc.browseStaffID)
	require.True(t, mockSvc.browseShowAll)
}

func TestUnassignDerivesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &schedulingEngineMock{}
	h := &SchedulingHandler{scheduling: mockSvc}

	req, _ := http.NewRequest(http.MethodDelete, "/shifts/shift-1/assignments/staff-1", nil)
	w := httptest.NewRecorder()
	c := staffContext(w, req, "staff-1")
	c.Params = gin.Params{{Key: "id", Value: "shift-1"}, {Key: "staffId", Value: "staff-1"}}

	h.Unassign(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "staff-1", mockSvc.unassignActor.StaffID)
	require.False(t, mockSvc.unassignActor.Admin)
}
