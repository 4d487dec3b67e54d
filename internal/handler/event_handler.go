package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crewplan/crew-api/internal/middleware"
	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/internal/service"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
	"github.com/crewplan/crew-api/pkg/response"
)

// EventHandler wires event management to HTTP routes.
type EventHandler struct {
	events      *service.EventService
	invitations *service.InvitationService
	exports     *service.ExportService
}

// NewEventHandler constructs a new EventHandler.
func NewEventHandler(events *service.EventService, invitations *service.InvitationService, exports *service.ExportService) *EventHandler {
	return &EventHandler{events: events, invitations: invitations, exports: exports}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param search query string false "Search by name/location"
// @Param from query string false "Events starting after (RFC3339)"
// @Param to query string false "Events starting before (RFC3339)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	filter := models.EventFilter{
		Status:    models.EventStatus(strings.ToUpper(c.Query("status"))),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	events, pagination, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Create godoc
// @Summary Create a draft event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.EventRequest true "Event"
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	event, err := h.events.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

func (h *EventHandler) Update(c *gin.Context) {
	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	event, err := h.events.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

type changeStatusRequest struct {
	Status models.EventStatus `json:"status"`
}

// ChangeStatus godoc
// @Summary Move an event through its lifecycle
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param payload body handler.changeStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/status [put]
func (h *EventHandler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	event, err := h.events.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Invite godoc
// @Summary Invite staff to an event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param payload body service.InviteRequest true "Staff ids"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/invitations [post]
func (h *EventHandler) Invite(c *gin.Context) {
	var req service.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.invitations.Invite(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *EventHandler) Invitations(c *gin.Context) {
	invitations, err := h.invitations.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitations, nil)
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

// RespondInvitation godoc
// @Summary Respond to an invitation
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invitation ID"
// @Param payload body handler.respondRequest true "Response"
// @Success 200 {object} response.Envelope
// @Router /invitations/{id}/respond [put]
func (h *EventHandler) RespondInvitation(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	invitation, err := h.invitations.Respond(c.Request.Context(), middleware.Caller(c), c.Param("id"), req.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitation, nil)
}

// ExportRoster godoc
// @Summary Export an event's confirmed roster
// @Tags Events
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param format query string false "pdf or csv (default pdf)"
// @Success 200 {file} binary
// @Router /events/{id}/roster/export [get]
func (h *EventHandler) ExportRoster(c *gin.Context) {
	format := service.RosterFormat(strings.ToLower(c.DefaultQuery("format", "pdf")))
	result, err := h.exports.EventRoster(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
