package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/crewplan/crew-api/internal/middleware"
	"github.com/crewplan/crew-api/internal/service"
)

// Router bundles everything the HTTP surface needs.
type Router struct {
	Auth           *AuthHandler
	Staff          *StaffHandler
	Qualifications *QualificationHandler
	Events         *EventHandler
	Shifts         *ShiftHandler
	Scheduling     *SchedulingHandler

	AuthService *service.AuthService
	Metrics     *service.MetricsService

	ExportsEnabled bool

	DB    *sqlx.DB
	Redis *redis.Client
}

// Register mounts all routes under the given prefix.
func (rt *Router) Register(r *gin.Engine, prefix string) {
	r.GET("/health", rt.health)
	r.GET("/ready", rt.ready)
	if rt.Metrics != nil {
		r.GET("/metrics", gin.WrapH(rt.Metrics.Handler()))
	}

	api := r.Group(prefix)
	api.POST("/auth/login", rt.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.Authenticate(rt.AuthService))
	authed.GET("/auth/me", rt.Auth.Me)

	// Staff-facing scheduling surface.
	authed.GET("/shifts/available", rt.Scheduling.Browse)
	authed.POST("/shifts/:id/apply", rt.Scheduling.Apply)
	authed.POST("/assignments/:id/confirm", rt.Scheduling.Confirm)
	authed.DELETE("/shifts/:id/assignments/:staffId", rt.Scheduling.Unassign)
	authed.PUT("/invitations/:id/respond", rt.Events.RespondInvitation)
	authed.GET("/qualifications", rt.Qualifications.List)
	authed.GET("/qualifications/:id", rt.Qualifications.Get)
	authed.GET("/staff/:id/invitations", rt.Staff.Invitations)

	// Admin surface.
	admin := authed.Group("")
	admin.Use(middleware.RequireAdmin())

	admin.POST("/qualifications", rt.Qualifications.Create)
	admin.PUT("/qualifications/:id", rt.Qualifications.Update)
	admin.DELETE("/qualifications/:id", rt.Qualifications.Deactivate)

	admin.GET("/staff", rt.Staff.List)
	admin.GET("/staff/:id", rt.Staff.Get)
	admin.POST("/staff", rt.Staff.Create)
	admin.PUT("/staff/:id", rt.Staff.Update)
	admin.PUT("/staff/:id/qualifications", rt.Staff.SetQualifications)
	admin.DELETE("/staff/:id", rt.Staff.Deactivate)

	admin.GET("/events", rt.Events.List)
	admin.GET("/events/:id", rt.Events.Get)
	admin.POST("/events", rt.Events.Create)
	admin.PUT("/events/:id", rt.Events.Update)
	admin.PUT("/events/:id/status", rt.Events.ChangeStatus)
	admin.POST("/events/:id/invitations", rt.Events.Invite)
	admin.GET("/events/:id/invitations", rt.Events.Invitations)
	if rt.ExportsEnabled {
		admin.GET("/events/:id/roster/export", rt.Events.ExportRoster)
	}

	admin.GET("/events/:id/shifts", rt.Shifts.ListByEvent)
	admin.POST("/events/:id/shifts", rt.Shifts.Create)
	admin.GET("/shifts/:id", rt.Shifts.Get)
	admin.PUT("/shifts/:id", rt.Shifts.Update)
	admin.DELETE("/shifts/:id", rt.Shifts.Delete)

	admin.GET("/shifts/:id/roster", rt.Scheduling.Roster)
	admin.POST("/shifts/:id/assignments", rt.Scheduling.Assign)
	admin.POST("/shifts/:id/assignments/bulk", rt.Scheduling.BulkAssign)
	admin.POST("/assignments/:id/upgrade", rt.Scheduling.Upgrade)
}

func (rt *Router) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready checks the backing stores. Redis is optional; the service runs
// degraded without it.
func (rt *Router) ready(c *gin.Context) {
	ctx := c.Request.Context()
	if rt.DB != nil {
		if err := rt.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
	}
	status := gin.H{"status": "ready"}
	if rt.Redis != nil {
		if err := rt.Redis.Ping(ctx).Err(); err != nil {
			status["cache"] = "unavailable"
		}
	}
	c.JSON(http.StatusOK, status)
}
