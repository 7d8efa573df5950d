package schedulerops

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/reminderd/internal/scheduler"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
)

// Handler exposes the scheduler's status query and manual task triggers.
// This is an operator surface; the user-facing API lives elsewhere.
type Handler struct {
	scheduler *scheduler.Scheduler
}

func NewHandler(s *scheduler.Scheduler) *Handler {
	return &Handler{scheduler: s}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sched := r.Group("/scheduler")
	{
		sched.GET("/status", h.Status)
		sched.POST("/tasks/:name/run", h.RunTask)
	}
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.scheduler.Status()})
}

func (h *Handler) RunTask(c *gin.Context) {
	name := c.Param("name")
	if err := h.scheduler.Trigger(c.Request.Context(), name); err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.ErrNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case apperrors.ErrConflict:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "task": name})
}
