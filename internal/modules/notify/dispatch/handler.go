package dispatch

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/mendian-cloud/core/internal/modules/notify/channel"
	"github.com/mendian-cloud/core/internal/pkg/pagination"
	"github.com/mendian-cloud/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/notify", authMW)
	g.POST("/followups", h.notifyFollowups)
	g.POST("/appointments/:id", h.notifyAppointment)
	g.POST("/test", h.sendTest)

	logs := rg.Group("/push-logs", authMW)
	logs.GET("", h.listLogs)
}

// POST /notify/followups  trigger a due-task sweep
func (h *Handler) notifyFollowups(c *gin.Context) {
	// Empty body means "sweep with defaults".
	var opts DispatchOptions
	if err := c.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.NotifyDueFollowups(opts, TriggerDueSweep)
	if err != nil {
		if errors.Is(err, ErrNoEnabledChannel) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

// POST /notify/appointments/:id  broadcast a created appointment
func (h *Handler) notifyAppointment(c *gin.Context) {
	result, err := h.svc.NotifyAppointmentCreated(c.Param("id"), TriggerAppointment)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

type testSendDTO struct {
	Channel string `json:"channel" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// POST /notify/test  manual test-send against one channel
func (h *Handler) sendTest(c *gin.Context) {
	var dto testSendDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.SendTest(dto.Channel, dto.Message)
	if err != nil {
		if errors.Is(err, channel.ErrNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

// GET /push-logs  paginated audit trail
func (h *Handler) listLogs(c *gin.Context) {
	q := pagination.FromContext(c)

	var channelID, status, taskID *string
	if v := c.Query("channelId"); v != "" {
		channelID = &v
	}
	if v := c.Query("status"); v != "" {
		status = &v
	}
	if v := c.Query("taskId"); v != "" {
		taskID = &v
	}

	items, pag, err := h.svc.ListLogs(q, channelID, status, taskID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}
