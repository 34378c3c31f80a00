package channel

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/mendian-cloud/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/channels", authMW)
	g.GET("", h.list)
	g.POST("", h.upsert)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) upsert(c *gin.Context) {
	var dto UpsertChannelDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.Upsert(&dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFoundMsg(c, err.Error())
		case errors.Is(err, ErrProviderNotSupported):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}
	if result.Created {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
