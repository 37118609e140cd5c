package subscription

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dywsy21/Cecilia/internal/models"
	"github.com/dywsy21/Cecilia/internal/pkg/response"
)

// Handler exposes the registry to the bot collaborator over HTTP.
type Handler struct {
	registry *Registry
	log      *zap.Logger
}

func NewHandler(registry *Registry, log *zap.Logger) *Handler {
	return &Handler{registry: registry, log: log}
}

// Register mounts the subscription routes.
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/add", h.add)
	group.POST("/remove", h.remove)
	group.GET("/list", h.list)
}

type mutateRequest struct {
	SubscriberID string `json:"subscriber_id" binding:"required"`
	Topic        string `json:"topic" binding:"required"`
}

func (h *Handler) add(c *gin.Context) {
	var req mutateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "subscriber_id and topic are required")
		return
	}

	sub := models.ParseTopic(req.Topic)
	if sub.Topic == "" || !models.ValidCategory(strings.ToLower(sub.Category)) {
		response.UnprocessableEntity(c, "unknown arXiv category in topic "+req.Topic)
		return
	}

	added, err := h.registry.Add(req.SubscriberID, sub)
	if err != nil {
		h.log.Error("registry add failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"topic": sub.String(), "added": added})
}

func (h *Handler) remove(c *gin.Context) {
	var req mutateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "subscriber_id and topic are required")
		return
	}

	removed, err := h.registry.Remove(req.SubscriberID, models.ParseTopic(req.Topic))
	if err != nil {
		h.log.Error("registry remove failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"removed": removed})
}

func (h *Handler) list(c *gin.Context) {
	subscriber := c.Query("subscriber_id")
	if subscriber == "" {
		response.BadRequest(c, "subscriber_id is required")
		return
	}

	topics := h.registry.List(subscriber)
	keys := make([]string, 0, len(topics))
	for _, sub := range topics {
		keys = append(keys, sub.String())
	}
	response.OK(c, keys)
}
