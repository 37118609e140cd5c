package verification

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dywsy21/Cecilia/internal/pkg/response"
)

// Handler exposes the verification flow to the subscription form.
type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the flow's routes. Rate limiting is applied by the
// caller per endpoint.
func (h *Handler) Register(group *gin.RouterGroup, create, verify, resend gin.HandlerFunc) {
	group.POST("/create", create, h.create)
	group.POST("/verify", verify, h.verify)
	group.POST("/resend", resend, h.resend)
}

type createRequest struct {
	Email  string   `json:"email" binding:"required"`
	Topics []string `json:"topics" binding:"required"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and topics are required")
		return
	}

	token, err := h.service.Create(c.Request.Context(), req.Email, req.Topics)
	if err != nil {
		var overlap *OverlapError
		if errors.As(err, &overlap) {
			c.AbortWithStatusJSON(409, gin.H{
				"ok":      0,
				"code":    409,
				"message": "already subscribed",
				"topics":  overlap.Topics,
			})
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, gin.H{"session_token": token, "verification_required": true})
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token and code are required")
		return
	}

	email, err := h.service.Verify(c.Request.Context(), req.Token, req.Code)
	switch {
	case err == nil:
		response.OK(c, gin.H{"verified": true, "email": email})
	case errors.Is(err, ErrSessionNotFound):
		response.NotFoundMsg(c, "verification session not found")
	case errors.Is(err, ErrSessionExpired):
		response.NotFoundMsg(c, "verification session expired")
	case errors.Is(err, ErrAttemptsExhausted):
		response.TooManyRequests(c, "too many attempts, request a new code")
	default:
		var mismatch *CodeMismatchError
		if errors.As(err, &mismatch) {
			c.AbortWithStatusJSON(400, gin.H{
				"ok":        0,
				"code":      400,
				"message":   "wrong code",
				"remaining": mismatch.Remaining,
			})
			return
		}
		h.log.Error("verify failed", zap.Error(err))
		response.InternalError(c, err)
	}
}

type resendRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handler) resend(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token is required")
		return
	}

	err := h.service.Resend(c.Request.Context(), req.Token)
	switch {
	case err == nil:
		response.OK(c, gin.H{"resent": true})
	case errors.Is(err, ErrSessionNotFound):
		response.NotFoundMsg(c, "verification session not found")
	case errors.Is(err, ErrSessionExpired):
		response.NotFoundMsg(c, "verification session expired")
	default:
		h.log.Error("resend failed", zap.Error(err))
		response.InternalError(c, err)
	}
}
