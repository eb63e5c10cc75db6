package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	commonerrors "warehouse-chat/internal/common/errors"
	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/orchestrator"
	"warehouse-chat/internal/semmodel"
)

const maxSemanticModelBytes = 1 << 20

type Handler struct {
	orch   *orchestrator.Orchestrator
	logger logger.Logger
}

func NewHandler(orch *orchestrator.Orchestrator, log logger.Logger) *Handler {
	return &Handler{orch: orch, logger: log}
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

// failErr maps typed errors to HTTP statuses.
func failErr(c *gin.Context, err error) {
	switch commonerrors.CodeOf(err) {
	case commonerrors.ErrCodeSessionNotFound:
		fail(c, http.StatusNotFound, err.Error())
	case commonerrors.ErrCodeSemanticModelInvalid, commonerrors.ErrCodeSemanticModelShape:
		fail(c, http.StatusBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Health(c *gin.Context) {
	ok(c, gin.H{"status": "healthy"})
}

type createSessionReq struct {
	UserID   string `json:"user_id"`
	Account  string `json:"account"`
	Database string `json:"database"`
	Schema   string `json:"schema"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	sess, err := h.orch.CreateSession(c.Request.Context(), req.UserID, req.Account, req.Database, req.Schema)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, gin.H{
		"session_id": sess.ID,
		"database":   sess.Database,
		"schema":     sess.Schema,
		"created_at": sess.CreatedAt,
	})
}

type askReq struct {
	Question string `json:"question" binding:"required"`
}

func (h *Handler) Ask(c *gin.Context) {
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.orch.HandleTurn(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		failErr(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			fail(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	msgs, err := h.orch.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, gin.H{"messages": msgs, "count": len(msgs)})
}

func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.orch.ClearHistory(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"cleared": true})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.orch.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, stats)
}

// UploadSemanticModel accepts a YAML document as the request body and
// activates it for the session.
func (h *Handler) UploadSemanticModel(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSemanticModelBytes))
	if err != nil || len(body) == 0 {
		fail(c, http.StatusBadRequest, "semantic model document is required")
		return
	}

	model, err := h.orch.ActivateSemanticModel(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		if errors.Is(err, semmodel.ErrUnrecognizedShape) || errors.Is(err, semmodel.ErrNotAMapping) || errors.Is(err, semmodel.ErrSchemaValidation) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		failErr(c, err)
		return
	}

	ok(c, gin.H{
		"name":    model.Name,
		"shape":   string(model.Shape),
		"version": model.Version,
	})
}
