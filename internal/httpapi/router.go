package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/orchestrator"
)

// NewRouter wires the HTTP surface over the orchestrator.
func NewRouter(orch *orchestrator.Orchestrator, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	h := NewHandler(orch, log)

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/sessions", h.CreateSession)
	r.POST("/sessions/:id/ask", h.Ask)
	r.GET("/sessions/:id/history", h.History)
	r.DELETE("/sessions/:id/history", h.ClearHistory)
	r.GET("/sessions/:id/stats", h.Stats)
	r.PUT("/sessions/:id/semantic-model", h.UploadSemanticModel)

	return r
}
