package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// QueryRunner answers a natural-language request. *agent.Agent satisfies it.
type QueryRunner interface {
	Run(ctx context.Context, input string) (string, error)
}

type AgentHandler struct {
	runner QueryRunner
}

func NewAgentHandler(runner QueryRunner) *AgentHandler {
	return &AgentHandler{runner: runner}
}

type AgentQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// POST /api/agent/query
func (h *AgentHandler) Query(c *gin.Context) {
	var req AgentQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	reply, err := h.runner.Run(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
