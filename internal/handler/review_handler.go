package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/httpserver/authctx"
	"recruitflow/internal/service/review"
)

type ReviewHandler struct {
	engine *review.Engine
	logger *zap.Logger
}

func NewReviewHandler(engine *review.Engine, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{engine: engine, logger: logger}
}

type reviewRequest struct {
	Decision string  `json:"decision" binding:"required"`
	Notes    *string `json:"notes"`
}

func (h *ReviewHandler) Review(c *gin.Context) {
	rowID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid progress id"})
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviewerID := authctx.UserID(c)

	outcome, err := h.engine.ReviewMilestone(c.Request.Context(), rowID, req.Decision, req.Notes, reviewerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *ReviewHandler) Complete(c *gin.Context) {
	rowID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid progress id"})
		return
	}

	outcome, err := h.engine.CompleteWithoutReview(c.Request.Context(), rowID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}
