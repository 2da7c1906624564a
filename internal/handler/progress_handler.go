package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/service/progress"
)

type ProgressHandler struct {
	initializer *progress.Initializer
	query       *progress.Query
	logger      *zap.Logger
}

func NewProgressHandler(initializer *progress.Initializer, query *progress.Query, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		initializer: initializer,
		query:       query,
		logger:      logger,
	}
}

func (h *ProgressHandler) Initialize(c *gin.Context) {
	appID, err := strconv.ParseInt(c.Param("appID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return
	}

	created, err := h.initializer.InitializeForApplication(c.Request.Context(), appID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (h *ProgressHandler) Get(c *gin.Context) {
	appID, err := strconv.ParseInt(c.Param("appID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return
	}

	view, err := h.query.GetProgress(c.Request.Context(), appID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ProgressHandler) SyncForCall(c *gin.Context) {
	callID, err := strconv.ParseInt(c.Param("callID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
		return
	}

	created, err := h.initializer.SyncForCall(c.Request.Context(), callID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"created": created})
}
