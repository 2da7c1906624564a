package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/model"
	"recruitflow/internal/service/milestone"
)

type MilestoneHandler struct {
	svc    *milestone.Service
	logger *zap.Logger
}

func NewMilestoneHandler(svc *milestone.Service, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{svc: svc, logger: logger}
}

type createMilestoneRequest struct {
	Name       string   `json:"name" binding:"required"`
	OrderIndex int      `json:"order_index" binding:"required,min=1"`
	Required   *bool    `json:"required"`
	WhoCanFill []string `json:"who_can_fill"`
	Status     string   `json:"status"`
	FormID     *int64   `json:"form_id"`
}

func (h *MilestoneHandler) Create(c *gin.Context) {
	callID, err := strconv.ParseInt(c.Param("callID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
		return
	}

	var req createMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	required := true
	if req.Required != nil {
		required = *req.Required
	}

	def, err := h.svc.Create(c.Request.Context(), milestone.CreateInput{
		CallID:     callID,
		Name:       req.Name,
		OrderIndex: req.OrderIndex,
		Required:   required,
		WhoCanFill: req.WhoCanFill,
		Status:     model.MilestoneStatus(req.Status),
		FormID:     req.FormID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, def)
}

func (h *MilestoneHandler) ListByCall(c *gin.Context) {
	callID, err := strconv.ParseInt(c.Param("callID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
		return
	}

	defs, err := h.svc.ListByCall(c.Request.Context(), callID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestones": defs})
}
