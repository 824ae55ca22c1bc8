package bridge

import (
	"github.com/classpod/core/internal/modules/rooms"
	"github.com/classpod/core/internal/modules/signaling"
	"github.com/classpod/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler is the trusted inbound surface the owning web application uses
// to push activity lifecycle events into a room. It performs no classroom
// membership check of its own: the internal-purpose token on the route is
// the whole trust decision, since the caller is a co-deployed process.
type Handler struct {
	rooms  *rooms.Manager
	logger *zap.Logger
}

func NewHandler(roomMgr *rooms.Manager, logger *zap.Logger) *Handler {
	return &Handler{rooms: roomMgr, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, internalMW gin.HandlerFunc) {
	g := r.Group("/internal", internalMW)
	g.POST("/:classroomId/activity", h.startActivity)
	g.DELETE("/:classroomId/activity", h.endActivity)
}

type startActivityDTO struct {
	ActivityID       string      `json:"activityId" binding:"required"`
	Info             interface{} `json:"info"`
	TopologyPolicyID string      `json:"topologyPolicyId"`
}

func (h *Handler) startActivity(c *gin.Context) {
	var dto startActivityDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	classroomID := c.Param("classroomId")
	kind := signaling.ParseKind(dto.TopologyPolicyID)

	room := h.rooms.GetOrCreate(classroomID)
	h.rooms.StartActivity(room, dto.ActivityID, dto.Info, kind)

	h.logger.Info("activity started",
		zap.String("classroom", classroomID),
		zap.String("activity", dto.ActivityID),
		zap.String("topology", string(kind)),
	)
	response.NoContent(c)
}

func (h *Handler) endActivity(c *gin.Context) {
	classroomID := c.Param("classroomId")
	room := h.rooms.GetOrCreate(classroomID)

	if !h.rooms.EndActivity(room) {
		response.NotFoundMsg(c, "no active activity")
		return
	}

	h.logger.Info("activity ended", zap.String("classroom", classroomID))
	response.NoContent(c)
}
