package submissions

import (
	"github.com/classpod/core/internal/middleware"
	"github.com/classpod/core/internal/models"
	"github.com/classpod/core/internal/modules/authz"
	"github.com/classpod/core/internal/pkg/pagination"
	"github.com/classpod/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler serves the instructor review API.
type Handler struct {
	db     *gorm.DB
	scopes ScopeChecker
}

func NewHandler(db *gorm.DB, scopes ScopeChecker) *Handler {
	return &Handler{db: db, scopes: scopes}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/submissions")
	g.GET("", authMW, h.list)
}

// list returns the submission history for one activity, newest first.
// Requires the activity:view scope for the classroom owning the activity.
func (h *Handler) list(c *gin.Context) {
	activityID := c.Query("activity_id")
	if activityID == "" {
		response.BadRequest(c, "activity_id is required")
		return
	}

	var acts []models.ActivityModel
	if err := h.db.Where("id = ?", activityID).Limit(1).Find(&acts).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	if len(acts) == 0 {
		response.NotFoundMsg(c, "activity not found")
		return
	}

	userID := middleware.CurrentUserID(c)
	ok, err := h.scopes.Allows(c.Request.Context(), userID, authz.ScopeActivityView, acts[0].ClassroomID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !ok {
		response.Forbidden(c)
		return
	}

	q := pagination.FromContext(c)
	tx := h.db.Model(&models.SubmissionModel{}).
		Where("activity_id = ?", activityID).
		Order("created_at DESC")
	if user := c.Query("user_id"); user != "" {
		tx = tx.Where("user_id = ?", user)
	}

	var rows []models.SubmissionModel
	pag, err := pagination.Paginate(tx.Preload("User"), q, &rows)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, pag)
}
