package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"recruitflow/internal/handler"
	"recruitflow/pkg/rbac"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Milestone *handler.MilestoneHandler
	Progress  *handler.ProgressHandler
	Review    *handler.ReviewHandler
	Outbox    *handler.OutboxHandler
}

// NewRouter wires the full HTTP surface.
func NewRouter(h Handlers, db *pgxpool.Pool, jwtSecret string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogger(logger))
	r.Use(MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)

	authed := r.Group("/", AuthMiddleware(jwtSecret))

	authed.POST("/calls/:callID/milestones",
		RequirePermission(rbac.PermissionCreateMilestone), h.Milestone.Create)
	authed.GET("/calls/:callID/milestones",
		RequirePermission(rbac.PermissionReadProgress), h.Milestone.ListByCall)

	authed.POST("/applications/:appID/progress",
		RequirePermission(rbac.PermissionInitProgress), h.Progress.Initialize)
	authed.GET("/applications/:appID/progress",
		RequirePermission(rbac.PermissionReadProgress), h.Progress.Get)
	authed.POST("/calls/:callID/progress/sync",
		RequirePermission(rbac.PermissionSyncProgress), h.Progress.SyncForCall)

	authed.POST("/progress/:id/review",
		RequirePermission(rbac.PermissionReviewMilestone), h.Review.Review)
	authed.POST("/progress/:id/complete",
		RequirePermission(rbac.PermissionReviewMilestone), h.Review.Complete)

	authed.GET("/admin/outbox/failed",
		RequirePermission(rbac.PermissionReplayOutbox), h.Outbox.ListFailed)
	authed.POST("/admin/outbox/:id/replay",
		RequirePermission(rbac.PermissionReplayOutbox), h.Outbox.Replay)
	authed.POST("/admin/outbox/replay-failed",
		RequirePermission(rbac.PermissionReplayOutbox), h.Outbox.ReplayFailed)

	return r
}
