package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"civicgrid-be/config"
	"civicgrid-be/controllers"
	"civicgrid-be/middlewares"
)

// IssueRoutes sets up the report form and the owner-restricted issue routes.
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, rdb *redis.Client, cfg *config.Config) {
	auth := middlewares.AuthMiddleware(cfg.JWTSecret)

	r.POST("/report", auth, middlewares.IssueRateLimiter(rdb, cfg.ReportDailyLimit), ic.ReportIssue)

	profile := r.Group("/profile", auth)
	{
		profile.POST("/issue/:id/status/update", ic.UpdateIssueStatus)
		profile.POST("/issue/:id/delete", ic.DeleteIssue)
	}
}
