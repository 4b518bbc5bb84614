package routes

import (
	"github.com/gin-gonic/gin"

	"civicgrid-be/config"
	"civicgrid-be/controllers"
	"civicgrid-be/middlewares"
)

// AdminRoutes sets up the staff-only issue routes.
func AdminRoutes(r *gin.Engine, ic *controllers.IssueController, cfg *config.Config) {
	admin := r.Group("/admin", middlewares.AuthMiddleware(cfg.JWTSecret), middlewares.StaffOnly())
	{
		admin.POST("/issues/:id/status/update", ic.AdminUpdateIssueStatus)
	}
}
