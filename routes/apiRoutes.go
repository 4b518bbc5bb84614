package routes

import (
	"github.com/gin-gonic/gin"

	"civicgrid-be/config"
	"civicgrid-be/controllers"
	"civicgrid-be/middlewares"
)

// APIRoutes sets up the JSON feed routes. Whether the heatmap feed requires
// authentication is a deployment decision carried by cfg.PublicMapAPI.
func APIRoutes(r *gin.Engine, ac *controllers.APIController, cfg *config.Config) {
	auth := middlewares.AuthMiddleware(cfg.JWTSecret)

	api := r.Group("/api")
	{
		if cfg.PublicMapAPI {
			api.GET("/issue-data", ac.IssueData)
		} else {
			api.GET("/issue-data", auth, ac.IssueData)
		}
		api.GET("/recent-issues", auth, ac.RecentIssues)
		api.GET("/issue-detail/:id", auth, ac.IssueDetail)
	}
}
