package routes

import (
	"github.com/gin-gonic/gin"

	"civicgrid-be/config"
	"civicgrid-be/controllers"
	"civicgrid-be/middlewares"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, ac *controllers.AuthController, cfg *config.Config) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", ac.RegisterUser)
		auth.POST("/login", ac.LoginUser)
		auth.POST("/logout", ac.LogoutUser)
		auth.GET("/me", middlewares.AuthMiddleware(cfg.JWTSecret), ac.GetMe)
	}
}
