package main

import (
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"civicgrid-be/config"
	"civicgrid-be/controllers"
	"civicgrid-be/normalize"
	"civicgrid-be/routes"
	"civicgrid-be/store"
)

func main() {
	log.SetHandler(text.New(os.Stderr))
	log.SetLevel(log.InfoLevel)
	logger := log.Log

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	client, db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	logger.Info("MongoDB connection established successfully!")

	rdb, err := config.ConnectRedis(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	logger.Info("Connected to Redis")

	st := store.NewMongoStore(client, db, logger)
	norm := normalize.New(normalize.NewVaderScorer(), cfg.SentimentTimeout)

	issueController := controllers.NewIssueController(st, norm, logger, cfg)
	apiController := controllers.NewAPIController(st, logger, cfg)
	authController := controllers.NewAuthController(st, logger, cfg)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	routes.AuthRoutes(r, authController, cfg)
	routes.IssueRoutes(r, issueController, rdb, cfg)
	routes.AdminRoutes(r, issueController, cfg)
	routes.APIRoutes(r, apiController, cfg)

	r.Static("/media", cfg.MediaDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}
