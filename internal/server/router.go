package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quicklyapp/quickly-backend/internal/handlers"
	"github.com/quicklyapp/quickly-backend/internal/utils"
)

type RouterConfig struct {
	HealthcheckHandler *handlers.HealthcheckHandler
	FeedHandler        *handlers.FeedHandler
	FlashcardHandler   *handlers.FlashcardHandler
	QuizHandler        *handlers.QuizHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)

	api := router.Group("/api")
	{
		api.POST("/generateFeed", cfg.FeedHandler.Generate)
		api.GET("/feed", cfg.FeedHandler.List)
		api.POST("/flashcards", cfg.FlashcardHandler.Generate)
		api.POST("/quiz", cfg.QuizHandler.Generate)
	}

	return router
}

func allowedOrigins() []string {
	raw := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", nil)
	if raw == "" {
		return []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
