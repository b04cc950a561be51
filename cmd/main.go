package main

import (
	"fmt"
	"os"
	"time"

	"github.com/quicklyapp/quickly-backend/internal/clients/gcp"
	"github.com/quicklyapp/quickly-backend/internal/clients/gcptts"
	"github.com/quicklyapp/quickly-backend/internal/clients/openai"
	"github.com/quicklyapp/quickly-backend/internal/clients/pexels"
	"github.com/quicklyapp/quickly-backend/internal/clients/redis"
	"github.com/quicklyapp/quickly-backend/internal/clients/unsplash"
	"github.com/quicklyapp/quickly-backend/internal/db"
	"github.com/quicklyapp/quickly-backend/internal/handlers"
	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/repos"
	"github.com/quicklyapp/quickly-backend/internal/server"
	"github.com/quicklyapp/quickly-backend/internal/services"
	"github.com/quicklyapp/quickly-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)
	feedConcurrency := utils.GetEnvAsInt("FEED_CONCURRENCY", 4, log)
	feedCacheTTL := utils.GetEnvAsInt("FEED_CACHE_TTL", 3600, log)
	feedDefaultCount := utils.GetEnvAsInt("FEED_DEFAULT_COUNT", 5, log)
	providerTimeout := utils.GetEnvAsInt("PROVIDER_TIMEOUT", 30, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	postRepo := repos.NewPostRepo(thePG, log)
	flashcardSetRepo := repos.NewFlashcardSetRepo(thePG, log)
	queryLogRepo := repos.NewQueryLogRepo(thePG, log)

	// Cache
	var cache services.Cache
	if os.Getenv("REDIS_ADDR") != "" {
		redisCache, err := redis.NewCache(log)
		if err != nil {
			log.Error("Could not init redis cache", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		cache = redisCache
	} else {
		log.Warn("REDIS_ADDR not set, using in-process cache")
		cache = services.NewMemoryCache()
	}

	// Clients
	log.Info("Setting up Clients from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	defer bucketService.Close()

	attemptTimeout := time.Duration(providerTimeout) * time.Second
	imageProviders := []services.AssetProvider{}
	if pexelsClient, err := pexels.NewClient(log); err != nil {
		log.Warn("Pexels unavailable, skipping", "error", err)
	} else {
		imageProviders = append(imageProviders, services.NewPexelsImageProvider(pexelsClient))
	}
	if unsplashClient, err := unsplash.NewClient(log); err != nil {
		log.Warn("Unsplash unavailable, skipping", "error", err)
	} else {
		imageProviders = append(imageProviders, services.NewUnsplashImageProvider(unsplashClient))
	}
	imageProviders = append(imageProviders, services.NewOpenAIImageProvider(openaiClient))
	imageResolver := services.NewFallbackResolver(log, "image", attemptTimeout, imageProviders...)

	speechProviders := []services.AssetProvider{services.NewOpenAISpeechProvider(openaiClient)}
	if ttsClient, err := gcptts.NewClient(log); err != nil {
		log.Warn("GCP text-to-speech unavailable, skipping", "error", err)
	} else {
		defer ttsClient.Close()
		speechProviders = append(speechProviders, services.NewGcpSpeechProvider(ttsClient))
	}
	speechResolver := services.NewFallbackResolver(log, "speech", attemptTimeout, speechProviders...)

	// Services
	log.Info("Setting up Services from main...")
	assetService, err := services.NewAssetService(log, bucketService)
	if err != nil {
		log.Error("Could not init AssetService", "error", err)
		os.Exit(1)
	}
	plannerService, err := services.NewPlannerService(log, openaiClient)
	if err != nil {
		log.Error("Could not init PlannerService", "error", err)
		os.Exit(1)
	}
	narrationService, err := services.NewNarrationService(log, speechResolver, assetService)
	if err != nil {
		log.Error("Could not init NarrationService", "error", err)
		os.Exit(1)
	}
	feedService, err := services.NewFeedService(
		log,
		plannerService,
		imageResolver,
		assetService,
		narrationService,
		cache,
		postRepo,
		queryLogRepo,
		services.FeedConfig{
			DefaultCount: feedDefaultCount,
			Concurrency:  feedConcurrency,
			CacheTTL:     time.Duration(feedCacheTTL) * time.Second,
		},
	)
	if err != nil {
		log.Error("Could not init FeedService", "error", err)
		os.Exit(1)
	}
	listingService, err := services.NewListingService(log, postRepo, cache)
	if err != nil {
		log.Error("Could not init ListingService", "error", err)
		os.Exit(1)
	}
	flashcardService, err := services.NewFlashcardService(log, openaiClient, flashcardSetRepo, queryLogRepo)
	if err != nil {
		log.Error("Could not init FlashcardService", "error", err)
		os.Exit(1)
	}
	quizService, err := services.NewQuizService(log, openaiClient, queryLogRepo)
	if err != nil {
		log.Error("Could not init QuizService", "error", err)
		os.Exit(1)
	}

	// Handlers
	log.Info("Setting up Handlers from main...")
	router := server.NewRouter(server.RouterConfig{
		HealthcheckHandler: handlers.NewHealthcheckHandler(),
		FeedHandler:        handlers.NewFeedHandler(feedService, listingService),
		FlashcardHandler:   handlers.NewFlashcardHandler(flashcardService),
		QuizHandler:        handlers.NewQuizHandler(quizService),
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
