package main

import (
	"fmt"
	"os"
	"time"

	"github.com/classtrack/schoolsync-backend/internal/cache"
	"github.com/classtrack/schoolsync-backend/internal/db"
	"github.com/classtrack/schoolsync-backend/internal/deltas"
	"github.com/classtrack/schoolsync-backend/internal/handlers"
	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/middleware"
	"github.com/classtrack/schoolsync-backend/internal/mirror"
	"github.com/classtrack/schoolsync-backend/internal/repos"
	"github.com/classtrack/schoolsync-backend/internal/server"
	"github.com/classtrack/schoolsync-backend/internal/services"
	"github.com/classtrack/schoolsync-backend/internal/syncer"
	"github.com/classtrack/schoolsync-backend/internal/utils"
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
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	mappingPath := utils.GetEnv("MAPPING_SPEC_PATH", "", log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
	redisDB := utils.GetEnvAsInt("REDIS_DB", 0, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	staffRepo := repos.NewStaffRepo(thePG, log)
	gradebookRepo := repos.NewGradebookRepo(thePG, log)
	deltaRepo := repos.NewDeltaRepo(thePG, log)
	actionRepo := repos.NewActionRecordRepo(thePG, log)
	syncRunRepo := repos.NewSyncRunRepo(thePG, log)

	// Cache
	redisCache := cache.New(redisAddr, redisPassword, redisDB, log)

	// Sync pipeline
	log.Info("Setting up sync pipeline from main...")
	specs := syncer.DefaultSpecs()
	if mappingPath != "" {
		specs, err = syncer.LoadSpecs(mappingPath)
		if err != nil {
			log.Error("Could not load mapping specs", "error", err, "path", mappingPath)
			os.Exit(1)
		}
	}
	store := syncer.NewGormStore(thePG, log)
	source := mirror.NewIlluminateAdapter(thePG, log)
	orchestrator := syncer.NewOrchestrator(store, source, specs, log)
	engine := deltas.NewEngine(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(thePG, log, staffRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	syncService := services.NewSyncService(thePG, log, orchestrator, syncRunRepo)
	deltaService := services.NewDeltaService(thePG, log, engine, deltaRepo, gradebookRepo, redisCache)
	actionService := services.NewActionService(thePG, log, actionRepo, deltaRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(log, authService)
	missingHandler := handlers.NewMissingHandler(log, deltaService)
	deltaHandler := handlers.NewDeltaHandler(log, deltaService)
	actionHandler := handlers.NewActionHandler(log, actionService)
	syncHandler := handlers.NewSyncHandler(log, syncService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		MissingHandler: missingHandler,
		DeltaHandler:   deltaHandler,
		ActionHandler:  actionHandler,
		SyncHandler:    syncHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
