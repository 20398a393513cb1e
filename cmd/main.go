package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/gcs"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/rediscache"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/data/db"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/data/repos"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/handlers"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/middleware"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/modules/lesson"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/modules/study"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/server"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/temporalx"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/temporalx/lessongen"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/temporalx/lessonworker"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/utils"
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
	log.Info("Setting up repos from main...")
	planRepo := repos.NewCoursePlanRepo(thePG, log)
	statusRepo := repos.NewChapterStatusRepo(thePG, log)
	questionRepo := repos.NewQuestionRepo(thePG, log)
	flashcardRepo := repos.NewFlashcardRepo(thePG, log)

	// Clients
	log.Info("Setting up clients from main...")
	llmClient, err := llm.NewClient(log)
	if err != nil {
		log.Error("Could not init LLM client", "error", err)
		os.Exit(1)
	}
	bucketService, err := gcs.NewBucketService(log)
	if err != nil {
		log.Error("Could not init bucket service", "error", err)
		os.Exit(1)
	}
	lessonCache, err := rediscache.NewLessonCache(log)
	if err != nil {
		log.Warn("Could not init lesson cache; continuing without it", "error", err)
		lessonCache = nil
	}

	// Services
	log.Info("Setting up services from main...")
	lessonService := lesson.NewService(log, llmClient, lesson.DefaultConfig())
	studyGenerator := study.NewGenerator(log, llmClient, study.DefaultConfig())

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Could not init Temporal client", "error", err)
		os.Exit(1)
	}
	if temporalClient != nil {
		defer temporalClient.Close()

		activities := &lessongen.Activities{
			Log:        log,
			Lessons:    lessonService,
			Study:      studyGenerator,
			Plans:      planRepo,
			Statuses:   statusRepo,
			Questions:  questionRepo,
			Flashcards: flashcardRepo,
			Store:      bucketService,
			Cache:      lessonCache,
		}
		runner, err := lessonworker.NewRunner(log, temporalClient, activities)
		if err != nil {
			log.Error("Could not init Temporal worker", "error", err)
			os.Exit(1)
		}
		if err := runner.Start(context.Background()); err != nil {
			log.Error("Could not start Temporal worker", "error", err)
			os.Exit(1)
		}
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	coursePlanHandler := handlers.NewCoursePlanHandler(planRepo)
	generationHandler := handlers.NewGenerationHandler(log, temporalClient, planRepo, statusRepo)
	lessonContentHandler := handlers.NewLessonContentHandler(bucketService, lessonCache)
	studyMaterialsHandler := handlers.NewStudyMaterialsHandler(questionRepo, flashcardRepo)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:        authMiddleware,
		CoursePlanHandler:     coursePlanHandler,
		GenerationHandler:     generationHandler,
		LessonContentHandler:  lessonContentHandler,
		StudyMaterialsHandler: studyMaterialsHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
