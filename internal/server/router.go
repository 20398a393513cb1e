package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/handlers"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware        *middleware.AuthMiddleware
	CoursePlanHandler     *handlers.CoursePlanHandler
	GenerationHandler     *handlers.GenerationHandler
	LessonContentHandler  *handlers.LessonContentHandler
	StudyMaterialsHandler *handlers.StudyMaterialsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	courses := api.Group("/courses/:courseID")
	courses.PUT("/plan", cfg.CoursePlanHandler.UpsertPlan)
	courses.GET("/plan", cfg.CoursePlanHandler.GetPlan)

	chapters := courses.Group("/chapters/:chapterID")
	chapters.POST("/generate", cfg.GenerationHandler.GenerateChapter)
	chapters.GET("/status", cfg.GenerationHandler.GetChapterStatus)

	lessons := chapters.Group("/lessons/:lessonID")
	lessons.GET("/content", cfg.LessonContentHandler.GetContent)
	lessons.GET("/questions", cfg.StudyMaterialsHandler.GetQuestions)
	lessons.GET("/flashcards", cfg.StudyMaterialsHandler.GetFlashcards)

	return router
}
