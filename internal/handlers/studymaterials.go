package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/data/repos"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
)

type StudyMaterialsHandler struct {
	questions  repos.QuestionRepo
	flashcards repos.FlashcardRepo
}

func NewStudyMaterialsHandler(questions repos.QuestionRepo, flashcards repos.FlashcardRepo) *StudyMaterialsHandler {
	return &StudyMaterialsHandler{questions: questions, flashcards: flashcards}
}

// GET /api/courses/:courseID/chapters/:chapterID/lessons/:lessonID/questions
func (h *StudyMaterialsHandler) GetQuestions(c *gin.Context) {
	questions, err := h.questions.GetByLesson(c.Request.Context(), c.Param("courseID"), c.Param("chapterID"), c.Param("lessonID"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "questions not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// GET /api/courses/:courseID/chapters/:chapterID/lessons/:lessonID/flashcards
func (h *StudyMaterialsHandler) GetFlashcards(c *gin.Context) {
	flashcards, err := h.flashcards.GetByLesson(c.Request.Context(), c.Param("courseID"), c.Param("chapterID"), c.Param("lessonID"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "flashcards not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flashcards": flashcards})
}
