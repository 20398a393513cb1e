package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/data/repos"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/temporalx"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/temporalx/lessongen"
)

type GenerationHandler struct {
	log      *logger.Logger
	tc       temporalsdkclient.Client
	plans    repos.CoursePlanRepo
	statuses repos.ChapterStatusRepo
}

func NewGenerationHandler(log *logger.Logger, tc temporalsdkclient.Client, plans repos.CoursePlanRepo, statuses repos.ChapterStatusRepo) *GenerationHandler {
	return &GenerationHandler{
		log:      log.With("handler", "GenerationHandler"),
		tc:       tc,
		plans:    plans,
		statuses: statuses,
	}
}

func chapterWorkflowID(courseID, chapterID string) string {
	return fmt.Sprintf("lessongen-%s-%s", courseID, chapterID)
}

// POST /api/courses/:courseID/chapters/:chapterID/generate
func (h *GenerationHandler) GenerateChapter(c *gin.Context) {
	if h.tc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chapter generation is not available"})
		return
	}
	courseID := c.Param("courseID")
	chapterID := c.Param("chapterID")

	plan, err := h.plans.Get(c.Request.Context(), courseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "course plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if plan.FindChapter(chapterID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}

	cfg := temporalx.LoadConfig()
	run, err := h.tc.ExecuteWorkflow(c.Request.Context(), temporalsdkclient.StartWorkflowOptions{
		ID:                    chapterWorkflowID(courseID, chapterID),
		TaskQueue:             cfg.TaskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}, lessongen.WorkflowName, lessongen.ChapterGenerationInput{
		CourseID:  courseID,
		ChapterID: chapterID,
	})
	if err != nil {
		h.log.Error("Failed to start chapter generation workflow", "course_id", courseID, "chapter_id", chapterID, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": "chapter generation could not be started"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})
}

// GET /api/courses/:courseID/chapters/:chapterID/status
func (h *GenerationHandler) GetChapterStatus(c *gin.Context) {
	status, err := h.statuses.Get(c.Request.Context(), c.Param("courseID"), c.Param("chapterID"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chapter status not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}
