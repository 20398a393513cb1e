package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/data/repos"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/middleware"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
)

type CoursePlanHandler struct {
	plans repos.CoursePlanRepo
}

func NewCoursePlanHandler(plans repos.CoursePlanRepo) *CoursePlanHandler {
	return &CoursePlanHandler{plans: plans}
}

// PUT /api/courses/:courseID/plan
func (h *CoursePlanHandler) UpsertPlan(c *gin.Context) {
	var plan domain.CoursePlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course plan payload"})
		return
	}
	plan.CourseID = c.Param("courseID")
	plan.UserID = c.GetString(middleware.ContextUserIDKey)

	if err := h.plans.Upsert(c.Request.Context(), &plan); err != nil {
		if errors.Is(err, apperrors.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_id": plan.CourseID})
}

// GET /api/courses/:courseID/plan
func (h *CoursePlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("courseID"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "course plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}
