package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/gcs"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/rediscache"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
)

type LessonContentHandler struct {
	store gcs.ObjectStore
	cache *rediscache.LessonCache
}

func NewLessonContentHandler(store gcs.ObjectStore, cache *rediscache.LessonCache) *LessonContentHandler {
	return &LessonContentHandler{store: store, cache: cache}
}

// GET /api/courses/:courseID/chapters/:chapterID/lessons/:lessonID/content
func (h *LessonContentHandler) GetContent(c *gin.Context) {
	courseID := c.Param("courseID")
	chapterID := c.Param("chapterID")
	lessonID := c.Param("lessonID")

	if markdown, ok := h.cache.GetMarkdown(c.Request.Context(), courseID, chapterID, lessonID); ok {
		c.JSON(http.StatusOK, gin.H{"markdown": markdown})
		return
	}

	data, err := h.store.Get(c.Request.Context(), gcs.LessonObjectKey(courseID, chapterID, lessonID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson content not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	markdown := string(data)
	h.cache.SetMarkdown(c.Request.Context(), courseID, chapterID, lessonID, markdown)
	c.JSON(http.StatusOK, gin.H{"markdown": markdown})
}
