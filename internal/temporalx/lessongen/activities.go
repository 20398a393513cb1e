package lessongen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/gcs"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/rediscache"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/data/repos"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/modules/lesson"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/modules/study"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

// Activities carries the dependencies the chapter generation workflow runs
// against. Each activity is retried by Temporal's policy, so every one of
// them is safe to rerun.
type Activities struct {
	Log        *logger.Logger
	Lessons    *lesson.Service
	Study      *study.Generator
	Plans      repos.CoursePlanRepo
	Statuses   repos.ChapterStatusRepo
	Questions  repos.QuestionRepo
	Flashcards repos.FlashcardRepo
	Store      gcs.ObjectStore
	Cache      *rediscache.LessonCache
}

// LoadChapterLessons returns the ids of the chapter's lessons that still need
// generation, in plan order.
func (a *Activities) LoadChapterLessons(ctx context.Context, in ChapterGenerationInput) ([]string, error) {
	plan, err := a.Plans.Get(ctx, in.CourseID)
	if err != nil {
		return nil, err
	}
	chapter := plan.FindChapter(in.ChapterID)
	if chapter == nil {
		return nil, fmt.Errorf("chapter %s not found in course %s", in.ChapterID, in.CourseID)
	}

	var ids []string
	for _, l := range chapter.Lessons {
		if !l.Generated {
			ids = append(ids, l.ID)
		}
	}
	return ids, nil
}

func (a *Activities) SetChapterStatus(ctx context.Context, in ChapterGenerationInput, status string) error {
	return a.Statuses.SetChapterStatus(ctx, in.CourseID, in.ChapterID, status)
}

func (a *Activities) SetLessonStatus(ctx context.Context, in ChapterGenerationInput, lessonID, status string) error {
	return a.Statuses.SetLessonStatus(ctx, in.CourseID, in.ChapterID, lessonID, status)
}

// GenerateLesson runs the full lesson generation task for one lesson and
// persists the assembled document. Rerunning it overwrites the previous
// document for the same key.
func (a *Activities) GenerateLesson(ctx context.Context, in ChapterGenerationInput, lessonID string) (GenerateLessonResult, error) {
	var res GenerateLessonResult

	stop := startHeartbeat(ctx)
	defer stop()

	plan, err := a.Plans.Get(ctx, in.CourseID)
	if err != nil {
		return res, err
	}

	out, err := a.Lessons.Run(ctx, plan, in.ChapterID, lessonID)
	if err != nil {
		return res, fmt.Errorf("generate lesson %s: %w", lessonID, err)
	}

	sections := a.Lessons.RepairMarkdown(ctx, out.Sections)
	markdown := lesson.AssembleSections(sections)
	if strings.TrimSpace(markdown) == "" {
		return res, fmt.Errorf("lesson %s generated no content", lessonID)
	}

	key := gcs.LessonObjectKey(in.CourseID, in.ChapterID, lessonID)
	if err := a.Store.Put(ctx, key, []byte(markdown)); err != nil {
		return res, fmt.Errorf("store lesson %s: %w", lessonID, err)
	}
	a.Cache.SetMarkdown(ctx, in.CourseID, in.ChapterID, lessonID, markdown)

	res.ObjectKey = key
	res.Sections = len(sections)
	res.WordCount = len(strings.Fields(markdown))
	return res, nil
}

// GenerateStudyMaterials builds and persists the question and flashcard sets
// from the stored lesson document. An empty set from the generator means the
// generation failed its validation budget; the error lets Temporal retry the
// whole step.
func (a *Activities) GenerateStudyMaterials(ctx context.Context, in ChapterGenerationInput, lessonID string) error {
	stop := startHeartbeat(ctx)
	defer stop()

	key := gcs.LessonObjectKey(in.CourseID, in.ChapterID, lessonID)
	data, err := a.Store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load lesson %s for study materials: %w", lessonID, err)
	}
	markdown := string(data)

	questions := a.Study.GenerateQuestions(ctx, markdown)
	if len(questions) == 0 {
		return fmt.Errorf("question generation for lesson %s produced no valid questions", lessonID)
	}
	if err := a.Questions.Replace(ctx, in.CourseID, in.ChapterID, lessonID, questions); err != nil {
		return fmt.Errorf("persist questions for lesson %s: %w", lessonID, err)
	}

	flashcards := a.Study.GenerateFlashcards(ctx, markdown)
	if len(flashcards) == 0 {
		return fmt.Errorf("flashcard generation for lesson %s produced no valid cards", lessonID)
	}
	if err := a.Flashcards.Replace(ctx, in.CourseID, in.ChapterID, lessonID, flashcards); err != nil {
		return fmt.Errorf("persist flashcards for lesson %s: %w", lessonID, err)
	}
	return nil
}

func (a *Activities) MarkLessonGenerated(ctx context.Context, in ChapterGenerationInput, lessonID string) error {
	return a.Plans.MarkLessonGenerated(ctx, in.CourseID, in.ChapterID, lessonID)
}

// startHeartbeat keeps a long-running activity alive against its heartbeat
// timeout until the returned stop func is called.
func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
