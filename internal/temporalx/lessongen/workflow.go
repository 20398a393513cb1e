package lessongen

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ChapterGenerationWorkflow generates every pending lesson in a chapter
// sequentially: generate and store the document, then build its study
// materials, then mark the lesson generated. One lesson failing does not
// stop the rest; the chapter ends failed if any lesson failed.
func ChapterGenerationWorkflow(ctx workflow.Context, in ChapterGenerationInput) (ChapterGenerationResult, error) {
	res := ChapterGenerationResult{CourseID: in.CourseID, ChapterID: in.ChapterID}
	log := workflow.GetLogger(ctx)

	var a *Activities

	statusCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    5,
		},
	})
	genCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	var lessonIDs []string
	if err := workflow.ExecuteActivity(statusCtx, a.LoadChapterLessons, in).Get(ctx, &lessonIDs); err != nil {
		return res, fmt.Errorf("load chapter lessons: %w", err)
	}
	if len(lessonIDs) == 0 {
		log.Info("No pending lessons in chapter", "course_id", in.CourseID, "chapter_id", in.ChapterID)
		_ = workflow.ExecuteActivity(statusCtx, a.SetChapterStatus, in, StatusCompleted).Get(ctx, nil)
		return res, nil
	}

	if err := workflow.ExecuteActivity(statusCtx, a.SetChapterStatus, in, StatusGenerating).Get(ctx, nil); err != nil {
		return res, fmt.Errorf("set chapter status: %w", err)
	}

	for _, lessonID := range lessonIDs {
		if err := generateOneLesson(genCtx, statusCtx, a, in, lessonID); err != nil {
			log.Error("Lesson generation failed", "lesson_id", lessonID, "error", err)
			res.FailedLessons = append(res.FailedLessons, lessonID)
			continue
		}
		res.LessonsGenerated++
	}

	final := StatusCompleted
	if len(res.FailedLessons) > 0 {
		final = StatusFailed
	}
	if err := workflow.ExecuteActivity(statusCtx, a.SetChapterStatus, in, final).Get(ctx, nil); err != nil {
		return res, fmt.Errorf("set final chapter status: %w", err)
	}

	if len(res.FailedLessons) > 0 {
		return res, fmt.Errorf("chapter generation finished with %d failed lessons", len(res.FailedLessons))
	}
	return res, nil
}

func generateOneLesson(genCtx, statusCtx workflow.Context, a *Activities, in ChapterGenerationInput, lessonID string) error {
	_ = workflow.ExecuteActivity(statusCtx, a.SetLessonStatus, in, lessonID, StatusGenerating).Get(statusCtx, nil)

	var genRes GenerateLessonResult
	if err := workflow.ExecuteActivity(genCtx, a.GenerateLesson, in, lessonID).Get(genCtx, &genRes); err != nil {
		_ = workflow.ExecuteActivity(statusCtx, a.SetLessonStatus, in, lessonID, StatusFailed).Get(statusCtx, nil)
		return err
	}

	if err := workflow.ExecuteActivity(genCtx, a.GenerateStudyMaterials, in, lessonID).Get(genCtx, nil); err != nil {
		_ = workflow.ExecuteActivity(statusCtx, a.SetLessonStatus, in, lessonID, StatusFailed).Get(statusCtx, nil)
		return err
	}

	if err := workflow.ExecuteActivity(statusCtx, a.MarkLessonGenerated, in, lessonID).Get(statusCtx, nil); err != nil {
		_ = workflow.ExecuteActivity(statusCtx, a.SetLessonStatus, in, lessonID, StatusFailed).Get(statusCtx, nil)
		return err
	}

	return workflow.ExecuteActivity(statusCtx, a.SetLessonStatus, in, lessonID, StatusCompleted).Get(statusCtx, nil)
}
