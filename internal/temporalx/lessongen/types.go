package lessongen

const (
	// WorkflowName is the registered name of the chapter generation workflow.
	WorkflowName = "ChapterGenerationWorkflow"

	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type ChapterGenerationInput struct {
	CourseID  string `json:"course_id"`
	ChapterID string `json:"chapter_id"`
}

type ChapterGenerationResult struct {
	CourseID         string   `json:"course_id"`
	ChapterID        string   `json:"chapter_id"`
	LessonsGenerated int      `json:"lessons_generated"`
	FailedLessons    []string `json:"failed_lessons,omitempty"`
}

type GenerateLessonResult struct {
	ObjectKey string `json:"object_key"`
	Sections  int    `json:"sections"`
	WordCount int    `json:"word_count"`
}
