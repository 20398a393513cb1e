package domain

// CoursePlan is the generated outline of a full course: ordered chapters,
// each with ordered lessons. The lesson orchestrator consumes it read-only
// except for the per-lesson Generated flag.
type CoursePlan struct {
	CourseID    string    `json:"course_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Chapters    []Chapter `json:"chapters"`
}

type Chapter struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lessons     []Lesson `json:"lessons"`
}

type Lesson struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics,omitempty"`
	Generated   bool     `json:"generated"`
}

// FindChapter returns the chapter with the given id, or nil.
func (p *CoursePlan) FindChapter(chapterID string) *Chapter {
	if p == nil {
		return nil
	}
	for i := range p.Chapters {
		if p.Chapters[i].ID == chapterID {
			return &p.Chapters[i]
		}
	}
	return nil
}

// FindLesson returns the lesson with the given id within a chapter, or nil.
func (c *Chapter) FindLesson(lessonID string) *Lesson {
	if c == nil {
		return nil
	}
	for i := range c.Lessons {
		if c.Lessons[i].ID == lessonID {
			return &c.Lessons[i]
		}
	}
	return nil
}

// Question is one validated multiple-choice question generated from lesson
// content.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// Flashcard is one validated question/answer study card.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
