package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CoursePlanRecord is the stored form of a course plan. The plan document is
// kept as one JSON blob; the orchestrator never queries inside it.
type CoursePlanRecord struct {
	CourseID  string         `gorm:"primaryKey;column:course_id"`
	UserID    string         `gorm:"index;column:user_id"`
	Plan      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CoursePlanRecord) TableName() string { return "course_plans" }

// ChapterStatusRecord tracks generation progress for one (course, chapter)
// pair. LessonStatus maps lesson id to a status string.
type ChapterStatusRecord struct {
	CourseID     string         `gorm:"primaryKey;column:course_id"`
	ChapterID    string         `gorm:"primaryKey;column:chapter_id"`
	Status       string         `gorm:"column:status"`
	LessonStatus datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt    time.Time
}

func (ChapterStatusRecord) TableName() string { return "chapter_statuses" }

type QuestionRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CourseID    string         `gorm:"index:idx_question_lesson;column:course_id"`
	ChapterID   string         `gorm:"index:idx_question_lesson;column:chapter_id"`
	LessonID    string         `gorm:"index:idx_question_lesson;column:lesson_id"`
	Position    int            `gorm:"column:position"`
	Question    string         `gorm:"column:question"`
	Options     datatypes.JSON `gorm:"type:jsonb"`
	Answer      string         `gorm:"column:answer"`
	Explanation string         `gorm:"column:explanation"`
	CreatedAt   time.Time
}

func (QuestionRecord) TableName() string { return "lesson_questions" }

type FlashcardRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID   string    `gorm:"index:idx_flashcard_lesson;column:course_id"`
	ChapterID  string    `gorm:"index:idx_flashcard_lesson;column:chapter_id"`
	LessonID   string    `gorm:"index:idx_flashcard_lesson;column:lesson_id"`
	CardNumber int       `gorm:"column:card_number"`
	Question   string    `gorm:"column:question"`
	Answer     string    `gorm:"column:answer"`
	CreatedAt  time.Time
}

func (FlashcardRecord) TableName() string { return "lesson_flashcards" }
