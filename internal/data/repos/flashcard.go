package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

type FlashcardRepo interface {
	Replace(ctx context.Context, courseID, chapterID, lessonID string, cards []domain.Flashcard) error
	GetByLesson(ctx context.Context, courseID, chapterID, lessonID string) ([]domain.Flashcard, error)
}

type flashcardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardRepo {
	return &flashcardRepo{db: db, log: baseLog.With("repo", "FlashcardRepo")}
}

func (r *flashcardRepo) Replace(ctx context.Context, courseID, chapterID, lessonID string, cards []domain.Flashcard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("course_id = ? AND chapter_id = ? AND lesson_id = ?", courseID, chapterID, lessonID).
			Delete(&domain.FlashcardRecord{}).Error; err != nil {
			return err
		}
		if len(cards) == 0 {
			return nil
		}

		recs := make([]domain.FlashcardRecord, 0, len(cards))
		for i, card := range cards {
			recs = append(recs, domain.FlashcardRecord{
				ID:         uuid.New(),
				CourseID:   courseID,
				ChapterID:  chapterID,
				LessonID:   lessonID,
				CardNumber: i + 1,
				Question:   card.Question,
				Answer:     card.Answer,
			})
		}
		return tx.Create(&recs).Error
	})
}

func (r *flashcardRepo) GetByLesson(ctx context.Context, courseID, chapterID, lessonID string) ([]domain.Flashcard, error) {
	var recs []domain.FlashcardRecord
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND chapter_id = ? AND lesson_id = ?", courseID, chapterID, lessonID).
		Order("card_number ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("flashcards for lesson %s/%s/%s: %w", courseID, chapterID, lessonID, apperrors.ErrNotFound)
	}

	out := make([]domain.Flashcard, 0, len(recs))
	for _, rec := range recs {
		out = append(out, domain.Flashcard{Question: rec.Question, Answer: rec.Answer})
	}
	return out, nil
}
