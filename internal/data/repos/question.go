package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

type QuestionRepo interface {
	// Replace swaps the lesson's full question set in one transaction.
	Replace(ctx context.Context, courseID, chapterID, lessonID string, questions []domain.Question) error
	GetByLesson(ctx context.Context, courseID, chapterID, lessonID string) ([]domain.Question, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) Replace(ctx context.Context, courseID, chapterID, lessonID string, questions []domain.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("course_id = ? AND chapter_id = ? AND lesson_id = ?", courseID, chapterID, lessonID).
			Delete(&domain.QuestionRecord{}).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}

		recs := make([]domain.QuestionRecord, 0, len(questions))
		for i, q := range questions {
			opts, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("marshal options for question %d: %w", i+1, err)
			}
			recs = append(recs, domain.QuestionRecord{
				ID:          uuid.New(),
				CourseID:    courseID,
				ChapterID:   chapterID,
				LessonID:    lessonID,
				Position:    i + 1,
				Question:    q.Question,
				Options:     datatypes.JSON(opts),
				Answer:      q.Answer,
				Explanation: q.Explanation,
			})
		}
		return tx.Create(&recs).Error
	})
}

func (r *questionRepo) GetByLesson(ctx context.Context, courseID, chapterID, lessonID string) ([]domain.Question, error) {
	var recs []domain.QuestionRecord
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND chapter_id = ? AND lesson_id = ?", courseID, chapterID, lessonID).
		Order("position ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("questions for lesson %s/%s/%s: %w", courseID, chapterID, lessonID, apperrors.ErrNotFound)
	}

	out := make([]domain.Question, 0, len(recs))
	for _, rec := range recs {
		var opts []string
		if err := json.Unmarshal(rec.Options, &opts); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %s: %w", rec.ID, err)
		}
		out = append(out, domain.Question{
			Question:    rec.Question,
			Options:     opts,
			Answer:      rec.Answer,
			Explanation: rec.Explanation,
		})
	}
	return out, nil
}
