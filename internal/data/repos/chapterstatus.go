package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

// ChapterStatus is the decoded form of a ChapterStatusRecord.
type ChapterStatus struct {
	CourseID     string            `json:"course_id"`
	ChapterID    string            `json:"chapter_id"`
	Status       string            `json:"status"`
	LessonStatus map[string]string `json:"lesson_status"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type ChapterStatusRepo interface {
	SetChapterStatus(ctx context.Context, courseID, chapterID, status string) error
	SetLessonStatus(ctx context.Context, courseID, chapterID, lessonID, status string) error
	Get(ctx context.Context, courseID, chapterID string) (*ChapterStatus, error)
}

type chapterStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChapterStatusRepo(db *gorm.DB, baseLog *logger.Logger) ChapterStatusRepo {
	return &chapterStatusRepo{db: db, log: baseLog.With("repo", "ChapterStatusRepo")}
}

func (r *chapterStatusRepo) SetChapterStatus(ctx context.Context, courseID, chapterID, status string) error {
	rec := domain.ChapterStatusRecord{
		CourseID:  courseID,
		ChapterID: chapterID,
		Status:    status,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&rec).Error
}

func (r *chapterStatusRepo) SetLessonStatus(ctx context.Context, courseID, chapterID, lessonID, status string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.ChapterStatusRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "course_id = ? AND chapter_id = ?", courseID, chapterID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		statuses := map[string]string{}
		if len(rec.LessonStatus) > 0 {
			if err := json.Unmarshal(rec.LessonStatus, &statuses); err != nil {
				return fmt.Errorf("unmarshal lesson statuses for %s/%s: %w", courseID, chapterID, err)
			}
		}
		statuses[lessonID] = status
		raw, err := json.Marshal(statuses)
		if err != nil {
			return err
		}

		rec.CourseID = courseID
		rec.ChapterID = chapterID
		rec.LessonStatus = datatypes.JSON(raw)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lesson_status", "updated_at"}),
		}).Create(&rec).Error
	})
}

func (r *chapterStatusRepo) Get(ctx context.Context, courseID, chapterID string) (*ChapterStatus, error) {
	var rec domain.ChapterStatusRecord
	if err := r.db.WithContext(ctx).
		First(&rec, "course_id = ? AND chapter_id = ?", courseID, chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chapter status %s/%s: %w", courseID, chapterID, apperrors.ErrNotFound)
		}
		return nil, err
	}

	out := &ChapterStatus{
		CourseID:     rec.CourseID,
		ChapterID:    rec.ChapterID,
		Status:       rec.Status,
		LessonStatus: map[string]string{},
		UpdatedAt:    rec.UpdatedAt,
	}
	if len(rec.LessonStatus) > 0 {
		if err := json.Unmarshal(rec.LessonStatus, &out.LessonStatus); err != nil {
			return nil, fmt.Errorf("unmarshal lesson statuses for %s/%s: %w", courseID, chapterID, err)
		}
	}
	return out, nil
}
