package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

type CoursePlanRepo interface {
	Upsert(ctx context.Context, plan *domain.CoursePlan) error
	Get(ctx context.Context, courseID string) (*domain.CoursePlan, error)
	// MarkLessonGenerated flips the lesson's generated flag inside the stored
	// plan document. The plan, chapter, and lesson must already exist.
	MarkLessonGenerated(ctx context.Context, courseID, chapterID, lessonID string) error
}

type coursePlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCoursePlanRepo(db *gorm.DB, baseLog *logger.Logger) CoursePlanRepo {
	return &coursePlanRepo{db: db, log: baseLog.With("repo", "CoursePlanRepo")}
}

func (r *coursePlanRepo) Upsert(ctx context.Context, plan *domain.CoursePlan) error {
	if plan == nil || plan.CourseID == "" {
		return fmt.Errorf("course plan requires a course_id: %w", apperrors.ErrInvalidArgument)
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal course plan: %w", err)
	}
	rec := domain.CoursePlanRecord{
		CourseID: plan.CourseID,
		UserID:   plan.UserID,
		Plan:     datatypes.JSON(raw),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "plan", "updated_at"}),
		}).
		Create(&rec).Error
}

func (r *coursePlanRepo) Get(ctx context.Context, courseID string) (*domain.CoursePlan, error) {
	var rec domain.CoursePlanRecord
	if err := r.db.WithContext(ctx).First(&rec, "course_id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("course plan %s: %w", courseID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	var plan domain.CoursePlan
	if err := json.Unmarshal(rec.Plan, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal course plan %s: %w", courseID, err)
	}
	return &plan, nil
}

func (r *coursePlanRepo) MarkLessonGenerated(ctx context.Context, courseID, chapterID, lessonID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.CoursePlanRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "course_id = ?", courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("course plan %s: %w", courseID, apperrors.ErrNotFound)
			}
			return err
		}

		var plan domain.CoursePlan
		if err := json.Unmarshal(rec.Plan, &plan); err != nil {
			return fmt.Errorf("unmarshal course plan %s: %w", courseID, err)
		}
		chapter := plan.FindChapter(chapterID)
		if chapter == nil {
			return fmt.Errorf("chapter %s in course %s: %w", chapterID, courseID, apperrors.ErrNotFound)
		}
		lesson := chapter.FindLesson(lessonID)
		if lesson == nil {
			return fmt.Errorf("lesson %s in chapter %s: %w", lessonID, chapterID, apperrors.ErrNotFound)
		}
		lesson.Generated = true

		raw, err := json.Marshal(&plan)
		if err != nil {
			return fmt.Errorf("marshal course plan %s: %w", courseID, err)
		}
		return tx.Model(&domain.CoursePlanRecord{}).
			Where("course_id = ?", courseID).
			Update("plan", datatypes.JSON(raw)).Error
	})
}
