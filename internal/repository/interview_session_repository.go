package repository

import (
	"context"
	"errors"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InterviewSessionRepository struct {
	db *gorm.DB
}

func NewInterviewSessionRepository(db *gorm.DB) *InterviewSessionRepository {
	return &InterviewSessionRepository{db}
}

func (r *InterviewSessionRepository) Create(ctx context.Context, session *model.InterviewSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// Update writes the whole session guarded by its version column. A stale
// copy yields ErrVersionConflict and nothing is written.
func (r *InterviewSessionRepository) Update(ctx context.Context, session *model.InterviewSession) error {
	expected := session.Version
	res := r.db.WithContext(ctx).
		Model(&model.InterviewSession{}).
		Where("id = ? AND version = ?", session.ID, expected).
		Select("conversation", "status", "final_score", "feedback_summary", "feedback", "version", "updated_at").
		Updates(&model.InterviewSession{
			Conversation:    session.Conversation,
			Status:          session.Status,
			FinalScore:      session.FinalScore,
			FeedbackSummary: session.FeedbackSummary,
			Feedback:        session.Feedback,
			Version:         expected + 1,
			UpdatedAt:       session.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	session.Version = expected + 1
	return nil
}

func (r *InterviewSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error) {
	var session model.InterviewSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
