package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobPostingRepository struct {
	db *gorm.DB
}

func NewJobPostingRepository(db *gorm.DB) *JobPostingRepository {
	return &JobPostingRepository{db}
}

func (r *JobPostingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.JobPosting, error) {
	var job model.JobPosting
	err := r.db.WithContext(ctx).
		Preload("Applicants", func(db *gorm.DB) *gorm.DB { return db.Order("applied_at ASC") }).
		First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// SaveApplicants writes the score columns of each applicant in one transaction.
func (r *JobPostingRepository) SaveApplicants(ctx context.Context, applicants []model.Applicant) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range applicants {
			err := tx.Model(&model.Applicant{}).
				Where("id = ?", a.ID).
				Updates(map[string]any{
					"match_score": a.MatchScore,
					"score_trust": a.ScoreTrust,
					"updated_at":  now,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *JobPostingRepository) UpdateApplicantStatus(ctx context.Context, jobID, applicantID uuid.UUID, status model.ApplicationStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Applicant{}).
		Where("id = ? AND job_posting_id = ?", applicantID, jobID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *JobPostingRepository) AddApplicant(ctx context.Context, applicant *model.Applicant) error {
	return r.db.WithContext(ctx).Create(applicant).Error
}

func (r *JobPostingRepository) FindByCandidate(ctx context.Context, candidateID string) ([]model.JobPosting, error) {
	var jobs []model.JobPosting
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&model.Applicant{}).Select("job_posting_id").Where("candidate_id = ?", candidateID)).
		Preload("Applicants", "candidate_id = ?", candidateID).
		Find(&jobs).Error
	return jobs, err
}
