package dto

import (
	"time"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/google/uuid"
)

type ApplyForJobRequest struct {
	CandidateID     string `json:"candidate_id" validate:"required,max=64"`
	ResumeReference string `json:"resume_reference" validate:"required"`
}

type UpdateApplicantStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ApplicantDTO leaves out score trust: degraded scores look like any other.
type ApplicantDTO struct {
	ID              uuid.UUID               `json:"id"`
	CandidateID     string                  `json:"candidate_id"`
	ResumeReference string                  `json:"resume_reference"`
	MatchScore      int                     `json:"match_score"`
	Status          model.ApplicationStatus `json:"status"`
	AppliedAt       time.Time               `json:"applied_at"`
}

func NewApplicantDTO(a model.Applicant) ApplicantDTO {
	return ApplicantDTO{
		ID:              a.ID,
		CandidateID:     a.CandidateID,
		ResumeReference: a.ResumeReference,
		MatchScore:      a.MatchScore,
		Status:          a.Status,
		AppliedAt:       a.AppliedAt,
	}
}

func NewApplicantDTOs(applicants []model.Applicant) []ApplicantDTO {
	out := make([]ApplicantDTO, 0, len(applicants))
	for _, a := range applicants {
		out = append(out, NewApplicantDTO(a))
	}
	return out
}

type CandidateApplicationDTO struct {
	JobID     uuid.UUID               `json:"job_id"`
	Title     string                  `json:"title"`
	Status    model.ApplicationStatus `json:"status"`
	AppliedAt time.Time               `json:"applied_at"`
}
