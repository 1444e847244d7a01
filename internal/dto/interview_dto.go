package dto

import (
	"time"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/google/uuid"
)

type StartInterviewRequest struct {
	CandidateID    string `json:"candidate_id" validate:"required,max=64"`
	JobTitle       string `json:"job_title" validate:"required,max=255"`
	JobDescription string `json:"job_description"`
}

type StartInterviewResponse struct {
	SessionID        uuid.UUID `json:"session_id"`
	Question         string    `json:"question"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
}

// SubmitTurnRequest: an empty answer is recorded as a skip.
type SubmitTurnRequest struct {
	Answer       string `json:"answer"`
	EndInterview bool   `json:"end_interview"`
}

type TurnResponse struct {
	Status           model.SessionStatus   `json:"status"`
	Question         string                `json:"question,omitempty"`
	TimeLimitSeconds int                   `json:"time_limit_seconds,omitempty"`
	Feedback         *model.FeedbackReport `json:"feedback,omitempty"`
}

type InterviewSessionDTO struct {
	ID              uuid.UUID             `json:"id"`
	CandidateID     string                `json:"candidate_id"`
	JobTitle        string                `json:"job_title"`
	JobDescription  string                `json:"job_description"`
	Status          model.SessionStatus   `json:"status"`
	Conversation    model.Conversation    `json:"conversation"`
	FinalScore      *int                  `json:"final_score,omitempty"`
	FeedbackSummary *string               `json:"feedback_summary,omitempty"`
	Feedback        *model.FeedbackReport `json:"feedback,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func NewInterviewSessionDTO(s *model.InterviewSession) InterviewSessionDTO {
	return InterviewSessionDTO{
		ID:              s.ID,
		CandidateID:     s.CandidateID,
		JobTitle:        s.JobTitle,
		JobDescription:  s.JobDescription,
		Status:          s.Status,
		Conversation:    s.Conversation,
		FinalScore:      s.FinalScore,
		FeedbackSummary: s.FeedbackSummary,
		Feedback:        s.Feedback,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
