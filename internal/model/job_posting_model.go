package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScoreTrust tags where a stored match score came from.
type ScoreTrust string

const (
	TrustUnset    ScoreTrust = "unset"
	TrustTrusted  ScoreTrust = "trusted"
	TrustDegraded ScoreTrust = "degraded"
)

type ScoreResult struct {
	Score int        `json:"score"`
	Trust ScoreTrust `json:"trust"`
}

// NeedsRecompute is false only for a trusted, positive score.
func (r ScoreResult) NeedsRecompute() bool {
	return r.Trust != TrustTrusted || r.Score <= 0
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ParseApplicationStatus accepts any casing ("Accepted", "accepted").
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	switch s := ApplicationStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected:
		return s, nil
	default:
		return "", fmt.Errorf("unknown application status %q", raw)
	}
}

type JobPosting struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	RecruiterID string      `gorm:"type:varchar(64);index" json:"recruiter_id"`
	Title       string      `gorm:"type:varchar(255)" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Applicants  []Applicant `gorm:"foreignKey:JobPostingID;constraint:OnDelete:CASCADE" json:"applicants"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (j *JobPosting) TableName() string {
	return "job_postings"
}

func (j *JobPosting) FindApplicant(id uuid.UUID) *Applicant {
	for i := range j.Applicants {
		if j.Applicants[i].ID == id {
			return &j.Applicants[i]
		}
	}
	return nil
}

func (j *JobPosting) HasCandidate(candidateID string) bool {
	for _, a := range j.Applicants {
		if a.CandidateID == candidateID {
			return true
		}
	}
	return false
}

type Applicant struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	JobPostingID    uuid.UUID         `gorm:"type:uuid;index;not null" json:"job_id"`
	CandidateID     string            `gorm:"type:varchar(64);index;not null" json:"candidate_id"`
	ResumeReference string            `gorm:"type:text" json:"resume_reference"`
	MatchScore      int               `gorm:"not null;default:0" json:"match_score"`
	ScoreTrust      ScoreTrust        `gorm:"type:varchar(20);not null;default:'unset'" json:"score_trust"`
	Status          ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	AppliedAt       time.Time         `json:"applied_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (a *Applicant) TableName() string {
	return "applicants"
}

func (a Applicant) Score() ScoreResult {
	trust := a.ScoreTrust
	if trust == "" {
		trust = TrustUnset
	}
	return ScoreResult{Score: a.MatchScore, Trust: trust}
}

// SetScore stores r and reports whether the (score, trust) pair changed.
func (a *Applicant) SetScore(r ScoreResult) bool {
	if a.Score() == r {
		return false
	}
	a.MatchScore = r.Score
	a.ScoreTrust = r.Trust
	return true
}

// SortApplicantsByScore orders by score descending, earlier application first on ties.
func SortApplicantsByScore(applicants []Applicant) {
	slices.SortStableFunc(applicants, func(a, b Applicant) int {
		if a.MatchScore != b.MatchScore {
			return b.MatchScore - a.MatchScore
		}
		return a.AppliedAt.Compare(b.AppliedAt)
	})
}
