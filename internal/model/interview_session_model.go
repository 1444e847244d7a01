package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxInterviewerTurns is the round limit after which a session completes.
const MaxInterviewerTurns = 5

const (
	// NoResponseMarker replaces an empty or whitespace-only answer.
	NoResponseMarker = "[User skipped or stayed silent]"
	// EarlyTerminationMarker inside an answer ends the interview.
	EarlyTerminationMarker = "[User ended interview early]"
)

var ErrSessionCompleted = errors.New("interview session already completed")

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

type TurnRole string

const (
	RoleInterviewer TurnRole = "interviewer"
	RoleCandidate   TurnRole = "candidate"
)

type ConversationTurn struct {
	Role             TurnRole  `json:"role"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
	TimeLimitSeconds int       `json:"time_limit_seconds,omitempty"`
}

// IsSkipped reports whether the turn holds the reserved no-response marker.
func (t ConversationTurn) IsSkipped() bool {
	return t.Role == RoleCandidate && t.Content == NoResponseMarker
}

// Conversation is an append-only log. Append never mutates the receiver's
// backing array, so a copy handed to another request stays stable.
type Conversation []ConversationTurn

func (c Conversation) Append(turn ConversationTurn) Conversation {
	out := make(Conversation, len(c), len(c)+1)
	copy(out, c)
	return append(out, turn)
}

func (c Conversation) InterviewerTurns() int {
	n := 0
	for _, t := range c {
		if t.Role == RoleInterviewer {
			n++
		}
	}
	return n
}

// Recent returns a copy of at most the last n turns.
func (c Conversation) Recent(n int) Conversation {
	if n <= 0 || len(c) == 0 {
		return Conversation{}
	}
	start := 0
	if len(c) > n {
		start = len(c) - n
	}
	out := make(Conversation, len(c)-start)
	copy(out, c[start:])
	return out
}

// Questions returns the content of every interviewer turn, oldest first.
func (c Conversation) Questions() []string {
	out := make([]string, 0, len(c))
	for _, t := range c {
		if t.Role == RoleInterviewer {
			out = append(out, t.Content)
		}
	}
	return out
}

type FeedbackReport struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
}

type InterviewSession struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CandidateID     string          `gorm:"type:varchar(64);index;not null" json:"candidate_id"`
	JobTitle        string          `gorm:"type:varchar(255);not null" json:"job_title"`
	JobDescription  string          `gorm:"type:text;not null" json:"job_description"`
	Conversation    Conversation    `gorm:"type:jsonb;serializer:json" json:"conversation"`
	Status          SessionStatus   `gorm:"type:varchar(20);index;not null" json:"status"`
	FinalScore      *int            `json:"final_score,omitempty"`
	FeedbackSummary *string         `gorm:"type:text" json:"feedback_summary,omitempty"`
	Feedback        *FeedbackReport `gorm:"type:jsonb;serializer:json" json:"feedback,omitempty"`
	Version         int             `gorm:"not null;default:0" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (s *InterviewSession) TableName() string {
	return "interview_sessions"
}

func (s *InterviewSession) IsCompleted() bool {
	return s.Status == SessionCompleted
}

// AppendTurn adds a turn unless the session has already completed.
func (s *InterviewSession) AppendTurn(turn ConversationTurn) error {
	if s.IsCompleted() {
		return ErrSessionCompleted
	}
	s.Conversation = s.Conversation.Append(turn)
	return nil
}

// Complete moves the session to its terminal state exactly once.
func (s *InterviewSession) Complete(report FeedbackReport) error {
	if s.IsCompleted() {
		return ErrSessionCompleted
	}
	score := report.Score
	summary := report.Summary
	s.Status = SessionCompleted
	s.FinalScore = &score
	s.FeedbackSummary = &summary
	s.Feedback = &report
	return nil
}
