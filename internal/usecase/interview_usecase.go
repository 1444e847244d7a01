package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fadilmartias/hireflow/internal/logger"
	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/repository"
	"github.com/fadilmartias/hireflow/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.InterviewSession) error
	Update(ctx context.Context, session *model.InterviewSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error)
}

type StartResult struct {
	SessionID        uuid.UUID
	Question         string
	TimeLimitSeconds int
}

type SubmitAnswerInput struct {
	SessionID    uuid.UUID
	Answer       string
	EndInterview bool
}

// TurnResult carries either the next question (active) or the final
// report (completed).
type TurnResult struct {
	Status           model.SessionStatus
	Question         string
	TimeLimitSeconds int
	Feedback         *model.FeedbackReport
}

// InterviewUsecase drives the turn-by-turn interview protocol. Inference
// failures never reach the caller; store failures always do.
type InterviewUsecase struct {
	sessions SessionRepository
	gateway  service.Gateway
	fallback *service.FallbackEngine
	locks    *keyedMutex
	now      func() time.Time
	logger   *zap.Logger
}

func NewInterviewUsecase(sessions SessionRepository, gateway service.Gateway, fallback *service.FallbackEngine, log *zap.Logger) *InterviewUsecase {
	return &InterviewUsecase{
		sessions: sessions,
		gateway:  gateway,
		fallback: fallback,
		locks:    newKeyedMutex(),
		now:      time.Now,
		logger:   logger.Component(log, "interview"),
	}
}

func (uc *InterviewUsecase) Start(ctx context.Context, candidateID, jobTitle, jobDescription string) (*StartResult, error) {
	candidateID = strings.TrimSpace(candidateID)
	jobTitle = strings.TrimSpace(jobTitle)
	if candidateID == "" {
		return nil, &ValidationError{Field: "candidate_id", Message: "is required"}
	}
	if jobTitle == "" {
		return nil, &ValidationError{Field: "job_title", Message: "is required"}
	}

	now := uc.now()
	session := &model.InterviewSession{
		ID:             uuid.New(),
		CandidateID:    candidateID,
		JobTitle:       jobTitle,
		JobDescription: strings.TrimSpace(jobDescription),
		Conversation:   model.Conversation{},
		Status:         model.SessionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	log := uc.logger.With(zap.String("session_id", session.ID.String()))

	q := uc.nextQuestion(ctx, session, log)
	if err := session.AppendTurn(interviewerTurn(q, now)); err != nil {
		return nil, err
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		return nil, &StoreError{Op: "create session", Err: err}
	}

	log.Info("interview started", zap.String("candidate_id", candidateID), zap.String("job_title", jobTitle))
	return &StartResult{SessionID: session.ID, Question: q.Question, TimeLimitSeconds: q.TimeLimitSeconds}, nil
}

// SubmitAnswer records one candidate answer and either asks the next
// question or completes the session. Calls for the same session run one at
// a time.
func (uc *InterviewUsecase) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (*TurnResult, error) {
	unlock := uc.locks.Lock(in.SessionID.String())
	defer unlock()

	session, err := uc.load(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	log := uc.logger.With(zap.String("session_id", session.ID.String()))

	if session.IsCompleted() {
		log.Debug("answer on completed session ignored")
		return &TurnResult{Status: model.SessionCompleted, Feedback: session.Feedback}, nil
	}

	answer := in.Answer
	if strings.TrimSpace(answer) == "" {
		answer = model.NoResponseMarker
	}
	now := uc.now()
	if err := session.AppendTurn(model.ConversationTurn{Role: model.RoleCandidate, Content: answer, Timestamp: now}); err != nil {
		return nil, err
	}

	rounds := session.Conversation.InterviewerTurns()
	if rounds >= model.MaxInterviewerTurns || in.EndInterview || strings.Contains(answer, model.EarlyTerminationMarker) {
		out := uc.SynthesizeFeedback(ctx, session.Conversation, session.JobDescription)
		if out.Degraded {
			log.Warn("feedback fallback", zap.String("reason", string(service.FailureReasonOf(out.Cause))), zap.Error(out.Cause))
		}
		if err := session.Complete(out.Value); err != nil {
			return nil, err
		}
		session.UpdatedAt = now
		if err := uc.sessions.Update(ctx, session); err != nil {
			return nil, &StoreError{Op: "complete session", Err: err}
		}
		log.Info("interview completed", zap.Int("rounds", rounds), zap.Int("score", out.Value.Score), zap.Bool("degraded", out.Degraded))
		return &TurnResult{Status: model.SessionCompleted, Feedback: session.Feedback}, nil
	}

	q := uc.nextQuestion(ctx, session, log)
	if err := session.AppendTurn(interviewerTurn(q, now)); err != nil {
		return nil, err
	}
	session.UpdatedAt = now
	if err := uc.sessions.Update(ctx, session); err != nil {
		return nil, &StoreError{Op: "update session", Err: err}
	}
	return &TurnResult{Status: model.SessionActive, Question: q.Question, TimeLimitSeconds: q.TimeLimitSeconds}, nil
}

func (uc *InterviewUsecase) GetSession(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error) {
	return uc.load(ctx, id)
}

func (uc *InterviewUsecase) load(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "interview session", ID: id.String()}
	}
	if err != nil {
		return nil, &StoreError{Op: "find session", Err: err}
	}
	return session, nil
}

func (uc *InterviewUsecase) nextQuestion(ctx context.Context, session *model.InterviewSession, log *zap.Logger) service.NextQuestion {
	asked := session.Conversation.Questions()
	spec := service.PromptSpec{
		Schema:      service.SchemaNextQuestion,
		Instruction: nextQuestionInstruction(session.JobTitle, len(asked)),
		Context:     session.JobDescription,
		History:     session.Conversation,
	}

	out := service.WithFallback(ctx,
		func(ctx context.Context) (service.NextQuestion, error) {
			q, err := service.GenerateAs[service.NextQuestion](ctx, uc.gateway, spec)
			if err != nil {
				return q, err
			}
			if q.Question == "" {
				return q, &service.InferenceFailure{Reason: service.ReasonSchemaMismatch, Err: errors.New("empty question")}
			}
			if len(asked) > 0 && strings.EqualFold(q.Question, asked[len(asked)-1]) {
				return q, &service.InferenceFailure{Reason: service.ReasonMalformedOutput, Err: errors.New("repeated question")}
			}
			return q, nil
		},
		func() service.NextQuestion { return uc.fallback.NextQuestion(session.ID.String(), asked) },
	)
	if out.Degraded {
		log.Warn("next question fallback", zap.Int("round", len(asked)+1), zap.String("reason", string(service.FailureReasonOf(out.Cause))), zap.Error(out.Cause))
	}
	return out.Value
}

func nextQuestionInstruction(jobTitle string, asked int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional technical interviewer hiring for the role of %q.\n", jobTitle)
	if asked == 0 {
		b.WriteString("Start the interview with a short introductory question about the candidate's background for this role.\n")
	} else {
		fmt.Fprintf(&b, "The candidate has answered %d of %d questions. Ask question %d.\n", asked, model.MaxInterviewerTurns, asked+1)
		b.WriteString("Do not repeat any earlier question and pivot to a different topic from the previous question.\n")
		fmt.Fprintf(&b, "An answer of %q means the candidate skipped that question.\n", model.NoResponseMarker)
	}
	b.WriteString("Set timeLimit in seconds: 60-90 for behavioral or simple questions, 120-240 for deep technical ones.")
	return b.String()
}

func interviewerTurn(q service.NextQuestion, at time.Time) model.ConversationTurn {
	return model.ConversationTurn{
		Role:             model.RoleInterviewer,
		Content:          q.Question,
		Timestamp:        at,
		TimeLimitSeconds: q.TimeLimitSeconds,
	}
}
