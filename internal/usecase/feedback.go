package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/service"
)

// SynthesizeFeedback grades a finished conversation. It never fails: on any
// inference failure the neutral fallback report is returned with Degraded set.
func (uc *InterviewUsecase) SynthesizeFeedback(ctx context.Context, conversation model.Conversation, jobDescription string) service.Outcome[model.FeedbackReport] {
	spec := service.PromptSpec{
		Schema:      service.SchemaFeedbackReport,
		Instruction: feedbackInstruction(conversation),
		Context:     jobDescription,
		History:     conversation,
	}
	return service.WithFallback(ctx,
		func(ctx context.Context) (model.FeedbackReport, error) {
			fb, err := service.GenerateAs[service.Feedback](ctx, uc.gateway, spec)
			if err != nil {
				return model.FeedbackReport{}, err
			}
			return fb.FeedbackReport, nil
		},
		uc.fallback.Feedback,
	)
}

func feedbackInstruction(conversation model.Conversation) string {
	answered, skipped := 0, 0
	for _, t := range conversation {
		switch {
		case t.IsSkipped():
			skipped++
		case t.Role == model.RoleCandidate:
			answered++
		}
	}

	var b strings.Builder
	b.WriteString("You are grading a completed job interview. Score the candidate from 0 to 100.\n")
	b.WriteString("Ignore how long the candidate took to answer. Grade only the text of each answer.\n")
	fmt.Fprintf(&b, "An answer exactly equal to %q was skipped and scores zero for that question.\n", model.NoResponseMarker)
	b.WriteString("Every other answer, however short, must be evaluated for relevance to the question and the job.\n")
	fmt.Fprintf(&b, "The candidate answered %d question(s) and skipped %d.\n", answered, skipped)
	b.WriteString("List concrete strengths and improvements and write a short summary addressed to the candidate.")
	return b.String()
}
