package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testJD = "Backend developer with Python, SQL and AWS"

func scoreGateway(score int) *fakeGateway {
	return newFakeGateway(func(spec service.PromptSpec) (service.StructuredResult, error) {
		switch spec.Schema {
		case service.SchemaMatchScore:
			return service.MatchScore{Score: score}, nil
		case service.SchemaResumeAnalysis:
			return service.ResumeAnalysis{Score: score, MissingSkills: []string{"aws"}, Suggestions: []string{"add metrics"}}, nil
		}
		return nil, &service.InferenceFailure{Reason: service.ReasonSchemaMismatch}
	})
}

type pacingRecorder struct {
	waits []time.Duration
}

func (p *pacingRecorder) wait(_ context.Context, d time.Duration) error {
	p.waits = append(p.waits, d)
	return nil
}

func newTestScoring(gw service.Gateway, jobs *memoryJobs, resumes fakeResumes) (*ScoringUsecase, *pacingRecorder) {
	uc := NewScoringUsecase(jobs, gw, service.NewFallbackEngine(), resumes, ScoringOptions{PacingDelay: 200 * time.Millisecond, RescoreParallelism: 2}, zap.NewNop())
	rec := &pacingRecorder{}
	uc.wait = rec.wait
	return uc, rec
}

func applicant(jobID uuid.UUID, candidate string, score int, trust model.ScoreTrust, appliedAt time.Time) model.Applicant {
	return model.Applicant{
		ID:              uuid.New(),
		JobPostingID:    jobID,
		CandidateID:     candidate,
		ResumeReference: candidate + ".pdf",
		MatchScore:      score,
		ScoreTrust:      trust,
		Status:          model.ApplicationPending,
		AppliedAt:       appliedAt,
	}
}

func TestScoringUsecase_ScoreApplicantCacheHit(t *testing.T) {
	gw := scoreGateway(10)
	uc, _ := newTestScoring(gw, newMemoryJobs(), fakeResumes{"cv.pdf": "python"})

	existing := model.ScoreResult{Score: 82, Trust: model.TrustTrusted}
	got := uc.ScoreApplicant(context.Background(), "cv.pdf", testJD, existing)
	assert.Equal(t, existing, got)
	assert.Zero(t, gw.count(service.SchemaMatchScore))
}

func TestScoringUsecase_ScoreApplicant(t *testing.T) {
	resumes := fakeResumes{"cv.pdf": "Python and SQL"}
	local := service.NewFallbackEngine().LocalMatchScore("Python and SQL", testJD)

	tests := []struct {
		name     string
		gw       *fakeGateway
		existing model.ScoreResult
		expected model.ScoreResult
	}{
		{name: "unset trusted by ai", gw: scoreGateway(77), existing: model.ScoreResult{Trust: model.TrustUnset}, expected: model.ScoreResult{Score: 77, Trust: model.TrustTrusted}},
		{name: "degraded retried", gw: scoreGateway(64), existing: model.ScoreResult{Score: 40, Trust: model.TrustDegraded}, expected: model.ScoreResult{Score: 64, Trust: model.TrustTrusted}},
		{name: "trusted zero recomputed", gw: scoreGateway(55), existing: model.ScoreResult{Score: 0, Trust: model.TrustTrusted}, expected: model.ScoreResult{Score: 55, Trust: model.TrustTrusted}},
		{name: "gateway failure degrades", gw: failingGateway(service.ReasonTimeout), existing: model.ScoreResult{Score: 0, Trust: model.TrustUnset}, expected: model.ScoreResult{Score: local, Trust: model.TrustDegraded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, _ := newTestScoring(tt.gw, newMemoryJobs(), resumes)
			got := uc.ScoreApplicant(context.Background(), "cv.pdf", testJD, tt.existing)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, 1, tt.gw.count(service.SchemaMatchScore))
		})
	}
}

func TestScoringUsecase_ScoreApplicantUnreadableResume(t *testing.T) {
	gw := scoreGateway(90)
	uc, _ := newTestScoring(gw, newMemoryJobs(), fakeResumes{})

	got := uc.ScoreApplicant(context.Background(), "missing.pdf", testJD, model.ScoreResult{})
	assert.Equal(t, model.ScoreResult{Score: 0, Trust: model.TrustUnset}, got)
	assert.Zero(t, gw.count(service.SchemaMatchScore))
}

func TestScoringUsecase_RescoreAllApplicants(t *testing.T) {
	jobID := uuid.New()
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	trusted := applicant(jobID, "alice", 90, model.TrustTrusted, t0)
	degraded := applicant(jobID, "bob", 40, model.TrustDegraded, t0.Add(time.Hour))
	jobs := newMemoryJobs(model.JobPosting{ID: jobID, Title: "Backend", Description: testJD, Applicants: []model.Applicant{degraded, trusted}})

	gw := scoreGateway(60)
	core, logs := observer.New(zapcore.DebugLevel)
	uc, rec := newTestScoring(gw, jobs, fakeResumes{"alice.pdf": "python", "bob.pdf": "sql"})
	uc.logger = zap.New(core)

	got, err := uc.RescoreAllApplicants(context.Background(), jobID)
	require.NoError(t, err)

	assert.Equal(t, 1, gw.count(service.SchemaMatchScore))
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].CandidateID)
	assert.Equal(t, 90, got[0].MatchScore)
	assert.Equal(t, "bob", got[1].CandidateID)
	assert.Equal(t, model.ScoreResult{Score: 60, Trust: model.TrustTrusted}, got[1].Score())

	assert.Equal(t, 1, jobs.saves)
	require.Len(t, jobs.lastSaved, 1)
	assert.Equal(t, degraded.ID, jobs.lastSaved[0].ID)
	assert.Equal(t, model.TrustTrusted, jobs.applicant(jobID, degraded.ID).ScoreTrust)
	assert.Empty(t, rec.waits)
	assert.Equal(t, 1, logs.FilterMessage("score cached").Len())
}

func TestScoringUsecase_RescorePacesAndSkipsUnchanged(t *testing.T) {
	jobID := uuid.New()
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	a := applicant(jobID, "a", 0, model.TrustUnset, t0)
	b := applicant(jobID, "b", 0, model.TrustUnset, t0.Add(time.Minute))
	c := applicant(jobID, "c", 0, model.TrustUnset, t0.Add(2*time.Minute))
	noResume := applicant(jobID, "d", 0, model.TrustUnset, t0.Add(3*time.Minute))
	noResume.ResumeReference = ""
	jobs := newMemoryJobs(model.JobPosting{ID: jobID, Description: testJD, Applicants: []model.Applicant{a, b, c, noResume}})

	gw := scoreGateway(70)
	uc, rec := newTestScoring(gw, jobs, fakeResumes{"a.pdf": "x", "b.pdf": "y", "c.pdf": "z"})

	got, err := uc.RescoreAllApplicants(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 3, gw.count(service.SchemaMatchScore))
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, rec.waits)
	assert.Len(t, got, 4)
	assert.Equal(t, "d", got[3].CandidateID)

	// second pass: everything trusted, nothing recomputed or saved
	_, err = uc.RescoreAllApplicants(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 3, gw.count(service.SchemaMatchScore))
	assert.Equal(t, 1, jobs.saves)
}

func TestScoringUsecase_RescoreNoChangeNoSave(t *testing.T) {
	jobID := uuid.New()
	resume := "python sql aws"
	local := service.NewFallbackEngine().LocalMatchScore(resume, testJD)
	a := applicant(jobID, "a", local, model.TrustDegraded, time.Now())
	jobs := newMemoryJobs(model.JobPosting{ID: jobID, Description: testJD, Applicants: []model.Applicant{a}})

	gw := failingGateway(service.ReasonNetwork)
	uc, _ := newTestScoring(gw, jobs, fakeResumes{"a.pdf": resume})

	got, err := uc.RescoreAllApplicants(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.count(service.SchemaMatchScore))
	assert.Equal(t, model.TrustDegraded, got[0].ScoreTrust)
	assert.Zero(t, jobs.saves)
}

func TestScoringUsecase_RescoreErrors(t *testing.T) {
	jobID := uuid.New()
	jobs := newMemoryJobs(model.JobPosting{ID: jobID, Description: testJD, Applicants: []model.Applicant{applicant(jobID, "a", 0, model.TrustUnset, time.Now())}})
	jobs.saveErr = errors.New("write timeout")
	uc, _ := newTestScoring(scoreGateway(50), jobs, fakeResumes{"a.pdf": "x"})

	_, err := uc.ListApplicants(context.Background(), uuid.New())
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = uc.ListApplicants(context.Background(), jobID)
	var se *StoreError
	require.ErrorAs(t, err, &se)
}

func TestScoringUsecase_RescoreJobs(t *testing.T) {
	job1, job2 := uuid.New(), uuid.New()
	jobs := newMemoryJobs(
		model.JobPosting{ID: job1, Description: testJD, Applicants: []model.Applicant{applicant(job1, "a", 0, model.TrustUnset, time.Now())}},
		model.JobPosting{ID: job2, Description: testJD, Applicants: []model.Applicant{applicant(job2, "b", 0, model.TrustUnset, time.Now())}},
	)
	uc, _ := newTestScoring(scoreGateway(66), jobs, fakeResumes{"a.pdf": "x", "b.pdf": "y"})

	got, err := uc.RescoreJobs(context.Background(), []uuid.UUID{job1, job2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 66, got[job1][0].MatchScore)
	assert.Equal(t, 66, got[job2][0].MatchScore)

	_, err = uc.RescoreJobs(context.Background(), []uuid.UUID{job1, uuid.New()})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestScoringUsecase_SetApplicantStatus(t *testing.T) {
	jobID := uuid.New()
	a := applicant(jobID, "a", 0, model.TrustUnset, time.Now())
	jobs := newMemoryJobs(model.JobPosting{ID: jobID, Applicants: []model.Applicant{a}})
	uc, _ := newTestScoring(scoreGateway(50), jobs, nil)
	ctx := context.Background()

	require.NoError(t, uc.SetApplicantStatus(ctx, jobID, a.ID, "Accepted"))
	assert.Equal(t, model.ApplicationAccepted, jobs.applicant(jobID, a.ID).Status)

	var ve *ValidationError
	require.ErrorAs(t, uc.SetApplicantStatus(ctx, jobID, a.ID, "hired"), &ve)

	var nf *NotFoundError
	require.ErrorAs(t, uc.SetApplicantStatus(ctx, jobID, uuid.New(), "rejected"), &nf)
	require.ErrorAs(t, uc.SetApplicantStatus(ctx, uuid.New(), a.ID, "rejected"), &nf)
}

func TestScoringUsecase_ScoreResume(t *testing.T) {
	ctx := context.Background()
	resumes := fakeResumes{"cv.pdf": "I know react"}

	t.Run("ai", func(t *testing.T) {
		uc, _ := newTestScoring(scoreGateway(88), newMemoryJobs(), resumes)
		got, err := uc.ScoreResume(ctx, "cv.pdf", testJD)
		require.NoError(t, err)
		assert.Equal(t, &ResumeScore{Score: 88, MissingSkills: []string{"aws"}, Suggestions: []string{"add metrics"}}, got)
	})

	t.Run("fallback with default job description", func(t *testing.T) {
		gw := failingGateway(service.ReasonMissingCredential)
		uc, _ := newTestScoring(gw, newMemoryJobs(), resumes)
		got, err := uc.ScoreResume(ctx, "cv.pdf", "  ")
		require.NoError(t, err)
		assert.True(t, got.Degraded)
		assert.Equal(t, 75, got.Score)
		assert.Equal(t, []string{"Keywords not found in text"}, got.MissingSkills)
		assert.Equal(t, "Software Developer", gw.specs[0].Context)
	})

	t.Run("unreadable resume", func(t *testing.T) {
		gw := scoreGateway(88)
		uc, _ := newTestScoring(gw, newMemoryJobs(), resumes)
		got, err := uc.ScoreResume(ctx, "other.pdf", testJD)
		require.NoError(t, err)
		assert.Zero(t, got.Score)
		assert.Equal(t, []string{"Error processing file"}, got.MissingSkills)
		assert.Equal(t, []string{"Please upload a valid PDF resume."}, got.Suggestions)
		assert.Zero(t, gw.count(service.SchemaResumeAnalysis))
	})

	t.Run("missing reference", func(t *testing.T) {
		uc, _ := newTestScoring(scoreGateway(88), newMemoryJobs(), resumes)
		_, err := uc.ScoreResume(ctx, "", testJD)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
	})

	t.Run("reference outside allowed sources", func(t *testing.T) {
		gw := scoreGateway(88)
		uc, _ := newTestScoring(gw, newMemoryJobs(), fakeResumes{"/app/.env": "GEMINI_API_KEY=secret"})
		got, err := uc.ScoreResume(ctx, "/app/.env", testJD)
		assert.Nil(t, got)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "resume_reference", ve.Field)
		assert.Zero(t, gw.count(service.SchemaResumeAnalysis))
	})
}

func TestScoringUsecase_ApplyAndListApplications(t *testing.T) {
	job1, job2 := uuid.New(), uuid.New()
	jobs := newMemoryJobs(
		model.JobPosting{ID: job1, Title: "Backend"},
		model.JobPosting{ID: job2, Title: "Frontend"},
	)
	uc, _ := newTestScoring(scoreGateway(50), jobs, nil)
	ctx := context.Background()

	a, err := uc.ApplyForJob(ctx, job1, "cand-1", "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.ScoreResult{Score: 0, Trust: model.TrustUnset}, a.Score())
	assert.Equal(t, model.ApplicationPending, a.Status)

	_, err = uc.ApplyForJob(ctx, job1, "cand-1", "cv2.pdf")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	time.Sleep(time.Millisecond)
	_, err = uc.ApplyForJob(ctx, job2, "cand-1", "cv.pdf")
	require.NoError(t, err)

	_, err = uc.ApplyForJob(ctx, uuid.New(), "cand-1", "cv.pdf")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = uc.ApplyForJob(ctx, job2, "cand-2", "../../etc/passwd")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "resume_reference", ve.Field)

	apps, err := uc.ListCandidateApplications(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Frontend", apps[0].Title)
	assert.Equal(t, "Backend", apps[1].Title)

	apps, err = uc.ListCandidateApplications(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, apps)
}
