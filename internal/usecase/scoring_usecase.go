package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fadilmartias/hireflow/internal/logger"
	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/repository"
	"github.com/fadilmartias/hireflow/internal/service"
	"github.com/fadilmartias/hireflow/internal/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultJobDescription = "Software Developer"

type JobRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.JobPosting, error)
	SaveApplicants(ctx context.Context, applicants []model.Applicant) error
	UpdateApplicantStatus(ctx context.Context, jobID, applicantID uuid.UUID, status model.ApplicationStatus) error
	AddApplicant(ctx context.Context, applicant *model.Applicant) error
	// FindByCandidate returns jobs the candidate applied to, each preloaded
	// with that candidate's applicant row only.
	FindByCandidate(ctx context.Context, candidateID string) ([]model.JobPosting, error)
}

// ResumeTextReader resolves a resume reference to plain text.
type ResumeTextReader interface {
	ReadText(ctx context.Context, reference string) (string, error)
	// CheckReference rejects references outside the allowed sources
	// without reading them.
	CheckReference(reference string) error
}

type ScoringOptions struct {
	PacingDelay        time.Duration
	RescoreParallelism int
}

type ResumeScore struct {
	Score         int
	MissingSkills []string
	Suggestions   []string
	Degraded      bool
}

type CandidateApplication struct {
	JobID     uuid.UUID
	Title     string
	Status    model.ApplicationStatus
	AppliedAt time.Time
}

// ScoringUsecase computes and caches job-fit scores per applicant.
type ScoringUsecase struct {
	jobs        JobRepository
	gateway     service.Gateway
	fallback    *service.FallbackEngine
	resumes     ResumeTextReader
	pacing      time.Duration
	parallelism int
	wait        func(ctx context.Context, d time.Duration) error
	locks       *keyedMutex
	logger      *zap.Logger
}

func NewScoringUsecase(jobs JobRepository, gateway service.Gateway, fallback *service.FallbackEngine, resumes ResumeTextReader, opts ScoringOptions, log *zap.Logger) *ScoringUsecase {
	if opts.RescoreParallelism <= 0 {
		opts.RescoreParallelism = 1
	}
	return &ScoringUsecase{
		jobs:        jobs,
		gateway:     gateway,
		fallback:    fallback,
		resumes:     resumes,
		pacing:      opts.PacingDelay,
		parallelism: opts.RescoreParallelism,
		wait:        util.WaitFor,
		locks:       newKeyedMutex(),
		logger:      logger.Component(log, "scoring"),
	}
}

// ScoreApplicant returns existing untouched when it is a trusted positive
// score; otherwise it scores the resume against the job description.
func (uc *ScoringUsecase) ScoreApplicant(ctx context.Context, resumeReference, jobDescription string, existing model.ScoreResult) model.ScoreResult {
	res, _ := uc.scoreApplicant(ctx, resumeReference, jobDescription, existing, uc.logger)
	return res
}

// scoreApplicant also reports whether the gateway was consulted.
func (uc *ScoringUsecase) scoreApplicant(ctx context.Context, resumeReference, jobDescription string, existing model.ScoreResult, log *zap.Logger) (model.ScoreResult, bool) {
	if !existing.NeedsRecompute() {
		return existing, false
	}

	text, err := uc.resumes.ReadText(ctx, resumeReference)
	if err != nil {
		// without text there is nothing to score locally either
		log.Warn("resume unreadable, score skipped", zap.Error(err))
		if existing.Trust == "" {
			existing.Trust = model.TrustUnset
		}
		return existing, false
	}

	spec := service.PromptSpec{
		Schema: service.SchemaMatchScore,
		Instruction: "You are an expert technical recruiter. Rate how well the resume matches the job description " +
			"on a scale of 0 to 100, where 100 is a perfect match.",
		Context:  jobDescription,
		Material: text,
	}
	out := service.WithFallback(ctx,
		func(ctx context.Context) (model.ScoreResult, error) {
			ms, err := service.GenerateAs[service.MatchScore](ctx, uc.gateway, spec)
			if err != nil {
				return model.ScoreResult{}, err
			}
			return model.ScoreResult{Score: min(max(ms.Score, 0), 100), Trust: model.TrustTrusted}, nil
		},
		func() model.ScoreResult {
			return model.ScoreResult{Score: uc.fallback.LocalMatchScore(text, jobDescription), Trust: model.TrustDegraded}
		},
	)
	if out.Degraded {
		log.Warn("match score fallback", zap.String("reason", string(service.FailureReasonOf(out.Cause))), zap.Int("score", out.Value.Score))
	}
	return out.Value, true
}

// RescoreAllApplicants refreshes every applicant that needs it, one at a
// time with a pacing delay between upstream calls. Changes are persisted
// in one write; the returned applicants are sorted by score.
func (uc *ScoringUsecase) RescoreAllApplicants(ctx context.Context, jobID uuid.UUID) ([]model.Applicant, error) {
	unlock := uc.locks.Lock(jobID.String())
	defer unlock()

	job, err := uc.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	log := uc.logger.With(zap.String("job_id", jobID.String()))

	var changed []model.Applicant
	var waitErr error
	called := false
	for i := range job.Applicants {
		a := &job.Applicants[i]
		if !a.Score().NeedsRecompute() {
			log.Debug("score cached", zap.String("applicant_id", a.ID.String()), zap.Int("score", a.MatchScore))
			continue
		}
		if strings.TrimSpace(a.ResumeReference) == "" {
			continue
		}
		if called {
			if waitErr = uc.wait(ctx, uc.pacing); waitErr != nil {
				break
			}
		}

		res, usedGateway := uc.scoreApplicant(ctx, a.ResumeReference, job.Description, a.Score(), log.With(zap.String("applicant_id", a.ID.String())))
		called = called || usedGateway
		if a.SetScore(res) {
			changed = append(changed, *a)
		}
	}

	if len(changed) > 0 {
		if err := uc.jobs.SaveApplicants(ctx, changed); err != nil {
			return nil, &StoreError{Op: "save applicants", Err: err}
		}
		log.Info("applicant scores updated", zap.Int("changed", len(changed)))
	}
	if waitErr != nil {
		return nil, fmt.Errorf("rescore interrupted: %w", waitErr)
	}

	sorted := slices.Clone(job.Applicants)
	model.SortApplicantsByScore(sorted)
	return sorted, nil
}

// ListApplicants opportunistically retries unset and degraded scores before
// listing.
func (uc *ScoringUsecase) ListApplicants(ctx context.Context, jobID uuid.UUID) ([]model.Applicant, error) {
	return uc.RescoreAllApplicants(ctx, jobID)
}

// RescoreJobs runs RescoreAllApplicants for several jobs in parallel. Each
// job is still processed sequentially.
func (uc *ScoringUsecase) RescoreJobs(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID][]model.Applicant, error) {
	results := make([][]model.Applicant, len(jobIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.parallelism)
	for i, id := range jobIDs {
		g.Go(func() error {
			applicants, err := uc.RescoreAllApplicants(gctx, id)
			if err != nil {
				return fmt.Errorf("job %s: %w", id, err)
			}
			results[i] = applicants
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]model.Applicant, len(jobIDs))
	for i, id := range jobIDs {
		out[id] = results[i]
	}
	return out, nil
}

func (uc *ScoringUsecase) SetApplicantStatus(ctx context.Context, jobID, applicantID uuid.UUID, rawStatus string) error {
	status, err := model.ParseApplicationStatus(rawStatus)
	if err != nil {
		return &ValidationError{Field: "status", Message: err.Error()}
	}

	unlock := uc.locks.Lock(jobID.String())
	defer unlock()

	job, err := uc.findJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.FindApplicant(applicantID) == nil {
		return &NotFoundError{Entity: "applicant", ID: applicantID.String()}
	}
	if err := uc.jobs.UpdateApplicantStatus(ctx, jobID, applicantID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Entity: "applicant", ID: applicantID.String()}
		}
		return &StoreError{Op: "update applicant status", Err: err}
	}
	uc.logger.Info("applicant status updated", zap.String("job_id", jobID.String()), zap.String("applicant_id", applicantID.String()), zap.String("status", string(status)))
	return nil
}

// ScoreResume analyses a resume against a job description without touching
// any stored entity.
func (uc *ScoringUsecase) ScoreResume(ctx context.Context, resumeReference, jobDescription string) (*ResumeScore, error) {
	if strings.TrimSpace(resumeReference) == "" {
		return nil, &ValidationError{Field: "resume_reference", Message: "is required"}
	}
	if err := uc.resumes.CheckReference(resumeReference); err != nil {
		return nil, &ValidationError{Field: "resume_reference", Message: err.Error()}
	}
	if strings.TrimSpace(jobDescription) == "" {
		jobDescription = defaultJobDescription
	}

	text, err := uc.resumes.ReadText(ctx, resumeReference)
	if err != nil {
		uc.logger.Warn("resume unreadable", zap.Error(err))
		return &ResumeScore{
			Score:         0,
			MissingSkills: []string{"Error processing file"},
			Suggestions:   []string{"Please upload a valid PDF resume."},
			Degraded:      true,
		}, nil
	}

	spec := service.PromptSpec{
		Schema: service.SchemaResumeAnalysis,
		Instruction: "Act as an ATS (Applicant Tracking System). Analyze the resume against the job description. " +
			"Give a match score from 0 to 100, the skills the job requires that the resume lacks, and concrete suggestions.",
		Context:  jobDescription,
		Material: text,
	}
	out := service.WithFallback(ctx,
		func(ctx context.Context) (service.ResumeAnalysis, error) {
			return service.GenerateAs[service.ResumeAnalysis](ctx, uc.gateway, spec)
		},
		func() service.ResumeAnalysis { return uc.fallback.LocalResumeAnalysis(text, jobDescription) },
	)
	if out.Degraded {
		uc.logger.Warn("resume analysis fallback", zap.String("reason", string(service.FailureReasonOf(out.Cause))))
	}
	return &ResumeScore{
		Score:         out.Value.Score,
		MissingSkills: out.Value.MissingSkills,
		Suggestions:   out.Value.Suggestions,
		Degraded:      out.Degraded,
	}, nil
}

func (uc *ScoringUsecase) ApplyForJob(ctx context.Context, jobID uuid.UUID, candidateID, resumeReference string) (*model.Applicant, error) {
	candidateID = strings.TrimSpace(candidateID)
	resumeReference = strings.TrimSpace(resumeReference)
	if candidateID == "" {
		return nil, &ValidationError{Field: "candidate_id", Message: "is required"}
	}
	if resumeReference == "" {
		return nil, &ValidationError{Field: "resume_reference", Message: "is required"}
	}
	if err := uc.resumes.CheckReference(resumeReference); err != nil {
		return nil, &ValidationError{Field: "resume_reference", Message: err.Error()}
	}

	unlock := uc.locks.Lock(jobID.String())
	defer unlock()

	job, err := uc.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.HasCandidate(candidateID) {
		return nil, &ValidationError{Field: "candidate_id", Message: "already applied for this job"}
	}

	now := time.Now()
	applicant := &model.Applicant{
		ID:              uuid.New(),
		JobPostingID:    job.ID,
		CandidateID:     candidateID,
		ResumeReference: resumeReference,
		MatchScore:      0,
		ScoreTrust:      model.TrustUnset,
		Status:          model.ApplicationPending,
		AppliedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.jobs.AddApplicant(ctx, applicant); err != nil {
		return nil, &StoreError{Op: "add applicant", Err: err}
	}
	uc.logger.Info("application submitted", zap.String("job_id", jobID.String()), zap.String("candidate_id", candidateID))
	return applicant, nil
}

func (uc *ScoringUsecase) ListCandidateApplications(ctx context.Context, candidateID string) ([]CandidateApplication, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, &ValidationError{Field: "candidate_id", Message: "is required"}
	}

	jobs, err := uc.jobs.FindByCandidate(ctx, candidateID)
	if err != nil {
		return nil, &StoreError{Op: "find applications", Err: err}
	}

	apps := make([]CandidateApplication, 0, len(jobs))
	for _, job := range jobs {
		for _, a := range job.Applicants {
			if a.CandidateID != candidateID {
				continue
			}
			apps = append(apps, CandidateApplication{JobID: job.ID, Title: job.Title, Status: a.Status, AppliedAt: a.AppliedAt})
		}
	}
	slices.SortStableFunc(apps, func(a, b CandidateApplication) int {
		return b.AppliedAt.Compare(a.AppliedAt)
	})
	return apps, nil
}

func (uc *ScoringUsecase) findJob(ctx context.Context, id uuid.UUID) (*model.JobPosting, error) {
	job, err := uc.jobs.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "job", ID: id.String()}
	}
	if err != nil {
		return nil, &StoreError{Op: "find job", Err: err}
	}
	return job, nil
}
