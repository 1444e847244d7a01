package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeInterviews struct {
	start   func(candidateID, jobTitle, jd string) (*usecase.StartResult, error)
	submit  func(in usecase.SubmitAnswerInput) (*usecase.TurnResult, error)
	session *model.InterviewSession
}

func (f *fakeInterviews) Start(_ context.Context, candidateID, jobTitle, jd string) (*usecase.StartResult, error) {
	return f.start(candidateID, jobTitle, jd)
}

func (f *fakeInterviews) SubmitAnswer(_ context.Context, in usecase.SubmitAnswerInput) (*usecase.TurnResult, error) {
	return f.submit(in)
}

func (f *fakeInterviews) GetSession(_ context.Context, id uuid.UUID) (*model.InterviewSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, &usecase.NotFoundError{Entity: "interview session", ID: id.String()}
	}
	return f.session, nil
}

type fakeJobs struct {
	applicants []model.Applicant
	statusErr  error
	lastStatus string
}

func (f *fakeJobs) ApplyForJob(_ context.Context, jobID uuid.UUID, candidateID, ref string) (*model.Applicant, error) {
	return &model.Applicant{ID: uuid.New(), JobPostingID: jobID, CandidateID: candidateID, ResumeReference: ref, Status: model.ApplicationPending}, nil
}

func (f *fakeJobs) ListApplicants(context.Context, uuid.UUID) ([]model.Applicant, error) {
	return f.applicants, nil
}

func (f *fakeJobs) SetApplicantStatus(_ context.Context, _, _ uuid.UUID, status string) error {
	f.lastStatus = status
	return f.statusErr
}

func (f *fakeJobs) ListCandidateApplications(_ context.Context, candidateID string) ([]usecase.CandidateApplication, error) {
	return []usecase.CandidateApplication{{JobID: uuid.New(), Title: "Backend", Status: model.ApplicationAccepted, AppliedAt: time.Now()}}, nil
}

type fakeResumes struct{}

func (fakeResumes) ScoreResume(_ context.Context, ref, _ string) (*usecase.ResumeScore, error) {
	return &usecase.ResumeScore{Score: 75, MissingSkills: []string{"aws"}, Suggestions: []string{"x"}, Degraded: true}, nil
}

func newTestApp(interviews InterviewService, jobs JobService) *fiber.App {
	app := fiber.New()
	NewInterviewHandler(interviews).RegisterRoutes(app)
	NewJobHandler(jobs).RegisterRoutes(app)
	NewResumeHandler(fakeResumes{}).RegisterRoutes(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, gjson.Result) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(raw)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{err: &usecase.NotFoundError{Entity: "job", ID: "1"}, expected: http.StatusNotFound},
		{err: &usecase.ValidationError{Field: "x", Message: "bad"}, expected: http.StatusBadRequest},
		{err: &usecase.StoreError{Op: "save", Err: errors.New("down")}, expected: http.StatusServiceUnavailable},
		{err: fiber.NewError(http.StatusTeapot, "tea"), expected: http.StatusTeapot},
		{err: errors.New("boom"), expected: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestInterviewHandler_Start(t *testing.T) {
	id := uuid.New()
	interviews := &fakeInterviews{start: func(candidateID, jobTitle, jd string) (*usecase.StartResult, error) {
		assert.Equal(t, "cand-1", candidateID)
		return &usecase.StartResult{SessionID: id, Question: "Why Go?", TimeLimitSeconds: 90}, nil
	}}
	app := newTestApp(interviews, &fakeJobs{})

	status, body := do(t, app, http.MethodPost, "/interviews", `{"candidate_id":"cand-1","job_title":"Backend","job_description":"Go"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, body.Get("success").Bool())
	assert.Equal(t, id.String(), body.Get("data.session_id").String())
	assert.Equal(t, "Why Go?", body.Get("data.question").String())
	assert.EqualValues(t, 90, body.Get("data.time_limit_seconds").Int())

	status, body = do(t, app, http.MethodPost, "/interviews", `{"job_title":"Backend"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "required", body.Get("details.candidate_id").String())
}

func TestInterviewHandler_SubmitTurn(t *testing.T) {
	id := uuid.New()
	interviews := &fakeInterviews{submit: func(in usecase.SubmitAnswerInput) (*usecase.TurnResult, error) {
		if in.EndInterview {
			return &usecase.TurnResult{Status: model.SessionCompleted, Feedback: &model.FeedbackReport{Score: 70, Summary: "ok"}}, nil
		}
		if in.SessionID != id {
			return nil, &usecase.NotFoundError{Entity: "interview session", ID: in.SessionID.String()}
		}
		return &usecase.TurnResult{Status: model.SessionActive, Question: "Next?", TimeLimitSeconds: 120}, nil
	}}
	app := newTestApp(interviews, &fakeJobs{})

	status, body := do(t, app, http.MethodPost, "/interviews/"+id.String()+"/turns", `{"answer":"channels"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", body.Get("data.status").String())
	assert.Equal(t, "Next?", body.Get("data.question").String())
	assert.False(t, body.Get("data.feedback").Exists())

	status, body = do(t, app, http.MethodPost, "/interviews/"+id.String()+"/turns", `{"answer":"","end_interview":true}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body.Get("data.status").String())
	assert.EqualValues(t, 70, body.Get("data.feedback.score").Int())
	assert.False(t, body.Get("data.question").Exists())

	status, _ = do(t, app, http.MethodPost, "/interviews/"+uuid.NewString()+"/turns", `{"answer":"x"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPost, "/interviews/not-a-uuid/turns", `{"answer":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInterviewHandler_SubmitTurnRejectsMalformedBody(t *testing.T) {
	calls := 0
	interviews := &fakeInterviews{submit: func(usecase.SubmitAnswerInput) (*usecase.TurnResult, error) {
		calls++
		return &usecase.TurnResult{Status: model.SessionActive, Question: "Next?"}, nil
	}}
	app := newTestApp(interviews, &fakeJobs{})
	path := "/interviews/" + uuid.NewString() + "/turns"

	for _, body := range []string{`{"answer": 123`, `{"answer": 123}`, `not json`} {
		status, resp := do(t, app, http.MethodPost, path, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.False(t, resp.Get("success").Bool(), body)
		assert.Equal(t, "invalid request body", resp.Get("message").String(), body)
	}

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"answer":"x"}`))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Zero(t, calls)
}

func TestInterviewHandler_Get(t *testing.T) {
	session := &model.InterviewSession{ID: uuid.New(), CandidateID: "cand-1", JobDescription: "Go services", Status: model.SessionActive}
	app := newTestApp(&fakeInterviews{session: session}, &fakeJobs{})

	status, body := do(t, app, http.MethodGet, "/interviews/"+session.ID.String(), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cand-1", body.Get("data.candidate_id").String())
	assert.Equal(t, "Go services", body.Get("data.job_description").String())

	status, _ = do(t, app, http.MethodGet, "/interviews/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestJobHandler(t *testing.T) {
	jobID := uuid.New()
	jobs := &fakeJobs{applicants: []model.Applicant{
		{ID: uuid.New(), CandidateID: "a", MatchScore: 90, ScoreTrust: model.TrustTrusted},
		{ID: uuid.New(), CandidateID: "b", MatchScore: 40, ScoreTrust: model.TrustDegraded},
	}}
	app := newTestApp(&fakeInterviews{}, jobs)

	status, body := do(t, app, http.MethodGet, "/jobs/"+jobID.String()+"/applicants?page_size=1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a", body.Get("data.0.candidate_id").String())
	assert.False(t, body.Get("data.0.score_trust").Exists())
	assert.EqualValues(t, 2, body.Get("pagination.total_items").Int())
	assert.True(t, body.Get("pagination.has_more").Bool())

	status, body = do(t, app, http.MethodPost, "/jobs/"+jobID.String()+"/applicants", `{"candidate_id":"c","resume_reference":"https://cdn/c.pdf"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "pending", body.Get("data.status").String())

	path := "/jobs/" + jobID.String() + "/applicants/" + uuid.NewString() + "/status"
	status, _ = do(t, app, http.MethodPatch, path, `{"status":"Accepted"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Accepted", jobs.lastStatus)

	jobs.statusErr = &usecase.ValidationError{Field: "status", Message: "unknown"}
	status, body = do(t, app, http.MethodPatch, path, `{"status":"hired"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "status: unknown", body.Get("message").String())

	status, body = do(t, app, http.MethodGet, "/candidates/cand-1/applications", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Backend", body.Get("data.0.title").String())
}

func TestResumeHandler_HidesDegradation(t *testing.T) {
	app := newTestApp(&fakeInterviews{}, &fakeJobs{})

	status, body := do(t, app, http.MethodPost, "/resumes/score", `{"resume_reference":"cv.pdf"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 75, body.Get("data.score").Int())
	assert.False(t, body.Get("data.degraded").Exists())
}
