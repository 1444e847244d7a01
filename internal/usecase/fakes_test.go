package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/repository"
	"github.com/fadilmartias/hireflow/internal/service"
	"github.com/google/uuid"
)

type fakeGateway struct {
	mu      sync.Mutex
	calls   map[service.Schema]int
	specs   []service.PromptSpec
	respond func(spec service.PromptSpec) (service.StructuredResult, error)
}

func newFakeGateway(respond func(spec service.PromptSpec) (service.StructuredResult, error)) *fakeGateway {
	return &fakeGateway{calls: make(map[service.Schema]int), respond: respond}
}

func failingGateway(reason service.FailureReason) *fakeGateway {
	return newFakeGateway(func(service.PromptSpec) (service.StructuredResult, error) {
		return nil, &service.InferenceFailure{Reason: reason}
	})
}

func (g *fakeGateway) Generate(_ context.Context, spec service.PromptSpec) (service.StructuredResult, error) {
	g.mu.Lock()
	g.calls[spec.Schema]++
	g.specs = append(g.specs, spec)
	g.mu.Unlock()
	return g.respond(spec)
}

func (g *fakeGateway) count(schema service.Schema) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[schema]
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.InterviewSession
	failNext error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[uuid.UUID]model.InterviewSession)}
}

func (m *memorySessions) Create(_ context.Context, s *model.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (m *memorySessions) Update(_ context.Context, s *model.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	stored, ok := m.sessions[s.ID]
	if !ok || stored.Version != s.Version {
		return repository.ErrVersionConflict
	}
	s.Version++
	m.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (m *memorySessions) FindByID(_ context.Context, id uuid.UUID) (*model.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneSession(s)
	return &out, nil
}

func (m *memorySessions) get(id uuid.UUID) model.InterviewSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.sessions[id])
}

func (m *memorySessions) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func cloneSession(s model.InterviewSession) model.InterviewSession {
	s.Conversation = slices.Clone(s.Conversation)
	return s
}

type memoryJobs struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]model.JobPosting
	saves     int
	saveErr   error
	lastSaved []model.Applicant
}

func newMemoryJobs(jobs ...model.JobPosting) *memoryJobs {
	m := &memoryJobs{jobs: make(map[uuid.UUID]model.JobPosting)}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *memoryJobs) FindByID(_ context.Context, id uuid.UUID) (*model.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	j.Applicants = slices.Clone(j.Applicants)
	return &j, nil
}

func (m *memoryJobs) SaveApplicants(_ context.Context, applicants []model.Applicant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.lastSaved = slices.Clone(applicants)
	for _, a := range applicants {
		j := m.jobs[a.JobPostingID]
		for i := range j.Applicants {
			if j.Applicants[i].ID == a.ID {
				j.Applicants[i].MatchScore = a.MatchScore
				j.Applicants[i].ScoreTrust = a.ScoreTrust
			}
		}
	}
	return nil
}

func (m *memoryJobs) UpdateApplicantStatus(_ context.Context, jobID, applicantID uuid.UUID, status model.ApplicationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range j.Applicants {
		if j.Applicants[i].ID == applicantID {
			j.Applicants[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memoryJobs) AddApplicant(_ context.Context, a *model.Applicant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[a.JobPostingID]
	if !ok {
		return errors.New("foreign key violation")
	}
	j.Applicants = append(j.Applicants, *a)
	m.jobs[a.JobPostingID] = j
	return nil
}

func (m *memoryJobs) FindByCandidate(_ context.Context, candidateID string) ([]model.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.JobPosting
	for _, j := range m.jobs {
		var mine []model.Applicant
		for _, a := range j.Applicants {
			if a.CandidateID == candidateID {
				mine = append(mine, a)
			}
		}
		if len(mine) > 0 {
			j.Applicants = mine
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memoryJobs) applicant(jobID, id uuid.UUID) model.Applicant {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.jobs[jobID].Applicants {
		if a.ID == id {
			return a
		}
	}
	return model.Applicant{}
}

type fakeResumes map[string]string

func (f fakeResumes) ReadText(_ context.Context, ref string) (string, error) {
	text, ok := f[ref]
	if !ok {
		return "", errors.New("unreadable resume")
	}
	return text, nil
}

func (f fakeResumes) CheckReference(ref string) error {
	if strings.HasPrefix(ref, "/") || strings.Contains(ref, "..") {
		return service.ErrReferenceNotAllowed
	}
	return nil
}
