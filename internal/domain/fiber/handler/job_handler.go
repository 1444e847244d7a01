package handler

import (
	"context"

	"github.com/fadilmartias/hireflow/internal/dto"
	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/response"
	"github.com/fadilmartias/hireflow/internal/usecase"
	"github.com/fadilmartias/hireflow/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type JobService interface {
	ApplyForJob(ctx context.Context, jobID uuid.UUID, candidateID, resumeReference string) (*model.Applicant, error)
	ListApplicants(ctx context.Context, jobID uuid.UUID) ([]model.Applicant, error)
	SetApplicantStatus(ctx context.Context, jobID, applicantID uuid.UUID, status string) error
	ListCandidateApplications(ctx context.Context, candidateID string) ([]usecase.CandidateApplication, error)
}

type JobHandler struct {
	uc JobService
}

func NewJobHandler(uc JobService) *JobHandler {
	return &JobHandler{uc: uc}
}

func (h *JobHandler) RegisterRoutes(r fiber.Router) {
	r.Post("/jobs/:id/applicants", h.Apply)
	r.Get("/jobs/:id/applicants", h.ListApplicants)
	r.Patch("/jobs/:id/applicants/:applicantId/status", h.UpdateStatus)
	r.Get("/candidates/:id/applications", h.CandidateApplications)
}

func (h *JobHandler) Apply(c *fiber.Ctx) error {
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, "", err)
	}
	var req dto.ApplyForJobRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "", err)
	}

	applicant, err := h.uc.ApplyForJob(c.UserContext(), jobID, req.CandidateID, req.ResumeReference)
	if err != nil {
		return respondError(c, "failed to submit application", err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusCreated,
		Message: "Application submitted successfully",
		Data:    dto.NewApplicantDTO(*applicant),
	})
}

// ListApplicants returns applicants best match first. Unscored and
// heuristic scores are refreshed before listing.
func (h *JobHandler) ListApplicants(c *fiber.Ctx) error {
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, "", err)
	}

	applicants, err := h.uc.ListApplicants(c.UserContext(), jobID)
	if err != nil {
		return respondError(c, "failed to fetch applicants", err)
	}

	page, pagination := response.Paginate(dto.NewApplicantDTOs(applicants), c.QueryInt("page", 1), c.QueryInt("page_size", response.DefaultPageSize))
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:       fiber.StatusOK,
		Message:    "Success get applicants",
		Data:       page,
		Pagination: pagination,
	})
}

func (h *JobHandler) UpdateStatus(c *fiber.Ctx) error {
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, "", err)
	}
	applicantID, err := paramUUID(c, "applicantId")
	if err != nil {
		return respondError(c, "", err)
	}
	var req dto.UpdateApplicantStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "", err)
	}

	if err := h.uc.SetApplicantStatus(c.UserContext(), jobID, applicantID, req.Status); err != nil {
		return respondError(c, "failed to update status", err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Applicant status updated",
	})
}

func (h *JobHandler) CandidateApplications(c *fiber.Ctx) error {
	apps, err := h.uc.ListCandidateApplications(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "failed to fetch applications", err)
	}

	data := make([]dto.CandidateApplicationDTO, 0, len(apps))
	for _, a := range apps {
		data = append(data, dto.CandidateApplicationDTO{JobID: a.JobID, Title: a.Title, Status: a.Status, AppliedAt: a.AppliedAt})
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get applications",
		Data:    data,
	})
}
