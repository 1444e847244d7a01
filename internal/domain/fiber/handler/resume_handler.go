package handler

import (
	"context"

	"github.com/fadilmartias/hireflow/internal/dto"
	"github.com/fadilmartias/hireflow/internal/usecase"
	"github.com/fadilmartias/hireflow/internal/util"
	"github.com/gofiber/fiber/v2"
)

type ResumeService interface {
	ScoreResume(ctx context.Context, resumeReference, jobDescription string) (*usecase.ResumeScore, error)
}

type ResumeHandler struct {
	uc ResumeService
}

func NewResumeHandler(uc ResumeService) *ResumeHandler {
	return &ResumeHandler{uc: uc}
}

// RegisterRoutes mounts the scoring route behind mw, typically a rate limiter.
func (h *ResumeHandler) RegisterRoutes(r fiber.Router, mw ...fiber.Handler) {
	handlers := append(mw, h.Score)
	r.Post("/resumes/score", handlers...)
}

func (h *ResumeHandler) Score(c *fiber.Ctx) error {
	var req dto.ScoreResumeRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "", err)
	}

	res, err := h.uc.ScoreResume(c.UserContext(), req.ResumeReference, req.JobDescription)
	if err != nil {
		return respondError(c, "failed to score resume", err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Resume analysed",
		Data: dto.ScoreResumeResponse{
			Score:         res.Score,
			MissingSkills: res.MissingSkills,
			Suggestions:   res.Suggestions,
		},
	})
}
