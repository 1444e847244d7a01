package handler

import (
	"context"

	"github.com/fadilmartias/hireflow/internal/dto"
	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/fadilmartias/hireflow/internal/usecase"
	"github.com/fadilmartias/hireflow/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InterviewService interface {
	Start(ctx context.Context, candidateID, jobTitle, jobDescription string) (*usecase.StartResult, error)
	SubmitAnswer(ctx context.Context, in usecase.SubmitAnswerInput) (*usecase.TurnResult, error)
	GetSession(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error)
}

type InterviewHandler struct {
	uc InterviewService
}

func NewInterviewHandler(uc InterviewService) *InterviewHandler {
	return &InterviewHandler{uc: uc}
}

func (h *InterviewHandler) RegisterRoutes(r fiber.Router) {
	r.Post("/interviews", h.Start)
	r.Post("/interviews/:id/turns", h.SubmitTurn)
	r.Get("/interviews/:id", h.Get)
}

func (h *InterviewHandler) Start(c *fiber.Ctx) error {
	var req dto.StartInterviewRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "", err)
	}

	res, err := h.uc.Start(c.UserContext(), req.CandidateID, req.JobTitle, req.JobDescription)
	if err != nil {
		return respondError(c, "failed to start interview", err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusCreated,
		Message: "Interview started",
		Data: dto.StartInterviewResponse{
			SessionID:        res.SessionID,
			Question:         res.Question,
			TimeLimitSeconds: res.TimeLimitSeconds,
		},
	})
}

func (h *InterviewHandler) SubmitTurn(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, "", err)
	}
	var req dto.SubmitTurnRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "", err)
	}

	res, err := h.uc.SubmitAnswer(c.UserContext(), usecase.SubmitAnswerInput{
		SessionID:    id,
		Answer:       req.Answer,
		EndInterview: req.EndInterview,
	})
	if err != nil {
		return respondError(c, "failed to submit answer", err)
	}

	message := "Next question"
	if res.Status == model.SessionCompleted {
		message = "Interview completed"
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: message,
		Data: dto.TurnResponse{
			Status:           res.Status,
			Question:         res.Question,
			TimeLimitSeconds: res.TimeLimitSeconds,
			Feedback:         res.Feedback,
		},
	})
}

func (h *InterviewHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, "", err)
	}

	session, err := h.uc.GetSession(c.UserContext(), id)
	if err != nil {
		return respondError(c, "failed to get interview", err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get interview",
		Data:    dto.NewInterviewSessionDTO(session),
	})
}
