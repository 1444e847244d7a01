package util

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/fadilmartias/hireflow/internal/config"
	"github.com/fadilmartias/hireflow/internal/response"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type SuccessResponseFormat struct {
	Code       int
	Message    string
	Data       any
	Pagination *response.Pagination
	Meta       any
}

type OrderedSuccessResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Meta       any                  `json:"meta,omitempty"`
	Pagination *response.Pagination `json:"pagination,omitempty"`
	Data       any                  `json:"data,omitempty"`
}

type ErrorResponseFormat struct {
	Code       int
	Message    string
	DevMessage string
	Details    any
	Trace      string
}

type OrderedErrorResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	DevMessage string `json:"dev_message,omitempty"`
	Details    any    `json:"details,omitempty"`
	Trace      string `json:"trace,omitempty"`
}

// RequestError is a client error a handler returns instead of writing the
// response itself. RequestErrorResponse renders it.
type RequestError struct {
	Code    int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Err }

func BadRequest(message string, err error) *RequestError {
	return &RequestError{Code: fiber.StatusBadRequest, Message: message, Err: err}
}

// NewFormError reports per-field validation failures keyed by field name.
func NewFormError(message string, fields map[string]string) *RequestError {
	return &RequestError{Code: fiber.StatusBadRequest, Message: message, Fields: fields}
}

// SuccessResponse writes the standard success envelope.
func SuccessResponse(c *fiber.Ctx, params SuccessResponseFormat) error {
	response := OrderedSuccessResponse{
		Success:    true,
		Message:    params.Message,
		Data:       params.Data,
		Pagination: params.Pagination,
		Meta:       params.Meta,
	}
	return c.Status(params.Code).JSON(response)
}

// ErrorResponse writes the standard error envelope. Debug details are
// only attached outside production.
func ErrorResponse(c *fiber.Ctx, params ErrorResponseFormat, errs ...error) error {
	response := OrderedErrorResponse{
		Success: false,
		Message: params.Message,
	}
	if params.Details != nil {
		response.Details = params.Details
	}
	if !config.LoadAppConfig().IsProduction() {
		if len(errs) > 0 && errs[0] != nil {
			response.DevMessage = errs[0].Error()
			response.Details = errs[0]
			response.Trace = string(debug.Stack())
		}

		if params.DevMessage != "" {
			response.DevMessage = params.DevMessage
		}
		if params.Details != nil {
			response.Details = params.Details
		}
		if params.Trace != "" {
			response.Trace = params.Trace
		}
	}

	errorCode := params.Code
	if params.Code == 0 {
		errorCode = fiber.StatusInternalServerError
	}
	return c.Status(errorCode).JSON(response)
}

func RequestErrorResponse(c *fiber.Ctx, e *RequestError) error {
	params := ErrorResponseFormat{Code: e.Code, Message: e.Message}
	if len(e.Fields) > 0 {
		params.Details = e.Fields
	}
	return ErrorResponse(c, params, e.Err)
}

// NewErrorHandler renders errors that escape a handler. Outside a
// *fiber.Error or *RequestError the error text is internal and is replaced
// with a generic message in production.
func NewErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var re *RequestError
		if errors.As(err, &re) {
			return RequestErrorResponse(c, re)
		}

		code := fiber.StatusInternalServerError
		message := utils.StatusMessage(code)
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
		case !production && err.Error() != "":
			message = err.Error()
		}
		return ErrorResponse(c, ErrorResponseFormat{Code: code, Message: message}, err)
	}
}
