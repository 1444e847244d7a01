package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/fadilmartias/hireflow/internal/usecase"
	"github.com/fadilmartias/hireflow/internal/util"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = newValidator()

// newValidator reports fields by their json name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// HTTPStatus maps usecase errors to a response code.
func HTTPStatus(err error) int {
	var nf *usecase.NotFoundError
	var ve *usecase.ValidationError
	var se *usecase.StoreError
	var re *util.RequestError
	var fe *fiber.Error
	switch {
	case errors.As(err, &re):
		return re.Code
	case errors.As(err, &nf):
		return fiber.StatusNotFound
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.As(err, &se):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, message string, err error) error {
	var re *util.RequestError
	if errors.As(err, &re) {
		return util.RequestErrorResponse(c, re)
	}
	code := HTTPStatus(err)
	if code == fiber.StatusNotFound || code == fiber.StatusBadRequest {
		message = err.Error()
	}
	return util.ErrorResponse(c, util.ErrorResponseFormat{Code: code, Message: message}, err)
}

// bind parses the JSON body into req and runs struct validation. It writes
// nothing; callers hand the error to respondError and stop.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return util.BadRequest("invalid request body", err)
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return util.BadRequest("invalid request", err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return util.NewFormError("validation failed", fields)
	}
	return nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, &usecase.ValidationError{Field: name, Message: "must be a valid uuid"}
	}
	return id, nil
}
