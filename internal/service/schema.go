package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fadilmartias/hireflow/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// Schema tags the JSON shape a gateway call must return.
type Schema string

const (
	SchemaNextQuestion   Schema = "NextQuestion"
	SchemaFeedbackReport Schema = "FeedbackReport"
	SchemaMatchScore     Schema = "MatchScore"
	SchemaResumeAnalysis Schema = "ResumeAnalysis"
)

const (
	MinTimeLimitSeconds = 60
	MaxTimeLimitSeconds = 240
)

// StructuredResult is a parsed, validated gateway result.
type StructuredResult interface {
	Schema() Schema
}

type NextQuestion struct {
	Question         string `json:"question"`
	TimeLimitSeconds int    `json:"timeLimitSeconds"`
}

func (NextQuestion) Schema() Schema { return SchemaNextQuestion }

type Feedback struct {
	model.FeedbackReport
}

func (Feedback) Schema() Schema { return SchemaFeedbackReport }

type MatchScore struct {
	Score int `json:"score"`
}

func (MatchScore) Schema() Schema { return SchemaMatchScore }

type ResumeAnalysis struct {
	Score         int      `json:"score"`
	MissingSkills []string `json:"missingSkills"`
	Suggestions   []string `json:"suggestions"`
}

func (ResumeAnalysis) Schema() Schema { return SchemaResumeAnalysis }

type schemaDef struct {
	hint   string
	decode func(payload string) (StructuredResult, error)
}

var validate = validator.New()

var schemas = map[Schema]schemaDef{
	SchemaNextQuestion: {
		hint: `{"question": "<one interview question>", "timeLimit": <answer time in seconds, 60-240>}`,
		decode: func(payload string) (StructuredResult, error) {
			var w struct {
				Question  string `json:"question" validate:"required"`
				TimeLimit *int   `json:"timeLimit" validate:"required,gt=0"`
			}
			if err := decodeStrict(payload, &w); err != nil {
				return nil, err
			}
			return NextQuestion{
				Question:         strings.TrimSpace(w.Question),
				TimeLimitSeconds: clamp(*w.TimeLimit, MinTimeLimitSeconds, MaxTimeLimitSeconds),
			}, nil
		},
	},
	SchemaFeedbackReport: {
		hint: `{"score": <integer 0-100>, "strengths": ["<string>"], "improvements": ["<string>"], "summary": "<string>"}`,
		decode: func(payload string) (StructuredResult, error) {
			var w struct {
				Score        *int     `json:"score" validate:"required"`
				Strengths    []string `json:"strengths" validate:"required"`
				Improvements []string `json:"improvements" validate:"required"`
				Summary      string   `json:"summary" validate:"required"`
			}
			if err := decodeStrict(payload, &w); err != nil {
				return nil, err
			}
			return Feedback{model.FeedbackReport{
				Score:        clamp(*w.Score, 0, 100),
				Strengths:    w.Strengths,
				Improvements: w.Improvements,
				Summary:      strings.TrimSpace(w.Summary),
			}}, nil
		},
	},
	SchemaMatchScore: {
		hint: `{"score": <integer 0-100>}`,
		decode: func(payload string) (StructuredResult, error) {
			var w struct {
				Score *float64 `json:"score" validate:"required"`
			}
			if err := decodeStrict(payload, &w); err != nil {
				return nil, err
			}
			return MatchScore{Score: clamp(int(*w.Score+0.5), 0, 100)}, nil
		},
	},
	SchemaResumeAnalysis: {
		hint: `{"score": <integer 0-100>, "missingSkills": ["<string>"], "suggestions": ["<string>"]}`,
		decode: func(payload string) (StructuredResult, error) {
			var w struct {
				Score         *int     `json:"score" validate:"required"`
				MissingSkills []string `json:"missingSkills" validate:"required"`
				Suggestions   []string `json:"suggestions" validate:"required"`
			}
			if err := decodeStrict(payload, &w); err != nil {
				return nil, err
			}
			return ResumeAnalysis{
				Score:         clamp(*w.Score, 0, 100),
				MissingSkills: w.MissingSkills,
				Suggestions:   w.Suggestions,
			}, nil
		},
	},
}

// schemaError marks a payload that is valid JSON but has the wrong shape.
type schemaError struct{ err error }

func (e *schemaError) Error() string { return e.err.Error() }
func (e *schemaError) Unwrap() error { return e.err }

func decodeStrict(payload string, out any) error {
	if !gjson.Valid(payload) {
		return fmt.Errorf("invalid json: %s", payload)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &schemaError{err}
	}
	if err := validate.Struct(out); err != nil {
		return &schemaError{err}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
