package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("interviewtype", func(fl validator.FieldLevel) bool {
		return InterviewType(fl.Field().String()).Valid()
	})
}

const (
	MinDurationMinutes = 30
	MaxDurationMinutes = 180
	MaxTopicLength     = 200
)

// ScheduleRequest is the body of POST /api/live-interviews.
type ScheduleRequest struct {
	InterviewerID *string       `json:"interviewerId" validate:"omitempty,min=1,max=64"`
	Topic         string        `json:"topic" validate:"required,max=200"`
	InterviewType InterviewType `json:"interviewType" validate:"required,interviewtype"`
	ScheduledAt   time.Time     `json:"scheduledAt" validate:"required"`
	Duration      int           `json:"duration" validate:"required,min=30,max=180"`
}

// implements the Validator interface
func (r *ScheduleRequest) Validate() error {
	r.Topic = strings.TrimSpace(r.Topic)
	r.InterviewType = InterviewType(strings.ToUpper(strings.TrimSpace(string(r.InterviewType))))
	if r.InterviewerID != nil {
		trimmed := strings.TrimSpace(*r.InterviewerID)
		if trimmed == "" {
			r.InterviewerID = nil
		} else {
			r.InterviewerID = &trimmed
		}
	}
	return structErrors(validate.Struct(r))
}

// CompleteRequest is the body of POST /api/live-interviews/{id}/complete.
type CompleteRequest struct {
	Score         *int            `json:"score" validate:"required,min=0,max=100"`
	Feedback      string          `json:"feedback" validate:"max=10000"`
	Transcription string          `json:"transcription"`
	Analytics     json.RawMessage `json:"analytics,omitempty"`
}

func (r *CompleteRequest) Validate() error {
	if err := structErrors(validate.Struct(r)); err != nil {
		return err
	}
	if len(r.Analytics) > 0 && string(r.Analytics) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(r.Analytics, &obj); err != nil {
			return &ErrorResponse{
				Code:    "validation_error",
				Message: "analytics must be a JSON object",
				Details: []ValidationErrorDetail{{Field: "analytics", Reason: "object"}},
			}
		}
	}
	return nil
}

// structErrors converts validator output into the uniform error body.
func structErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ErrorResponse{Code: "validation_error", Message: err.Error()}
	}

	details := make([]ValidationErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ValidationErrorDetail{Field: fe.Field(), Reason: reason(fe)})
	}
	return &ErrorResponse{
		Code:    "validation_error",
		Message: fmt.Sprintf("invalid %s: %s", details[0].Field, details[0].Reason),
		Details: details,
	}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "interviewtype":
		return "must be one of TECHNICAL, HR, APTITUDE, BEHAVIORAL, DOMAIN_SPECIFIC, CODING, SYSTEM_DESIGN"
	default:
		return "failed " + fe.Tag()
	}
}
