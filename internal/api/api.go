// Package api holds the request and response shapes shared by the Lambda
// handler and the local HTTP server, and the mapping from service errors to
// HTTP statuses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"aurora-qa/internal/domain"
	"aurora-qa/internal/usecase"
)

const (
	PathHealth         = "/health"
	PathAsk            = "/ask"
	PathMessagesSample = "/debug/messages_sample"
	PathMemberNames    = "/debug/member_names"
	PathMetrics        = "/metrics"
)

// Error codes the transport adds on top of usecase.ErrorCode.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// Service is what both command surfaces call into. *usecase.AskService
// satisfies it.
type Service interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
	MessagesSample(ctx context.Context) ([]json.RawMessage, error)
	MemberNames(ctx context.Context) ([]domain.MemberSummary, error)
}

// AskRequest is the POST /ask body. A nil Question means the field was
// missing, which is different from an empty question.
type AskRequest struct {
	Question *string `json:"question"`
}

type AskResponse struct {
	Answer       string `json:"answer"`
	Member       string `json:"member,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	Error        string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Health is the body of every successful health check.
var Health = HealthResponse{Status: "ok"}

// ErrorStatus maps an error to its HTTP status and response code.
func ErrorStatus(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorProviderUnavailable:
		return http.StatusServiceUnavailable, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

// MissingQuestion is the error for an /ask call without a question.
func MissingQuestion() error {
	return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "missing_question"}
}

// Ask runs the question and shapes the result. An unavailable provider still
// carries the user-facing answer text alongside the error code.
func Ask(ctx context.Context, svc Service, question string) (int, any) {
	out, err := svc.Ask(ctx, usecase.AskInput{Question: question})
	if err != nil {
		status, code := ErrorStatus(err)
		if out.Answer != "" {
			return status, AskResponse{Answer: out.Answer, Error: code}
		}
		return status, ErrorResponse{Error: code}
	}
	return http.StatusOK, AskResponse{
		Answer:       out.Answer,
		Member:       out.Member,
		QuestionType: out.QuestionType,
		Resolution:   out.Resolution,
	}
}

// MessagesSample returns the raw sample as a JSON array.
func MessagesSample(ctx context.Context, svc Service) (int, any) {
	sample, err := svc.MessagesSample(ctx)
	if err != nil {
		status, code := ErrorStatus(err)
		return status, ErrorResponse{Error: code}
	}
	if sample == nil {
		sample = []json.RawMessage{}
	}
	return http.StatusOK, sample
}

// MemberNames returns a name to message-count object.
func MemberNames(ctx context.Context, svc Service) (int, any) {
	summaries, err := svc.MemberNames(ctx)
	if err != nil {
		status, code := ErrorStatus(err)
		return status, ErrorResponse{Error: code}
	}
	counts := make(map[string]int, len(summaries))
	for _, s := range summaries {
		counts[s.Name] = s.Messages
	}
	return http.StatusOK, counts
}
