// Package handler serves the QA command surface behind API Gateway.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"aurora-qa/internal/api"
	"aurora-qa/internal/logging"
	"aurora-qa/internal/usecase"
)

type Handler struct {
	svc    api.Service
	logger *zap.Logger
	newID  func() string
}

type Option func(*Handler)

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(svc api.Service, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: service must not be nil")
	}
	h := &Handler{
		svc:    svc,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type route struct {
	methods []string
	serve   func(ctx context.Context, h *Handler, req events.APIGatewayProxyRequest) (int, any)
}

var routes = map[string]route{
	api.PathHealth: {
		methods: []string{http.MethodGet},
		serve: func(context.Context, *Handler, events.APIGatewayProxyRequest) (int, any) {
			return http.StatusOK, api.Health
		},
	},
	api.PathAsk: {
		methods: []string{http.MethodGet, http.MethodPost},
		serve: func(ctx context.Context, h *Handler, req events.APIGatewayProxyRequest) (int, any) {
			return h.serveAsk(ctx, req)
		},
	},
	api.PathMessagesSample: {
		methods: []string{http.MethodGet},
		serve: func(ctx context.Context, h *Handler, _ events.APIGatewayProxyRequest) (int, any) {
			return api.MessagesSample(ctx, h.svc)
		},
	},
	api.PathMemberNames: {
		methods: []string{http.MethodGet},
		serve: func(ctx context.Context, h *Handler, _ events.APIGatewayProxyRequest) (int, any) {
			return api.MemberNames(ctx, h.svc)
		},
	},
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	correlationID := headerValue(req.Headers, logging.CorrelationHeader)
	if correlationID == "" {
		correlationID = h.newID()
	}
	ctx = logging.WithCorrelationID(ctx, correlationID)
	logger := logging.FromContext(ctx, h.logger)

	path := normalizePath(req.Path)
	method := strings.ToUpper(req.HTTPMethod)
	headers := map[string]string{}

	var (
		status int
		body   any
	)
	rt, ok := routes[path]
	switch {
	case !ok:
		status, body = http.StatusNotFound, api.ErrorResponse{Error: api.CodeNotFound}
	case !slices.Contains(rt.methods, method):
		status, body = http.StatusMethodNotAllowed, api.ErrorResponse{Error: api.CodeMethodNotAllowed}
		headers["Allow"] = strings.Join(rt.methods, ", ")
	default:
		status, body = rt.serve(ctx, h, req)
	}

	logger.Info("http request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
	)
	return jsonResponse(status, body, correlationID, headers), nil
}

func (h *Handler) serveAsk(ctx context.Context, req events.APIGatewayProxyRequest) (int, any) {
	question, err := askQuestion(req)
	if err != nil {
		logging.FromContext(ctx, h.logger).Warn("invalid ask request", zap.Error(err))
		status, code := api.ErrorStatus(err)
		return status, api.ErrorResponse{Error: code}
	}
	return api.Ask(ctx, h.svc, question)
}

// askQuestion takes the question from the query string on GET and from the
// JSON body on POST.
func askQuestion(req events.APIGatewayProxyRequest) (string, error) {
	if strings.ToUpper(req.HTTPMethod) == http.MethodGet {
		if q, ok := req.QueryStringParameters["question"]; ok {
			return q, nil
		}
		if qs := req.MultiValueQueryStringParameters["question"]; len(qs) > 0 {
			return qs[0], nil
		}
		return "", api.MissingQuestion()
	}

	raw := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return "", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}
		}
		raw = string(decoded)
	}
	var in api.AskRequest
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return "", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}
	}
	if in.Question == nil {
		return "", api.MissingQuestion()
	}
	return *in.Question, nil
}

func jsonResponse(status int, body any, correlationID string, extra map[string]string) events.APIGatewayProxyResponse {
	buf, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		buf = []byte(`{"error":"` + string(usecase.ErrorInternal) + `"}`)
	}
	headers := map[string]string{
		"Content-Type":            "application/json",
		logging.CorrelationHeader: correlationID,
	}
	for k, v := range extra {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(buf),
	}
}

// headerValue looks a header up case-insensitively; API Gateway passes
// headers through with whatever casing the client used.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func normalizePath(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}
