package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"prompt-gateway/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Relayer is the gateway use case consumed by Handler.
type Relayer interface {
	Relay(ctx context.Context, in usecase.RelayInput) (usecase.RelayOutput, error)
}

// Handler adapts API Gateway proxy events to the relay use case. Every
// response it produces, errors included, carries the CORS header set.
type Handler struct {
	relay Relayer
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewHandler(relay Relayer) (*Handler, error) {
	if relay == nil {
		return nil, errors.New("handler: relayer must not be nil")
	}
	return &Handler{relay: relay}, nil
}

// Handle serves one request. It never returns an error to the Lambda runtime;
// all failures become JSON error responses.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	corrID := correlationID(req.Headers)
	logger := slog.With("correlation_id", corrID, "method", req.HTTPMethod, "path", req.Path)

	if req.HTTPMethod == http.MethodOptions {
		return respond(http.StatusOK, "", corrID), nil
	}

	out, err := h.relay.Relay(ctx, usecase.RelayInput{Body: []byte(req.Body), Base64: req.IsBase64Encoded})
	if err != nil {
		status, payload := mapError(err)
		attrs := []any{"status", status, "err", err, "latency_ms", time.Since(start).Milliseconds()}
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "relay failed", attrs...)
		} else {
			logger.InfoContext(ctx, "relay rejected", attrs...)
		}
		return writeError(status, payload, corrID), nil
	}

	logger.InfoContext(ctx, "relay completed",
		"prompt_id", out.PromptID,
		"prompt_injected", out.Injected,
		"upstream_status", out.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return respond(out.StatusCode, string(out.Body), corrID), nil
}

func mapError(err error) (int, errorResponse) {
	var relayErr *usecase.Error
	if !errors.As(err, &relayErr) {
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
	payload := errorResponse{Error: relayErr.Summary, Details: relayErr.Details}
	switch relayErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, payload
	case usecase.ErrorUpstreamUnreachable:
		return http.StatusBadGateway, payload
	default:
		return http.StatusInternalServerError, payload
	}
}

func writeError(status int, payload errorResponse, corrID string) events.APIGatewayProxyResponse {
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte(`{"error":"internal error"}`)
	}
	return respond(status, string(b), corrID)
}

func respond(status int, body, corrID string) events.APIGatewayProxyResponse {
	headers := corsHeaders()
	headers[correlationHeader] = corrID
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
		"Content-Type":                 "application/json",
	}
}

// correlationID reuses the caller's X-Correlation-Id, matched
// case-insensitively, or mints a new one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return newUUID()
}

var newUUID = func() string {
	return uuid.NewString()
}
