package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// maxBodyBytes mirrors the Lambda synchronous invocation payload limit.
const maxBodyBytes = 6 << 20

// ServeHTTP lets the Lambda handler run behind a plain net/http server, which
// is how the local development server uses it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			corrID := correlationID(toProxyRequest(r, "").Headers)
			slog.WarnContext(r.Context(), "request body too large", "correlation_id", corrID, "limit", tooLarge.Limit)
			writeHTTP(w, writeError(http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"}, corrID))
			return
		}
		slog.WarnContext(r.Context(), "read request body", "err", err)
		body = nil
	}

	resp, _ := h.Handle(r.Context(), toProxyRequest(r, string(body)))
	writeHTTP(w, resp)
}

func writeHTTP(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

func toProxyRequest(r *http.Request, body string) events.APIGatewayProxyRequest {
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	query := make(map[string]string, len(r.URL.Query()))
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}
	return events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		MultiValueHeaders:     r.Header,
		QueryStringParameters: query,
		Body:                  body,
	}
}
