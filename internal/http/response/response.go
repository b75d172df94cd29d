package response

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// meta.Count is only set for list payloads such as session history.
type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Count     *int      `json:"count,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, envelope{Success: true, Data: data, Meta: buildMeta(r)})
}

// List writes items with their count in meta. An empty result is sent as []
// rather than null.
func List[T any](w http.ResponseWriter, r *http.Request, status int, items []T) {
	if items == nil {
		items = []T{}
	}
	m := buildMeta(r)
	n := len(items)
	m.Count = &n
	write(w, r, status, envelope{Success: true, Data: items, Meta: m})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	write(w, r, status, envelope{Error: &apiError{Code: code, Message: message, Details: details}, Meta: buildMeta(r)})
}

// Attachment sends body as a file download, outside the envelope.
func Attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func write(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", env.Meta.RequestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.WarnContext(r.Context(), "write response body", "status", status, "request_id", env.Meta.RequestID, "error", err)
	}
}

// buildMeta prefers the chi request id, then the caller's X-Request-Id, and
// mints one otherwise.
func buildMeta(r *http.Request) meta {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get("X-Request-Id")
	}
	if id == "" {
		id = uuid.NewString()
	}
	return meta{RequestID: id, Timestamp: time.Now().UTC()}
}
