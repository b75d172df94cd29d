package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sandeepkv93/attendance-session-service/internal/evidence"
	"github.com/sandeepkv93/attendance-session-service/internal/http/response"
	"github.com/sandeepkv93/attendance-session-service/internal/service"
)

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

// writeError renders err in the standard envelope. Storage failures are
// logged and reported without their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		if se.Code == service.ErrUnauthenticated.Code {
			response.Error(w, r, http.StatusUnauthorized, se.Code, se.Message, nil)
			return
		}
		status := statusForKind(se.Kind)
		if status == http.StatusServiceUnavailable {
			slog.ErrorContext(r.Context(), "request failed", "code", se.Code, "error", err)
		}
		response.Error(w, r, status, se.Code, se.Message, nil)
		return
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "request validation failed", fieldErrors(ve))
		return
	}
	switch {
	case errors.Is(err, evidence.ErrTooLarge):
		response.Error(w, r, http.StatusRequestEntityTooLarge, "PHOTO_TOO_LARGE", err.Error(), nil)
		return
	case errors.Is(err, evidence.ErrUnsupportedType):
		response.Error(w, r, http.StatusBadRequest, "PHOTO_UNSUPPORTED", err.Error(), nil)
		return
	}
	slog.ErrorContext(r.Context(), "request failed", "error", err)
	response.Error(w, r, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "temporarily unavailable, retry later", nil)
}

func badRequest(w http.ResponseWriter, r *http.Request, code, message string) {
	response.Error(w, r, http.StatusBadRequest, code, message, nil)
}

func fieldErrors(ve validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}
