// Package apierror maps engine errors onto HTTP responses.
package apierror

import (
	"errors"
	"net/http"

	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/ai"
	"github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/internal/service/session"
	"github.com/zhouzirui/consultant/pkg/utils"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, mode.ErrUnknownMode),
		errors.Is(err, ai.ErrInvalidParams),
		errors.Is(err, consult.ErrEmptyMessage),
		errors.Is(err, consult.ErrUnknownWorkflow),
		errors.Is(err, session.ErrCorruptTranscript):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoActiveSession),
		errors.Is(err, consult.ErrNothingToRetry):
		return http.StatusConflict
	case errors.Is(err, ai.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ai.ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrAuth), errors.Is(err, ai.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error body. Provider failures carry their kind.
func Respond(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}

	var failure *ai.Failure
	if errors.As(err, &failure) {
		body["kind"] = string(failure.Kind)
	}
	utils.RespondJSON(w, Status(err), body)
}
