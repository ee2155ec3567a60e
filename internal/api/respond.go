package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/colonyops/casetrack/internal/casework"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/internal/data/blob"
	"github.com/colonyops/casetrack/pkg/iojson"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, data map[string]any) {
	writeJSON(w, status, iojson.Error{Message: msg, Data: data})
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case task.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, task.ErrNotFound), errors.Is(err, casework.ErrAttachmentIndex):
		return http.StatusNotFound
	case errors.Is(err, blob.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case task.IsStoreError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)

	var data map[string]any
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		fields := make(map[string]any)
		for _, fe := range ve.Fields() {
			fields[fe.Field] = fe.Err.Error()
		}
		data = map[string]any{"fields": fields}
	}

	if status >= http.StatusInternalServerError {
		s.log.Error().Ctx(r.Context()).Err(err).Int("status", status).Msg("request failed")
	}
	writeError(w, status, err.Error(), data)
}
