package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"manifestproxyd/internal/logger"
	"manifestproxyd/internal/models"
)

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a pipeline error to its status code. Upstream and
// transform details stay in the logs; only argument errors are echoed back.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{RequestID: logger.RequestIDFromContext(r.Context())}
	var code int
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		code = http.StatusBadRequest
		resp.Error = "invalid_argument"
		resp.Detail = err.Error()
	case errors.Is(err, models.ErrUpstreamFetch):
		code = http.StatusBadGateway
		resp.Error = "upstream_fetch_failed"
		resp.Detail = "the manifest could not be retrieved"
	default:
		code = http.StatusInternalServerError
		resp.Error = "transform_failed"
		resp.Detail = "the manifest could not be rewritten"
	}
	writeJSON(w, code, resp)
}
