package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"credits-engine/internal/domain"
	"credits-engine/internal/infra/logging"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyFinalized),
		errors.Is(err, domain.ErrInsufficientCredits),
		errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal server error"
	case errors.Is(err, domain.ErrInsufficientCredits):
		msg = "Insufficient Credits"
	case errors.Is(err, domain.ErrAlreadyFinalized):
		msg = "Order already finalized"
	}
	writeJSON(w, status, messageResponse{Message: msg})
}
