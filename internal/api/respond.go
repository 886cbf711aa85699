package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/abhisek/skilltrace/internal/exam"
	"github.com/abhisek/skilltrace/internal/ingest"
	"github.com/abhisek/skilltrace/internal/progress"
	"github.com/abhisek/skilltrace/internal/questionbank"
	"github.com/abhisek/skilltrace/internal/report"
	"github.com/abhisek/skilltrace/internal/scoring"
	"github.com/abhisek/skilltrace/internal/skillgraph"
	"github.com/abhisek/skilltrace/internal/store"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, ingest.ErrMissingLearner),
		errors.Is(err, report.ErrInvalidPeriod),
		errors.Is(err, progress.ErrInvalidDays),
		errors.Is(err, exam.ErrInvalidCount),
		errors.Is(err, exam.ErrDuplicateQuestion),
		errors.Is(err, scoring.ErrEmptyExam):
		return http.StatusBadRequest
	case errors.Is(err, scoring.ErrOptionOutOfRange),
		errors.Is(err, exam.ErrEmptyScope),
		errors.Is(err, store.ErrLearnerExists):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrLearnerNotFound),
		errors.Is(err, questionbank.ErrUnknownQuestion),
		errors.Is(err, questionbank.ErrUnknownSection),
		errors.Is(err, skillgraph.ErrUnknownToken):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}
