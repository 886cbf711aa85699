package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/skilltrace/internal/exam"
	"github.com/abhisek/skilltrace/internal/scoring"
	"github.com/abhisek/skilltrace/internal/store"
)

type examQuestion struct {
	ID           string   `json:"id"`
	SectionID    string   `json:"sectionId"`
	SectionTitle string   `json:"sectionTitle"`
	Text         string   `json:"text"`
	Difficulty   int      `json:"difficulty"`
	Options      []string `json:"options"`
}

type examResponse struct {
	ID          string         `json:"id"`
	YearLevel   int            `json:"yearLevel"`
	Subject     string         `json:"subject"`
	Strategy    exam.Strategy  `json:"strategy"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Questions   []examQuestion `json:"questions"`
}

type scoreRequest struct {
	QuestionIDs []string       `json:"questionIds"`
	Answers     map[string]int `json:"answers"`
	LearnerID   string         `json:"learnerId,omitempty"`
	AnsweredAt  time.Time      `json:"answeredAt,omitzero"`
}

type scoreResponse struct {
	*scoring.Result
	Recorded []store.AttemptEvent `json:"recorded,omitempty"`
}

type tokenResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Prerequisites []string `json:"prerequisites"`
	Dependents    []string `json:"dependents"`
}

// generateExam returns questions without answers; clients submit the
// question ids back to /v1/exams/score.
func (s *Server) generateExam(w http.ResponseWriter, r *http.Request) {
	var spec exam.Spec
	if err := decodeJSON(r, &spec); err != nil {
		s.writeError(w, r, err)
		return
	}
	if spec.Subject == "" || spec.YearLevel == 0 {
		s.writeError(w, r, badRequest("yearLevel and subject are required"))
		return
	}
	if spec.Count == 0 {
		spec.Count = s.opts.DefaultExamCount
	}

	e, err := s.deps.Exams.Generate(spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := examResponse{
		ID:          e.ID,
		YearLevel:   e.Spec.YearLevel,
		Subject:     e.Spec.Subject,
		Strategy:    e.Strategy,
		GeneratedAt: e.GeneratedAt,
		Questions:   make([]examQuestion, len(e.Questions)),
	}
	for i, q := range e.Questions {
		opts := make([]string, len(q.Options))
		for j, o := range q.Options {
			opts[j] = o.Text
		}
		resp.Questions[i] = examQuestion{
			ID:           q.ID,
			SectionID:    q.SectionID,
			SectionTitle: q.SectionTitle,
			Text:         q.Text,
			Difficulty:   q.Difficulty,
			Options:      opts,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) scoreExam(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	questions, err := exam.Rebuild(s.deps.Catalog.Bank, req.QuestionIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := scoring.Score(questions, req.Answers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := scoreResponse{Result: res}
	if req.LearnerID != "" {
		at := req.AnsweredAt
		if at.IsZero() {
			at = s.now()
		}
		resp.Recorded, err = s.deps.Recorder.RecordExam(r.Context(), req.LearnerID, questions, req.Answers, at)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	g := s.deps.Catalog.Graph
	tok, err := g.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := tokenResponse{
		ID:            tok.ID,
		Name:          tok.DisplayName(),
		Description:   tok.Description,
		Prerequisites: tok.Prerequisites,
		Dependents:    g.Dependents(tok.ID),
	}
	if resp.Prerequisites == nil {
		resp.Prerequisites = []string{}
	}
	if resp.Dependents == nil {
		resp.Dependents = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}
