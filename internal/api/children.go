package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/skilltrace/internal/diagnosis"
	"github.com/abhisek/skilltrace/internal/ingest"
	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/progress"
	"github.com/abhisek/skilltrace/internal/report"
	"github.com/abhisek/skilltrace/internal/store"
)

const (
	defaultDailyDays = 7
	maxDailyDays     = 366
)

type createChildRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	YearLevel int    `json:"yearLevel"`
}

type childrenResponse struct {
	Children []store.Learner `json:"children"`
}

type progressResponse struct {
	Learner       store.Learner      `json:"learner"`
	Subjects      []progress.Subject `json:"subjects"`
	ActiveDays    int                `json:"activeDays"`
	CurrentStreak int                `json:"currentStreak"`
	BestStreak    int                `json:"bestStreak"`
}

type weaknessesResponse struct {
	WeakConcepts  []diagnosis.WeakConcept  `json:"weakConcepts"`
	ErrorPatterns []diagnosis.ErrorPattern `json:"errorPatterns"`
	AIInsights    []string                 `json:"aiInsights"`
}

type dailyStatsResponse struct {
	Days []progress.Day `json:"days"`
}

type masteryResponse struct {
	LearnerID string           `json:"learnerId"`
	Records   []mastery.Record `json:"records"`
}

func (s *Server) listChildren(w http.ResponseWriter, r *http.Request) {
	learners, err := s.deps.Learners.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if learners == nil {
		learners = []store.Learner{}
	}
	writeJSON(w, http.StatusOK, childrenResponse{Children: learners})
}

func (s *Server) createChild(w http.ResponseWriter, r *http.Request) {
	var req createChildRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.writeError(w, r, badRequest("name is required"))
		return
	}
	if req.YearLevel < 1 {
		s.writeError(w, r, badRequest("yearLevel must be positive"))
		return
	}

	l, err := s.deps.Learners.Create(r.Context(), store.Learner{
		ID:        req.ID,
		Name:      req.Name,
		YearLevel: req.YearLevel,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "learner created", "learner", l.ID, "year_level", l.YearLevel)
	writeJSON(w, http.StatusCreated, l)
}

// learnerAnswers loads and grades the history of the learner named in the
// URL, failing when the learner is unknown.
func (s *Server) learnerAnswers(ctx context.Context, id string) (store.Learner, []progress.Answer, error) {
	l, err := s.deps.Learners.Get(ctx, id)
	if err != nil {
		return store.Learner{}, nil, err
	}
	events, err := s.deps.History.LearnerAttempts(ctx, id, store.QueryOpts{})
	if err != nil {
		return store.Learner{}, nil, err
	}
	return l, progress.Grade(events, s.deps.Catalog.Bank), nil
}

func (s *Server) childProgress(w http.ResponseWriter, r *http.Request) {
	l, answers, err := s.learnerAnswers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now, loc := s.now(), s.opts.Location
	writeJSON(w, http.StatusOK, progressResponse{
		Learner:       l,
		Subjects:      progress.SubjectProgress(answers, now, loc),
		ActiveDays:    progress.ActiveDays(answers, loc),
		CurrentStreak: progress.CurrentStreak(answers, now, loc),
		BestStreak:    progress.BestStreak(answers, loc),
	})
}

func (s *Server) childReport(w http.ResponseWriter, r *http.Request) {
	period, err := report.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.deps.Reports.ParentReport(r.Context(), chi.URLParam(r, "id"), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) childWeaknesses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := s.deps.Learners.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.deps.Detector.DetectWeaknesses(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := weaknessesResponse{
		WeakConcepts:  rep.WeakConcepts,
		ErrorPatterns: rep.ErrorPatterns,
		AIInsights:    s.deps.Insights.Insights(r.Context(), l.Name, rep),
	}
	if resp.WeakConcepts == nil {
		resp.WeakConcepts = []diagnosis.WeakConcept{}
	}
	if resp.ErrorPatterns == nil {
		resp.ErrorPatterns = []diagnosis.ErrorPattern{}
	}
	if resp.AIInsights == nil {
		resp.AIInsights = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) childDailyStats(w http.ResponseWriter, r *http.Request) {
	days := defaultDailyDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, badRequest("days must be an integer, got %q", v))
			return
		}
		if n > maxDailyDays {
			s.writeError(w, r, badRequest("days must be at most %d", maxDailyDays))
			return
		}
		days = n
	}

	_, answers, err := s.learnerAnswers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stats, err := progress.DailyStats(answers, days, s.now(), s.opts.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dailyStatsResponse{Days: stats})
}

func (s *Server) childMastery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Learners.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.deps.Mastery.ComputeMastery(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []mastery.Record{}
	}
	writeJSON(w, http.StatusOK, masteryResponse{LearnerID: id, Records: records})
}

func (s *Server) recordAttempt(w http.ResponseWriter, r *http.Request) {
	var in ingest.AttemptInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if in.LearnerID != "" && in.LearnerID != id {
		s.writeError(w, r, badRequest("learnerId %q does not match path", in.LearnerID))
		return
	}
	in.LearnerID = id

	ev, err := s.deps.Recorder.Record(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}
