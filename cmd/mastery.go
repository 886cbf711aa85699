package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/progress"
	"github.com/abhisek/skilltrace/internal/report"
	"github.com/abhisek/skilltrace/internal/store"
	"github.com/abhisek/skilltrace/internal/ui/components"
	"github.com/abhisek/skilltrace/internal/ui/layout"
	"github.com/abhisek/skilltrace/internal/ui/theme"
)

var masteryCmd = &cobra.Command{
	Use:   "mastery <learner-id>",
	Short: "Show per-concept mastery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		l, err := a.Store.LearnerRepo().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		records, err := a.Mastery.ComputeMastery(cmd.Context(), l.ID)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, records)
		}

		w := out(cmd)
		fmt.Fprintln(w, layout.RenderHeader(l.Name, fmt.Sprintf("Year %d", l.YearLevel), layout.DefaultWidth))
		fmt.Fprint(w, layout.RenderSection("Mastery", masteryBars(records)...))
		if len(records) > 0 {
			fmt.Fprintln(w, theme.Hint.Render(fmt.Sprintf("* fewer than %d attempts", a.Mastery.Config().MinAttempts)))
		}
		return nil
	},
}

func masteryBars(records []mastery.Record) []string {
	labelWidth := 0
	for _, r := range records {
		labelWidth = max(labelWidth, len(r.Name))
	}
	labelWidth = min(labelWidth, 32)
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = components.MasteryBar(r, labelWidth, layout.DefaultWidth)
	}
	return lines
}

var weaknessesCmd = &cobra.Command{
	Use:   "weaknesses <learner-id>",
	Short: "Show weak concepts and recurring error patterns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		withInsights, _ := cmd.Flags().GetBool("insights")

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		l, err := a.Store.LearnerRepo().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rep, err := a.Detector.DetectWeaknesses(cmd.Context(), l.ID)
		if err != nil {
			return err
		}
		var notes []string
		if withInsights {
			if !a.Insights.Enabled() {
				return fmt.Errorf("--insights needs an LLM provider (set llm.provider or an API key)")
			}
			notes = a.Insights.Insights(cmd.Context(), l.Name, rep)
		}
		if asJSON {
			return printJSON(cmd, struct {
				WeakConcepts  any      `json:"weakConcepts"`
				ErrorPatterns any      `json:"errorPatterns"`
				AIInsights    []string `json:"aiInsights,omitempty"`
			}{rep.WeakConcepts, rep.ErrorPatterns, notes})
		}

		w := out(cmd)
		var weak []string
		for _, c := range rep.WeakConcepts {
			line := fmt.Sprintf("%-32s %3d%%", c.Name, c.MasteryScore)
			if !c.Confident {
				line += theme.Hint.Render("  (few attempts)")
			}
			weak = append(weak, line)
		}
		var patterns []string
		for _, p := range rep.ErrorPatterns {
			patterns = append(patterns, fmt.Sprintf("%s %s", p.Description, theme.Hint.Render(fmt.Sprintf("×%d", p.Occurrences))))
		}
		fmt.Fprint(w, layout.RenderSection("Weak concepts", weak...))
		fmt.Fprint(w, layout.RenderSection("Error patterns", patterns...))
		if withInsights {
			fmt.Fprint(w, layout.RenderSection("Insights", notes...))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <learner-id>",
	Short: "Show daily activity and subject progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		l, err := a.Store.LearnerRepo().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		events, err := a.Store.EventRepo().LearnerAttempts(cmd.Context(), l.ID, store.QueryOpts{})
		if err != nil {
			return err
		}
		answers := progress.Grade(events, a.Catalog.Bank)
		now := time.Now()
		daily, err := progress.DailyStats(answers, days, now, a.Location)
		if err != nil {
			return err
		}

		w := out(cmd)
		fmt.Fprintln(w, layout.RenderHeader(l.Name, fmt.Sprintf("last %d days", days), layout.DefaultWidth))

		var dayLines []string
		for _, d := range daily {
			bar := components.NewProgressBar(d.Date, d.Accuracy, true, 48)
			if d.QuestionsAttempted == 0 {
				dayLines = append(dayLines, d.Date+"  "+theme.Hint.Render("no activity"))
				continue
			}
			dayLines = append(dayLines, bar.View()+fmt.Sprintf("  %d/%d", d.QuestionsCorrect, d.QuestionsAttempted))
		}
		fmt.Fprint(w, layout.RenderSection("Daily accuracy", dayLines...))

		var subjects []string
		for _, s := range progress.SubjectProgress(answers, now, a.Location) {
			rows := layout.RenderRows([]layout.Row{
				{Key: "accuracy", Value: fmt.Sprintf("%d%% of %d", s.Accuracy, s.Attempted)},
				{Key: "level", Value: fmt.Sprintf("%d (%d XP)", s.Level, s.XP)},
				{Key: "streak", Value: fmt.Sprintf("%d days", s.Streak)},
			})
			subjects = append(subjects, theme.Body.Bold(true).Render(fmt.Sprintf("Year %d %s", s.YearLevel, s.Subject)))
			for _, r := range rows {
				subjects = append(subjects, "  "+r)
			}
		}
		fmt.Fprint(w, layout.RenderSection("Subjects", subjects...))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <learner-id>",
	Short: "Build the parent report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		periodName, _ := cmd.Flags().GetString("period")
		asJSON, _ := cmd.Flags().GetBool("json")
		period, err := report.ParsePeriod(periodName)
		if err != nil {
			return err
		}

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.Reports.ParentReport(cmd.Context(), args[0], period)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, rep)
		}

		w := out(cmd)
		fmt.Fprintln(w, layout.RenderHeader(rep.Learner.Name, "report: "+string(rep.Period), layout.DefaultWidth))
		fmt.Fprint(w, layout.RenderSection("Summary", layout.RenderRows([]layout.Row{
			{Key: "questions", Value: fmt.Sprintf("%d attempted, %d correct", rep.Summary.QuestionsAttempted, rep.Summary.QuestionsCorrect)},
			{Key: "accuracy", Value: fmt.Sprintf("%d%%", rep.Summary.Accuracy)},
			{Key: "active days", Value: fmt.Sprint(rep.Summary.ActiveDays)},
			{Key: "streak", Value: fmt.Sprintf("%d days", rep.Summary.CurrentStreak)},
		})...))

		var strengths []string
		for _, s := range rep.Strengths {
			strengths = append(strengths, fmt.Sprintf("%s %s", theme.Correct.Render("✓"), s.Name))
		}
		fmt.Fprint(w, layout.RenderSection("Strengths", strengths...))

		var focus []string
		for _, f := range rep.Focus {
			focus = append(focus, fmt.Sprintf("%-32s %3d%%", f.Name, f.MasteryScore))
		}
		fmt.Fprint(w, layout.RenderSection("Focus areas", focus...))

		var recs []string
		for _, r := range rep.RecommendedSections {
			recs = append(recs, fmt.Sprintf("%s %s", r.Title, theme.Hint.Render("("+strings.Join(r.Concepts, ", ")+")")))
		}
		fmt.Fprint(w, layout.RenderSection("Recommended practice", recs...))

		var achievements []string
		for _, ach := range rep.Achievements {
			achievements = append(achievements, theme.Caution.Render("★")+" "+ach.Title)
		}
		fmt.Fprint(w, layout.RenderSection("Achievements", achievements...))
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [learner-id...]",
	Short: "Verify cached mastery against a full replay and repair divergence",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if len(args) == 0 && !all {
			return fmt.Errorf("name learners or pass --all")
		}

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ids := args
		if all {
			learners, err := a.Store.LearnerRepo().List(cmd.Context())
			if err != nil {
				return err
			}
			ids = ids[:0]
			for _, l := range learners {
				ids = append(ids, l.ID)
			}
		}

		w := out(cmd)
		diverged := 0
		for _, id := range ids {
			res, err := a.Mastery.Reconcile(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", id, err)
			}
			status := theme.Correct.Render("ok")
			if res.Diverged {
				diverged++
				status = theme.Caution.Render("repaired")
			}
			fmt.Fprintf(w, "%-38s %s  %d events, %d skipped\n", id, status, res.Events, res.Skipped)
		}
		fmt.Fprintf(w, "\n%d learners, %d repaired\n", len(ids), diverged)
		return nil
	},
}

func init() {
	masteryCmd.Flags().Bool("json", false, "Print records as JSON")
	weaknessesCmd.Flags().Bool("json", false, "Print the report as JSON")
	weaknessesCmd.Flags().Bool("insights", false, "Ask the LLM provider for parent-facing notes")
	statsCmd.Flags().Int("days", 7, "Number of days to show")
	reportCmd.Flags().String("period", "week", "Report period: week, month or all")
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")
	reconcileCmd.Flags().Bool("all", false, "Reconcile every learner")
}
