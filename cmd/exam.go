package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/exam"
	"github.com/abhisek/skilltrace/internal/ingest"
	"github.com/abhisek/skilltrace/internal/scoring"
	"github.com/abhisek/skilltrace/internal/store"
	"github.com/abhisek/skilltrace/internal/ui/theme"
)

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Generate and score exams",
}

var examGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draw an exam for a year level and subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, cfg, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		year, _ := cmd.Flags().GetInt("year")
		subject, _ := cmd.Flags().GetString("subject")
		count, _ := cmd.Flags().GetInt("count")
		seed, _ := cmd.Flags().GetUint64("seed")
		strategyName, _ := cmd.Flags().GetString("strategy")
		asJSON, _ := cmd.Flags().GetBool("json")

		if count == 0 {
			count = cfg.Exam.DefaultCount
		}
		if strategyName == "" {
			strategyName = cfg.Exam.Strategy
		}
		strategy, err := exam.ParseStrategy(strategyName)
		if err != nil {
			return err
		}
		opts := []exam.Option{exam.WithStrategy(strategy)}
		if cmd.Flags().Changed("seed") {
			opts = append(opts, exam.WithSeed(seed))
		}

		e, err := exam.NewGenerator(cat, opts...).Generate(exam.Spec{YearLevel: year, Subject: subject, Count: count})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, e)
		}

		w := out(cmd)
		fmt.Fprintln(w, theme.Title.Render(fmt.Sprintf("Year %d %s", year, subject))+"  "+
			theme.Subtitle.Render(fmt.Sprintf("%d questions, %s", len(e.Questions), e.Strategy)))
		for i, q := range e.Questions {
			fmt.Fprintf(w, "\n%d. %s %s\n", i+1, q.Text, theme.Hint.Render("["+q.ID+"]"))
			for j, o := range q.Options {
				fmt.Fprintf(w, "   %d) %s\n", j, o.Text)
			}
		}
		fmt.Fprintf(w, "\n%s %s\n", theme.Label.Render("Score with:"),
			"skilltrace exam score --questions "+strings.Join(e.QuestionIDs(), ","))
		return nil
	},
}

var examScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score answers and optionally record them for a learner",
	Long: `Score answers for a list of question IDs.

Answers are given as question=option pairs with zero-based options, e.g.
  skilltrace exam score --questions pv-1,add-2 --answers pv-1=0,add-2=3 --learner maya`,
	RunE: func(cmd *cobra.Command, args []string) error {
		questionIDs, _ := cmd.Flags().GetStringSlice("questions")
		answerPairs, _ := cmd.Flags().GetStringSlice("answers")
		learnerID, _ := cmd.Flags().GetString("learner")
		asJSON, _ := cmd.Flags().GetBool("json")

		answers, err := parseAnswers(answerPairs)
		if err != nil {
			return err
		}

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		questions, err := exam.Rebuild(a.Catalog.Bank, questionIDs)
		if err != nil {
			return err
		}
		res, err := scoring.Score(questions, answers)
		if err != nil {
			return err
		}

		var recorded []store.AttemptEvent
		if learnerID != "" {
			recorded, err = a.Recorder.RecordExam(cmd.Context(), learnerID, questions, answers, time.Now())
			if err != nil {
				return err
			}
		}
		if asJSON {
			return printJSON(cmd, res)
		}

		w := out(cmd)
		fmt.Fprintln(w, theme.Title.Render("Score: "+res.String()))
		for _, s := range res.Sections {
			line := fmt.Sprintf("  %-32s %d/%d", s.SectionTitle, s.Correct, s.Total)
			if s.NeedsRevision {
				line += "  " + theme.Caution.Render("revise")
			}
			fmt.Fprintln(w, line)
		}
		for _, o := range res.Outcomes {
			mark := theme.Correct.Render("✓")
			switch {
			case !o.Answered:
				mark = theme.Hint.Render("-")
			case !o.IsCorrect:
				mark = theme.Incorrect.Render("✗")
			}
			fmt.Fprintf(w, "  %s %s\n", mark, o.QuestionID)
		}
		if learnerID != "" {
			fmt.Fprintf(w, "\nRecorded %d attempts for %s\n", len(recorded), learnerID)
		}
		return nil
	},
}

// parseAnswers turns "question=option" pairs into an answer map.
func parseAnswers(pairs []string) (map[string]int, error) {
	answers := make(map[string]int, len(pairs))
	for _, p := range pairs {
		id, opt, ok := strings.Cut(p, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("answer %q: want question=option", p)
		}
		n, err := strconv.Atoi(opt)
		if err != nil {
			return nil, fmt.Errorf("answer %q: option must be a number", p)
		}
		answers[id] = n
	}
	return answers, nil
}

var recordCmd = &cobra.Command{
	Use:   "record <learner-id> <question-id> <option>",
	Short: "Record a single answered question",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		option, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("option must be a number: %w", err)
		}
		atStr, _ := cmd.Flags().GetString("at")
		var at time.Time
		if atStr != "" {
			at, err = time.Parse(time.RFC3339, atStr)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
		}

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ev, err := a.Recorder.Record(cmd.Context(), ingest.AttemptInput{
			LearnerID:    args[0],
			QuestionID:   args[1],
			ChosenOption: option,
			Timestamp:    at,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %s (sequence %d)\n", ev.ID, ev.Sequence)
		return nil
	},
}

func init() {
	f := examGenerateCmd.Flags()
	f.Int("year", 0, "Year level (required)")
	f.String("subject", "", "Subject (required)")
	f.Int("count", 0, "Number of questions (default from config)")
	f.Uint64("seed", 0, "Random seed for a reproducible draw")
	f.String("strategy", "", "Sampling strategy: shuffle or stratified")
	f.Bool("json", false, "Print the exam as JSON")
	_ = examGenerateCmd.MarkFlagRequired("year")
	_ = examGenerateCmd.MarkFlagRequired("subject")

	f = examScoreCmd.Flags()
	f.StringSlice("questions", nil, "Comma-separated question IDs in exam order (required)")
	f.StringSlice("answers", nil, "Comma-separated question=option answers")
	f.String("learner", "", "Record the answers for this learner")
	f.Bool("json", false, "Print the result as JSON")
	_ = examScoreCmd.MarkFlagRequired("questions")

	recordCmd.Flags().String("at", "", "Answer time (RFC 3339, default now)")

	examCmd.AddCommand(examGenerateCmd)
	examCmd.AddCommand(examScoreCmd)
}
