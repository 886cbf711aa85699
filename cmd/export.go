package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/export"
	"github.com/abhisek/skilltrace/internal/progress"
	"github.com/abhisek/skilltrace/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <learner-id>",
	Short: "Export mastery, daily activity and weaknesses to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("out")
		days, _ := cmd.Flags().GetInt("days")

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		l, err := a.Store.LearnerRepo().Get(ctx, args[0])
		if err != nil {
			return err
		}
		records, err := a.Mastery.ComputeMastery(ctx, l.ID)
		if err != nil {
			return err
		}
		rep, err := a.Detector.DetectWeaknesses(ctx, l.ID)
		if err != nil {
			return err
		}
		events, err := a.Store.EventRepo().LearnerAttempts(ctx, l.ID, store.QueryOpts{})
		if err != nil {
			return err
		}
		daily, err := progress.DailyStats(progress.Grade(events, a.Catalog.Bank), days, time.Now(), a.Location)
		if err != nil {
			return err
		}

		if path == "" {
			path = fmt.Sprintf("%s-%s.xlsx", l.ID, time.Now().Format("20060102"))
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := export.Workbook(f, l, records, daily, rep); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "Output file (default <learner>-<date>.xlsx)")
	exportCmd.Flags().Int("days", 30, "Days of daily activity to include")
}
