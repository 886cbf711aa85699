package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/store"
)

var learnerCmd = &cobra.Command{
	Use:   "learner",
	Short: "Manage learner profiles",
}

var learnerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		name, _ := cmd.Flags().GetString("name")
		year, _ := cmd.Flags().GetInt("year")
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("--name is required")
		}
		if year < 1 {
			return fmt.Errorf("--year must be positive")
		}

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		l, err := a.Store.LearnerRepo().Create(cmd.Context(), store.Learner{ID: id, Name: name, YearLevel: year})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s, year %d)\n", l.ID, l.Name, l.YearLevel)
		return nil
	},
}

var learnerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learners",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		learners, err := a.Store.LearnerRepo().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(learners) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No learners yet. Add one with: skilltrace learner add --name NAME --year N")
			return nil
		}

		w := out(cmd)
		fmt.Fprintf(w, "%-38s  %-24s  %4s  %s\n", "ID", "Name", "Year", "Created")
		fmt.Fprintln(w, strings.Repeat("─", 86))
		for _, l := range learners {
			fmt.Fprintf(w, "%-38s  %-24s  %4d  %s\n", l.ID, l.Name, l.YearLevel, l.CreatedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}

func init() {
	learnerAddCmd.Flags().String("id", "", "Learner ID (default: generated)")
	learnerAddCmd.Flags().String("name", "", "Display name (required)")
	learnerAddCmd.Flags().Int("year", 0, "Year level (required)")

	learnerCmd.AddCommand(learnerAddCmd)
	learnerCmd.AddCommand(learnerListCmd)
}
