package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/ui/layout"
	"github.com/abhisek/skilltrace/internal/ui/theme"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate curriculum content",
	Long: `Load every curriculum document in the content directory and check it:
schema, duplicate IDs, prerequisite cycles, dangling token references and
out-of-range correct options. Exits non-zero on the first inconsistent load.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, cfg, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		rows := []layout.Row{
			{Key: "content", Value: cfg.Content.Dir},
			{Key: "tokens", Value: fmt.Sprint(cat.Graph.Len())},
			{Key: "roots", Value: fmt.Sprint(len(cat.Graph.Roots()))},
			{Key: "questions", Value: fmt.Sprint(cat.Bank.Len())},
		}
		for _, y := range cat.Bank.YearLevels() {
			for _, s := range cat.Bank.Subjects(y) {
				rows = append(rows, layout.Row{
					Key:   fmt.Sprintf("year %d %s", y, s),
					Value: fmt.Sprintf("%d sections", len(cat.Bank.SectionsFor(y, s))),
				})
			}
		}

		w := out(cmd)
		fmt.Fprintln(w, theme.Correct.Render("✓ content is valid"))
		fmt.Fprint(w, layout.RenderSection("Catalog", layout.RenderRows(rows)...))
		return nil
	},
}
