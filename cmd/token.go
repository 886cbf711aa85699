package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/ui/layout"
	"github.com/abhisek/skilltrace/internal/ui/theme"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Browse the knowledge graph",
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge tokens in prerequisite order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		rootsOnly, _ := cmd.Flags().GetBool("roots")

		ids := cat.Graph.TopologicalOrder()
		if rootsOnly {
			ids = cat.Graph.Roots()
		}

		w := out(cmd)
		fmt.Fprintf(w, "%-28s  %-36s  %s\n", "ID", "Name", "Prerequisites")
		fmt.Fprintln(w, strings.Repeat("─", 90))
		for _, id := range ids {
			tok, err := cat.Graph.Get(id)
			if err != nil {
				return err
			}
			name := tok.DisplayName()
			if len(name) > 36 {
				name = name[:33] + "..."
			}
			fmt.Fprintf(w, "%-28s  %-36s  %s\n", tok.ID, name, strings.Join(tok.Prerequisites, ", "))
		}
		fmt.Fprintf(w, "\n%d tokens\n", len(ids))
		return nil
	},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show <token-id>",
	Short: "Show a token with its prerequisites and dependents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		g := cat.Graph
		tok, err := g.Get(args[0])
		if err != nil {
			return err
		}
		ancestors, err := g.Ancestors(tok.ID)
		if err != nil {
			return err
		}

		w := out(cmd)
		fmt.Fprintln(w, theme.Title.Render(tok.DisplayName())+"  "+theme.Subtitle.Render(tok.ID))
		if tok.Description != "" {
			fmt.Fprintln(w, theme.Body.Render(tok.Description))
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, layout.RenderSection("Prerequisites", tok.Prerequisites...))
		fmt.Fprint(w, layout.RenderSection("All ancestors", ancestors...))
		fmt.Fprint(w, layout.RenderSection("Dependents", g.Dependents(tok.ID)...))
		return nil
	},
}

func init() {
	tokenListCmd.Flags().Bool("roots", false, "Only list tokens without prerequisites")

	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenShowCmd)
}
