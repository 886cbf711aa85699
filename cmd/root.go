package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/app"
	"github.com/abhisek/skilltrace/internal/config"
	"github.com/abhisek/skilltrace/internal/curriculum"
)

var rootCmd = &cobra.Command{
	Use:   "skilltrace",
	Short: "Diagnostic mastery engine for curriculum-aligned practice",
	Long: "skilltrace turns answered multiple-choice questions into per-concept mastery,\n" +
		"misconception patterns and parent reports.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a config file (default: ./skilltrace.yaml if present)")
	pf.String("db", "", "Database DSN or SQLite file path (overrides SKILLTRACE_DATABASE_DSN)")
	pf.String("db-driver", "", "Database driver: sqlite or postgres")
	pf.String("content", "", "Curriculum content directory (overrides SKILLTRACE_CONTENT_DIR)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(examCmd)
	rootCmd.AddCommand(learnerCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(masteryCmd)
	rootCmd.AddCommand(weaknessesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration from --config, flags and environment,
// and builds the process logger on stderr. A .env file in the working
// directory seeds variables that are not already set.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// loadApp builds the full engine. Callers must Close it.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, logger)
}

// loadCatalog loads only the curriculum, for commands that never touch the
// database.
func loadCatalog(cmd *cobra.Command) (*curriculum.Catalog, *config.Config, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	cat, err := curriculum.LoadDir(cfg.Content.Dir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load content from %s: %w", cfg.Content.Dir, err)
	}
	return cat, cfg, nil
}

// out returns the command's stdout, downsampling styles to what the
// terminal supports and stripping them when output is redirected.
func out(cmd *cobra.Command) io.Writer {
	return colorprofile.NewWriter(cmd.OutOrStdout(), os.Environ())
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
