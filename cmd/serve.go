package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := api.New(a.APIDeps(), a.APIOptions(), a.Logger.With("component", "api"))
		return srv.ListenAndServe(ctx, a.Config.Server.Addr, a.Config.Server.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
}
