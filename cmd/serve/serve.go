package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/safetrack/safetrack/internal/app"
	"github.com/safetrack/safetrack/internal/buildinfo"
	"github.com/safetrack/safetrack/internal/conf"
)

// Command creates the command that runs the HTTP API and metrics endpoint.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inspection API",
		Long:  "Start the HTTP API, the metrics endpoint and the event consumers (audit log, alerts).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				settings.WebServer.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Serve(ctx, settings, build)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Override webserver.listen (host:port)")
	return cmd
}
