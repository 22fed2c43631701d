package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/notification"
)

// Command returns a cobra command that sends a test alert to the configured URLs.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		title   string
		message string
		urls    []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test alert through the configured notification URLs",
		Long: `Send a test alert through shoutrrr.

Examples:
  # Use notification.urls from the config file
  safetrack notify --message="Alert routing check"

  # Try a URL before adding it to the config
  safetrack notify --url="slack://token-a/token-b/token-c@channel"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(urls) == 0 {
				urls = settings.Notification.URLs
			}
			if timeout <= 0 {
				timeout = settings.Notification.Timeout
			}

			sender, err := notification.NewShoutrrrSender("cli", urls, timeout)
			if err != nil {
				return err
			}

			if settings.Main.Name != "" {
				title = fmt.Sprintf("[%s] %s", settings.Main.Name, title)
			}
			alert := &notification.Alert{
				Type:      notification.TypeNOKResponse,
				Priority:  notification.PriorityMedium,
				Title:     title,
				Message:   message,
				Timestamp: time.Now(),
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout+time.Second)
			defer cancel()
			if err := sender.Send(ctx, alert); err != nil {
				return fmt.Errorf("failed to send test alert: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Test alert sent to %d URL(s)\n", len(urls))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "SafeTrack test alert", "Alert title")
	cmd.Flags().StringVar(&message, "message", "This is a test alert from SafeTrack.", "Alert message")
	cmd.Flags().StringSliceVar(&urls, "url", nil, "Shoutrrr URL to send to (repeatable); defaults to notification.urls")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Send timeout; defaults to notification.timeout")
	return cmd
}
