// Package inspection provides CLI commands to view and reopen inspections.
package inspection

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/safetrack/safetrack/internal/app"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/datastore/entities"
	core "github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/observability"
)

const historyLimit = 50

// Command creates the inspection command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspection",
		Short: "Inspect or reopen inspections",
	}
	cmd.AddCommand(showCommand(settings), reopenCommand(settings))
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	var withHistory bool

	cmd := &cobra.Command{
		Use:   "show <inspection-id>",
		Short: "Print the checklist and progress of an inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			// Viewing needs no role.
			session, err := svc.Engine.Open(cmd.Context(), args[0], core.Actor{UserID: "cli"})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printInspection(out, session.Inspection(), session.Progress())
			printChecklist(out, session.Items())

			if withHistory {
				history, err := svc.Audit.History(cmd.Context(), args[0], historyLimit)
				if err != nil {
					return err
				}
				printHistory(out, history)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withHistory, "history", false, "Include the audit trail")
	return cmd
}

func reopenCommand(settings *conf.Settings) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "reopen <inspection-id>",
		Short: "Return a closed inspection to in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			session, err := svc.Engine.Open(cmd.Context(), args[0], core.Actor{
				UserID: userID,
				Roles:  svc.Roles.ForUser(userID),
			})
			if err != nil {
				return err
			}

			previous := session.Inspection().Status
			insp, err := session.Reopen(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inspection %s reopened (%s -> %s)\n", insp.ID, previous, insp.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User performing the reopen (needs an elevated role)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func openService(settings *conf.Settings) (*app.Service, error) {
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	return app.NewService(settings, m)
}

func printInspection(w io.Writer, insp core.Inspection, p core.Progress) {
	fmt.Fprintf(w, "Inspection %s (area %s)\n", insp.ID, insp.AreaID)
	fmt.Fprintf(w, "Status:    %s\n", insp.Status)
	if insp.StartedAt != nil {
		fmt.Fprintf(w, "Started:   %s\n", insp.StartedAt.Format(time.RFC3339))
	}
	if insp.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:  %s\n", insp.FinishedAt.Format(time.RFC3339))
	}
	if insp.ForceCloseReason != nil {
		fmt.Fprintf(w, "Reason:    %s\n", *insp.ForceCloseReason)
	}
	fmt.Fprintf(w, "Progress:  %.1f%% (%d/%d answered, %d OK, %d NOK, %d NA)\n\n",
		p.PercentComplete, p.Responded, p.Total, p.OK, p.NOK, p.NA)
}

func printChecklist(w io.Writer, items []core.ItemView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATE\tITEM\tCOMMENT")
	for _, v := range items {
		comment := ""
		if v.Response != nil {
			comment = v.Response.CommentText()
		}
		if v.NeedsAnnotation {
			comment = "(comment required)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.Item.OrderIndex+1, v.State, v.Item.Label, comment)
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, rows []entities.AuditLog) {
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tUSER\tDETAILS")
	for _, r := range rows {
		user := "-"
		if r.UserID != nil {
			user = *r.UserID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", r.CreatedAt.Format(time.RFC3339), r.Action, user, map[string]any(r.Metadata))
	}
	_ = tw.Flush()
}
