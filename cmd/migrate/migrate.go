package migrate

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/safetrack/safetrack/internal/app"
	"github.com/safetrack/safetrack/internal/conf"
)

// Command creates the command that migrates the database schema.
func Command(settings *conf.Settings) *cobra.Command {
	var seedDemo bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.OpenDatastore(&settings.Database, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schema is up to date (%s at %s)\n", db.Type(), db.Path())

			if !seedDemo {
				return nil
			}
			demo, err := db.SeedDemo(cmd.Context())
			if err != nil {
				return fmt.Errorf("seeding demo data: %w", err)
			}
			fmt.Fprintf(out, "Demo inspection %s with %d items in area %s\n", demo.InspectionID, demo.Items, demo.AreaID)
			for _, user := range slices.Sorted(maps.Keys(demo.Users)) {
				fmt.Fprintf(out, "  %-18s %s\n", user, demo.Users[user])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seedDemo, "seed-demo", false, "Insert a demo area, inspection and users")
	return cmd
}
