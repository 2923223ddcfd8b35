package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amuthap/wedding-automation/internal/greeter"
)

// greet: one pass over the roster for today's (or --date's) matches.
func greetCmd() *cobra.Command {
	var (
		occasion string
		date     string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "greet",
		Short: "Send greetings to everyone whose date is today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today := time.Now()
			if date != "" {
				parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				today = parsed
			}

			svc, err := greeter.NewService(cfg)
			if err != nil {
				return err
			}
			sum, err := svc.RunOccasion(context.Background(), occasion, today, dryRun)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s greetings completed: %d matched, %d failures\n",
				sum.Occasion, sum.Matched, len(sum.Failures()))
			return nil
		},
	}
	cmd.Flags().StringVar(&occasion, "occasion", "birthday", "occasion to greet (birthday, anniversary)")
	cmd.Flags().StringVar(&date, "date", "", "match this date instead of today (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compose images without uploading or sending")
	return cmd
}
