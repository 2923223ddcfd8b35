package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amuthap/wedding-automation/internal/roster"
	"github.com/amuthap/wedding-automation/internal/scraper"
)

// scrape: refresh the roster file from the club's team page.
func scrapeCmd() *cobra.Command {
	var (
		pageURL string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the team page into a roster file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pageURL == "" {
				pageURL = cfg.Scraper.URL
			}
			if out == "" {
				out = cfg.Scraper.Output
			}

			s := scraper.NewRosterScraper(scraper.Options{
				UserAgent: cfg.Scraper.UserAgent,
				Delay:     cfg.Scraper.Delay.Duration,
				Debug:     logrus.IsLevelEnabled(logrus.DebugLevel),
			})
			rows, err := s.Scrape(pageURL)
			if err != nil {
				return err
			}
			if err := roster.Save(out, rows); err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{"path": out, "members": len(rows)}).Info("Roster saved")
			fmt.Fprintf(cmd.OutOrStdout(), "scrape completed: %d members written to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "team page URL (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "roster file to write, .csv or .xlsx (default from config)")
	return cmd
}
