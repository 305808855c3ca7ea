package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentriage/sentriage/internal/report"
)

func newReportCmd() *cobra.Command {
	var label, actor, since string
	var heatmap bool
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Query stored verdicts",
		Example: `  sentriage report
  sentriage report --label ESCALATE_HIGH_RISK
  sentriage report --actor mallory --since 24h
  sentriage report --heatmap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

			store, err := report.NewStore(cfg.Store.Path, logger)
			if err != nil {
				return fmt.Errorf("opening verdict db: %w", err)
			}
			defer store.Close() //nolint:errcheck // best-effort cleanup

			if heatmap {
				return printHeatmap(store)
			}

			var sinceTime string
			if since != "" {
				dur, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", since, err)
				}
				sinceTime = time.Now().Add(-dur).UTC().Format(time.RFC3339)
			}

			verdicts, err := store.Query(report.QueryOpts{
				Label: label,
				Actor: actor,
				Since: sinceTime,
				Limit: limit,
			})
			if err != nil {
				return err
			}

			if len(verdicts) == 0 {
				fmt.Println("No stored verdicts found.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\tUSER\tLOCATION\tVOLUME_MB\tLABEL\tRATIONALE\n") //nolint:errcheck // CLI output
			for _, v := range verdicts {
				ts := v.Timestamp
				if ts == "" {
					ts = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%s\n", //nolint:errcheck // CLI output
					ts, v.Username, v.GeoLocation, v.VolumeMB, v.Label, strings.Join(v.RationaleTags, ","))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "filter by verdict label")
	cmd.Flags().StringVar(&actor, "actor", "", "filter by username")
	cmd.Flags().StringVar(&since, "since", "", "only verdicts newer than this duration (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (default 50)")
	cmd.Flags().BoolVar(&heatmap, "heatmap", false, "print the geo x actor aggregation instead")
	return cmd
}

func printHeatmap(store *report.Store) error {
	cells, err := store.Heatmap()
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		fmt.Println("No stored verdicts found.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "LOCATION\tUSER\tRECORDS\tVOLUME_MB\tALERTS\n") //nolint:errcheck // CLI output
	for _, c := range cells {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%g\t%d\n", //nolint:errcheck // CLI output
			c.GeoLocation, c.Username, c.Records, c.TotalVolume, c.Alerts)
	}
	return tw.Flush()
}
