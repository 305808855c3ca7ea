package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sentriage/sentriage/internal/ingest"
	"github.com/sentriage/sentriage/internal/risk"
	"github.com/sentriage/sentriage/internal/triage"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <logs.csv>",
		Short: "Compute per-actor composite risk scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			records, ingestRep, err := ingest.LoadFile(args[0])
			if err != nil {
				return err
			}
			for _, row := range ingestRep.Skipped {
				logger.Warn("row skipped", "line", row.Line, "reason", row.Reason)
			}

			byActor := triage.GroupByActor(records)
			scores := make([]risk.Score, 0, len(byActor))
			for _, actorRecs := range byActor {
				scores = append(scores, risk.Compute(actorRecs))
			}
			sort.Slice(scores, func(i, j int) bool {
				if scores[i].TotalScore != scores[j].TotalScore {
					return scores[i].TotalScore > scores[j].TotalScore
				}
				return scores[i].Actor < scores[j].Actor
			})

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ACTOR\tLOGIN\tENDPOINT\tVOLUME\tTIME\tTOTAL\n") //nolint:errcheck // CLI output
			for _, s := range scores {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", //nolint:errcheck // CLI output
					s.Actor, s.LoginScore, s.EndpointScore, s.VolumeScore, s.TimeScore, s.TotalScore)
			}
			return tw.Flush()
		},
	}
	return cmd
}
