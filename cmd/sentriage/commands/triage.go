package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentriage/sentriage/internal/ingest"
	"github.com/sentriage/sentriage/internal/metrics"
	"github.com/sentriage/sentriage/internal/report"
	"github.com/sentriage/sentriage/internal/rules"
	"github.com/sentriage/sentriage/internal/triage"
)

// errHighRisk drives the non-zero exit through the normal error path so
// deferred cleanup (the verdict store, in particular) still runs.
var errHighRisk = errors.New("high-risk verdicts present")

func newTriageCmd() *cobra.Command {
	var asJSON, save bool

	cmd := &cobra.Command{
		Use:          "triage <logs.csv>",
		Short:        "Triage a CSV of log records",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		Example: `  sentriage triage sample_logs.csv
  sentriage triage sample_logs.csv --json
  sentriage triage sample_logs.csv --save`,
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

			trusted, err := loadTrusted(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			engine := triage.NewEngine(rules.Thresholds{
				VolumeMB:    cfg.Triage.VolumeThresholdMB,
				DomesticGeo: cfg.Triage.DomesticGeoLabel,
				ZScore:      cfg.Triage.IntervalZScoreThreshold,
			}, logger)

			started := time.Now()
			verdicts, rep := engine.Run(records, trusted)
			metrics.ObserveRun(verdicts, rep)

			if save {
				store, err := report.NewStore(cfg.Store.Path, logger)
				if err != nil {
					return err
				}
				defer store.Close() //nolint:errcheck // best-effort cleanup
				runID, err := store.SaveRun(started, verdicts, rep)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "saved run %s\n", runID)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"verdicts": verdicts, "report": rep}); err != nil {
					return err
				}
			} else {
				printVerdicts(verdicts, rep)
			}

			// Non-zero exit when anything needs a security engineer.
			for _, v := range verdicts {
				if v.Label == rules.LabelEscalateHighRisk {
					return errHighRisk
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run to the verdict store")
	return cmd
}

func printVerdicts(verdicts []rules.Verdict, rep *triage.Report) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "USER\tLOCATION\tVOLUME_MB\tLABEL\tRATIONALE\n") //nolint:errcheck // CLI output
	for _, v := range verdicts {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\n", //nolint:errcheck // CLI output
			v.Record.Username, v.Record.GeoLocation, v.Record.VolumeMB,
			colorLabel(v.Label), strings.Join(v.RationaleTags, ","))
	}
	_ = tw.Flush()

	fmt.Printf("\n%d records, %d verdicts", rep.Records, rep.Verdicts)
	if len(rep.Skipped) > 0 {
		fmt.Printf(", %d skipped", len(rep.Skipped))
	}
	if len(rep.Degraded) > 0 {
		fmt.Printf(", %d actors with degraded timing", len(rep.Degraded))
	}
	fmt.Println()
}

func colorLabel(l rules.Label) string {
	switch {
	case l == rules.LabelEscalateHighRisk:
		return color.New(color.FgRed, color.Bold).Sprint(string(l))
	case l.IsAlert():
		return color.New(color.FgYellow).Sprint(string(l))
	default:
		return color.New(color.FgGreen).Sprint(string(l))
	}
}
