package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mselser95/sports-arb/internal/app"
	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/internal/scanner"
	"github.com/mselser95/sports-arb/pkg/config"
	"github.com/mselser95/sports-arb/pkg/oddsmath"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan and print the opportunities",
	Long: `Runs one scan over the configured sports and prints every validated
opportunity, best first. Storage and notifications follow the usual configuration.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringSlice("sports", nil, "Scan only these sports (overrides SPORTS)")
	scanCmd.Flags().Float64P("min-profit", "m", 0, "Only show opportunities at or above this profit percent")
	scanCmd.Flags().IntP("limit", "l", 50, "Maximum number of opportunities to show (0 for all)")
	scanCmd.Flags().Duration("timeout", 2*time.Minute, "Abort the scan after this long")
}

func runScan(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create logger
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Get flags
	sports, _ := cmd.Flags().GetStringSlice("sports")
	minProfit, _ := cmd.Flags().GetFloat64("min-profit")
	limit, _ := cmd.Flags().GetInt("limit")

	application, err := app.New(cfg, logger, &app.Options{Sports: upperAll(sports)})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Shutdown()
	}()

	res, err := application.ScanOnce(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	all := append(append([]*arbitrage.Opportunity(nil), res.Live...), res.Upcoming...)
	shown := scanner.Filter(all, minProfit, limit)

	printOpportunities(os.Stdout, shown)

	fmt.Printf("\nScanned %d events, %d market groups in %s. %d opportunities (%d live, %d upcoming), showing %d.\n",
		res.Events, res.Groups, res.CompletedAt.Sub(res.StartedAt).Round(time.Millisecond),
		len(all), len(res.Live), len(res.Upcoming), len(shown))
	if len(res.FailedSports) > 0 {
		fmt.Printf("Failed sports: %s\n", strings.Join(res.FailedSports, ", "))
	}

	return nil
}

func printOpportunities(out io.Writer, opps []*arbitrage.Opportunity) {
	if len(opps) == 0 {
		fmt.Fprintln(out, "No arbitrage opportunities found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PROFIT\tSTATE\tTIER\tEVENT\tMARKET\tLEGS\n")
	fmt.Fprintf(w, "------\t-----\t----\t-----\t------\t----\n")

	for _, opp := range opps {
		legs := make([]string, len(opp.Legs))
		for i, leg := range opp.Legs {
			legs[i] = fmt.Sprintf("%s@%s %s", leg.Outcome, leg.Bookmaker, oddsmath.FormatAmerican(leg.American))
		}

		fmt.Fprintf(w, "%.2f%%\t%s\t%s\t%s\t%s\t%s\n",
			opp.ProfitPct,
			opp.GameState,
			opp.Validation.Tier,
			truncate(opp.EventTitle, 40),
			truncate(opp.Market, 40),
			strings.Join(legs, ", "))
	}

	w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
