package cmd

import (
	"fmt"
	"strings"

	"github.com/mselser95/sports-arb/internal/app"
	"github.com/mselser95/sports-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage scanner service",
	Long: `Starts the scanner service, which will:
1. Fetch odds for every configured sport on each scan interval
2. Group equivalent outcomes across bookmakers
3. Detect and validate arbitrage opportunities
4. Serve them over HTTP (/api/opportunities) and the /ws feed

Use --sports to scan a subset of sports for debugging.`,
	RunE: runScanner,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSlice("sports", nil, "Scan only these sports (overrides SPORTS)")
}

func runScanner(cmd *cobra.Command, args []string) error {
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

	sports, _ := cmd.Flags().GetStringSlice("sports")

	application, err := app.New(cfg, logger, &app.Options{
		Sports: upperAll(sports),
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	// Run app
	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}

func upperAll(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
