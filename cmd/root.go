package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "sports-arb",
	Short: "Sports betting arbitrage scanner",
	Long: `Sports betting arbitrage scanner that polls a multi-bookmaker odds provider,
groups equivalent outcomes across bookmakers, and reports market groups whose
best prices imply a total probability below 1.

Live and upcoming opportunities are cached separately and served over HTTP
and a websocket feed.`,
	PersistentPreRunE: loadDotEnv,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadDotEnv loads .env into the environment. A missing file is not an error.
func loadDotEnv(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("env-file")
	err := godotenv.Load(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a dotenv file loaded before reading configuration")
}
