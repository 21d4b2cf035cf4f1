package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mselser95/sports-arb/internal/odds"
	"github.com/mselser95/sports-arb/internal/scanner"
	"github.com/mselser95/sports-arb/pkg/config"
	"github.com/mselser95/sports-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listEventsCmd = &cobra.Command{
	Use:   "list-events",
	Short: "List events and quote counts for one sport",
	Long:  `Fetches events for a single sport from the odds provider and displays them for debugging purposes.`,
	RunE:  runListEvents,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listEventsCmd)
	listEventsCmd.Flags().StringP("sport", "s", "", "Sport ID to fetch, e.g. BASKETBALL (required)")
	listEventsCmd.Flags().String("league", "", "Restrict to one league ID")
	listEventsCmd.Flags().String("state", "all", "Which events to fetch: all, live, upcoming")
	_ = listEventsCmd.MarkFlagRequired("sport")
}

func runListEvents(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
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
	sport, _ := cmd.Flags().GetString("sport")
	league, _ := cmd.Flags().GetString("league")
	state, _ := cmd.Flags().GetString("state")

	live, err := parseLiveFilter(state)
	if err != nil {
		return err
	}

	// Create client
	client := odds.NewClient(&odds.ClientConfig{
		BaseURL:     cfg.OddsAPIURL,
		APIKey:      cfg.OddsAPIKey,
		Timeout:     cfg.OddsRequestTimeout,
		RateLimiter: odds.NewRateLimiter(cfg.OddsRateLimitPerMinute, time.Minute, logger),
		Backoff:     odds.DefaultBackoff(cfg.OddsRateLimitBackoff),
		MaxRetries:  cfg.OddsMaxRetries,
		PageSize:    cfg.OddsEventsPerRequest,
		MaxPages:    cfg.OddsMaxPages,
		Logger:      logger,
	})

	sport = strings.ToUpper(sport)
	fmt.Printf("Fetching %s events...\n\n", sport)

	events, err := client.FetchEvents(ctx, sport, odds.Filter{Live: live, LeagueID: league})
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	printEvents(os.Stdout, events, time.Now())

	fmt.Printf("\nTotal: %d events\n", len(events))

	return nil
}

func parseLiveFilter(state string) (odds.LiveFilter, error) {
	switch strings.ToLower(state) {
	case "", "all":
		return odds.AllEvents, nil
	case "live":
		return odds.LiveOnly, nil
	case "upcoming":
		return odds.UpcomingOnly, nil
	default:
		return odds.AllEvents, fmt.Errorf("invalid state option: %s. Valid options: all, live, upcoming", state)
	}
}

func printEvents(out io.Writer, events []types.Event, now time.Time) {
	if len(events) == 0 {
		fmt.Fprintln(out, "No events found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "EVENT ID\tMATCHUP\tSTARTS\tSTATE\tODDS\tQUOTES\n")
	fmt.Fprintf(w, "--------\t-------\t------\t-----\t----\t------\n")

	for i := range events {
		event := &events[i]

		state := "SKIPPED"
		if s, ok := scanner.Classify(event, now); ok {
			state = string(s)
		}

		quotes := 0
		for _, odd := range event.Odds {
			quotes += len(odd.ByBookmaker)
		}

		matchup := fmt.Sprintf("%s @ %s", event.Teams.Away.Names.Long, event.Teams.Home.Names.Long)

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			event.EventID,
			truncate(matchup, 50),
			event.Status.StartsAt.Local().Format("Jan 02 15:04"),
			state,
			len(event.Odds),
			quotes)
	}

	w.Flush()
}
