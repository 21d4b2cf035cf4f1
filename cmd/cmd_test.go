package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/internal/odds"
	"github.com/mselser95/sports-arb/internal/testutil"
	"github.com/mselser95/sports-arb/pkg/types"
	"github.com/spf13/cobra"
)

// TestCommands_Registered tests every subcommand is attached to the root
func TestCommands_Registered(t *testing.T) {
	want := map[string]bool{"run": false, "scan": false, "list-events": false}

	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
			if c.RunE == nil {
				t.Errorf("%s has no RunE", c.Name())
			}
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

// TestCommands_Flags tests command flags are defined
func TestCommands_Flags(t *testing.T) {
	tests := []struct {
		name      string
		cmd       *cobra.Command
		flag      string
		shorthand string
		defValue  string
	}{
		{name: "scan min-profit", cmd: scanCmd, flag: "min-profit", shorthand: "m", defValue: "0"},
		{name: "scan limit", cmd: scanCmd, flag: "limit", shorthand: "l", defValue: "50"},
		{name: "scan timeout", cmd: scanCmd, flag: "timeout", defValue: "2m0s"},
		{name: "list-events sport", cmd: listEventsCmd, flag: "sport", shorthand: "s", defValue: ""},
		{name: "list-events state", cmd: listEventsCmd, flag: "state", defValue: "all"},
		{name: "run sports", cmd: runCmd, flag: "sports", defValue: "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := tt.cmd.Flags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("%s flag not defined", tt.flag)
			}

			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected %s shorthand '%s', got '%s'", tt.flag, tt.shorthand, flag.Shorthand)
			}

			if flag.DefValue != tt.defValue {
				t.Errorf("expected %s default '%s', got '%s'", tt.flag, tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestParseLiveFilter(t *testing.T) {
	tests := []struct {
		input   string
		want    odds.LiveFilter
		wantErr bool
	}{
		{input: "", want: odds.AllEvents},
		{input: "all", want: odds.AllEvents},
		{input: "LIVE", want: odds.LiveOnly},
		{input: "upcoming", want: odds.UpcomingOnly},
		{input: "finished", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLiveFilter(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLiveFilter(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLiveFilter(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestUpperAll(t *testing.T) {
	got := upperAll([]string{" basketball", "", "Hockey "})
	if strings.Join(got, ",") != "BASKETBALL,HOCKEY" {
		t.Errorf("upperAll() = %v", got)
	}

	if upperAll(nil) != nil {
		t.Error("upperAll(nil) should be nil")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("a very long market description", 10); got != "a very ..." {
		t.Errorf("truncate() = %q", got)
	}
}

func TestPrintOpportunities(t *testing.T) {
	var buf bytes.Buffer
	printOpportunities(&buf, nil)
	if !strings.Contains(buf.String(), "No arbitrage opportunities found.") {
		t.Errorf("unexpected empty output: %q", buf.String())
	}

	buf.Reset()
	printOpportunities(&buf, []*arbitrage.Opportunity{{
		ID:         "opp-1",
		EventTitle: "Away @ Home",
		Market:     "Moneyline",
		GameState:  types.GameStateLive,
		ProfitPct:  3.44,
		Validation: arbitrage.Validation{Tier: arbitrage.TierHigh},
		Legs: []arbitrage.Leg{
			{Outcome: "home", Bookmaker: "pinnacle", American: 120},
			{Outcome: "away", Bookmaker: "draftkings", American: -105},
		},
	}})

	out := buf.String()
	for _, want := range []string{"PROFIT", "3.44%", "LIVE", "high", "home@pinnacle +120", "away@draftkings -105"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintEvents(t *testing.T) {
	now := time.Now()
	live := testutil.MoneylineEvent("evt-live", "BASKETBALL", now.Add(-time.Hour), "pinnacle", "+120", "draftkings", "-105", now)
	upcoming := testutil.MoneylineEvent("evt-next", "BASKETBALL", now.Add(time.Hour), "fanduel", "+100", "betmgm", "-110", now)
	testutil.AddQuote(&upcoming, "points-home-game-ml-home", "caesars", "+105", "", now)

	var buf bytes.Buffer
	printEvents(&buf, []types.Event{live, upcoming}, now)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}

	if !strings.Contains(lines[2], "evt-live") || !strings.Contains(lines[2], "LIVE") {
		t.Errorf("unexpected live row: %q", lines[2])
	}
	fields := strings.Fields(lines[3])
	if fields[len(fields)-1] != "3" || fields[len(fields)-2] != "2" {
		t.Errorf("expected 2 odds and 3 quotes, got row %q", lines[3])
	}
	if !strings.Contains(lines[3], "UPCOMING") {
		t.Errorf("unexpected upcoming row: %q", lines[3])
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("SPORTS_ARB_CMD_TEST=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("SPORTS_ARB_CMD_TEST") })

	tests := []struct {
		name    string
		path    string
		wantVal string
	}{
		{name: "missing_file_ignored", path: filepath.Join(dir, "missing.env"), wantVal: ""},
		{name: "file_loaded", path: envFile, wantVal: "loaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cobra.Command{Use: "test"}
			c.Flags().String("env-file", tt.path, "")

			if err := loadDotEnv(c, nil); err != nil {
				t.Fatalf("loadDotEnv() error = %v", err)
			}
			if got := os.Getenv("SPORTS_ARB_CMD_TEST"); got != tt.wantVal {
				t.Errorf("SPORTS_ARB_CMD_TEST = %q, want %q", got, tt.wantVal)
			}
		})
	}
}
