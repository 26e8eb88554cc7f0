package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/rogue-dhcp/pkg/audit"
	"github.com/newtron-network/rogue-dhcp/pkg/cli"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past checks",
	Long: `View the audit trail of past checks.

Every run is recorded with:
  - Timestamp and local user
  - Controller queried
  - Servers observed and flagged
  - Whether an alert was mailed
  - Success/failure status

Examples:
  rogue-dhcp history list --last 24h
  rogue-dhcp history list --rogue
  rogue-dhcp history list --failures --json`,
}

var (
	historyController string
	historyLast       string
	historyLimit      int
	historyFailures   bool
	historyRogue      bool
	historyJSON       bool
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Controller:  historyController,
			Operation:   audit.OperationCheck,
			FailureOnly: historyFailures,
			RogueOnly:   historyRogue,
		}
		if historyLast != "" {
			d, err := parseLast(historyLast)
			if err != nil {
				return err
			}
			filter.StartTime = time.Now().Add(-d)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := openAudit(cfg.Audit)
		if logger == nil {
			return fmt.Errorf("audit trail is disabled or unavailable")
		}
		defer logger.Close()

		events, err := logger.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		// newest last; keep the tail when limiting
		if historyLimit > 0 && len(events) > historyLimit {
			events = events[len(events)-historyLimit:]
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			return writeJSON(out, events)
		}
		if len(events) == 0 {
			fmt.Fprintln(out, "No checks recorded")
			return nil
		}

		t := cli.NewTableTo(out, "TIMESTAMP", "USER", "CONTROLLER", "OBSERVED", "ROGUE", "MAILED", "STATUS")
		for _, e := range events {
			rogue := "-"
			if len(e.Rogue) > 0 {
				rogue = strings.Join(e.Rogue, ",")
			}
			mailed := "no"
			switch {
			case e.Alerted:
				mailed = "yes"
			case e.DryRun && len(e.Rogue) > 0:
				mailed = "dry-run"
			}
			t.Row(
				e.Timestamp.Format("2006-01-02 15:04:05"),
				e.User,
				e.Controller,
				strconv.Itoa(len(e.Observed)),
				rogue,
				mailed,
				cli.Status(e.Success, len(e.Rogue)),
			)
		}
		t.Flush()
		return nil
	},
}

// parseLast accepts Go durations plus a day suffix ("7d").
func parseLast(s string) (time.Duration, error) {
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days < 0 {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	return d, nil
}

func init() {
	historyListCmd.Flags().StringVar(&historyController, "controller", "", "Filter by controller host")
	historyListCmd.Flags().StringVar(&historyLast, "last", "", "Show checks from last duration (e.g., 24h, 7d)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 100, "Maximum checks to show")
	historyListCmd.Flags().BoolVar(&historyFailures, "failures", false, "Show only failed checks")
	historyListCmd.Flags().BoolVar(&historyRogue, "rogue", false, "Show only checks that found rogue servers")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "Print events as JSON")

	historyCmd.AddCommand(historyListCmd)
}
