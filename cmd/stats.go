package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ca-srg/elseql/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show invocation counts per mode",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := metrics.NewStore(cfg.StatsDB)
	if err != nil {
		return fmt.Errorf("failed to open stats store: %w", err)
	}
	defer store.Close()

	totals, err := store.GetAllTotals()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	today := time.Now().Format("2006-01-02")
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "mode,total,today")
	for _, mode := range metrics.Modes() {
		count, err := store.GetCountByDate(mode, today)
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		fmt.Fprintf(out, "%s,%d,%d\n", mode, totals[mode], count)
	}
	return nil
}
