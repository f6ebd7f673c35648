package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	fetchCode string
	fetchDate string
	fetchOut  string
)

// fetchCmd harvests a single (code, date) task.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Harvest the articles around one event date for one stock code",
	Long: `Bisects the code's article index for the pages covering the event
date, fetches every article body in the window, and writes the
configured output files.

Example:
  gubanews fetch --code 600519 --date 2024-06-05`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchCode, "code", "", "stock code (required)")
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "event date YYYY-MM-DD (required)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "output directory (default from config)")
	_ = fetchCmd.MarkFlagRequired("code")
	_ = fetchCmd.MarkFlagRequired("date")
}

func runFetch(cmd *cobra.Command, args []string) error {
	date, err := time.Parse("2006-01-02", fetchDate)
	if err != nil {
		return fmt.Errorf("bad --date %q: %w", fetchDate, err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(fetchOut)
	if err != nil {
		return err
	}
	defer p.close(ctx)

	return p.runTask(ctx, fetchCode, date)
}
