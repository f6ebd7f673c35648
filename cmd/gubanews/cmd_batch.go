package main

import (
	"errors"
	"fmt"

	"gubanews/internal/export"
	"gubanews/internal/guba"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	batchTasks string
	batchOut   string
)

// batchCmd harvests every task in an XLSX workbook. One task failing
// does not stop the rest.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Harvest every (code, date) task in an XLSX workbook",
	Long: `Reads tasks from the first sheet of the workbook (header row, then
stock code in column A and event date in column B) and harvests them in
sequence. Unknown codes and timeouts are logged and skipped.

Example:
  gubanews batch --tasks events.xlsx --out data/`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchTasks, "tasks", "", "task workbook (required)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output directory (default from config)")
	_ = batchCmd.MarkFlagRequired("tasks")
}

func runBatch(cmd *cobra.Command, args []string) error {
	tasks, err := export.ReadTasks(batchTasks)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks in %s", batchTasks)
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(batchOut)
	if err != nil {
		return err
	}
	defer p.close(ctx)

	var failed int
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runTask(ctx, task.Code, task.Date); err != nil {
			if errors.Is(err, ctx.Err()) && ctx.Err() != nil {
				return err
			}
			failed++
			if errors.Is(err, guba.ErrPageNotFound) {
				logger.Warn("code not found, skipping", zap.String("code", task.Code))
			} else {
				logger.Error("task failed, skipping",
					zap.String("code", task.Code),
					zap.Error(err))
			}
		}
	}

	fmt.Printf("batch done: %d tasks, %d failed\n", len(tasks), failed)
	if failed == len(tasks) {
		return fmt.Errorf("all %d tasks failed", failed)
	}
	return nil
}
