package main

import (
	"fmt"

	"gubanews/internal/browser"

	"github.com/spf13/cobra"
)

// browserCmd groups browser diagnostics.
var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Browser diagnostics",
}

// browserCheckCmd launches the configured Chrome and reports back.
var browserCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Launch the configured Chrome and print its version",
	RunE:  runBrowserCheck,
}

func init() {
	browserCmd.AddCommand(browserCheckCmd)
}

func runBrowserCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	mgr := browser.NewManager(cfg.Browser)
	defer func() { _ = mgr.Shutdown(ctx) }()

	version, err := mgr.Version(ctx)
	if err != nil {
		return fmt.Errorf("browser check failed: %w", err)
	}

	fmt.Printf("browser ok: %s\n", version)
	fmt.Printf("control url: %s\n", mgr.ControlURL())
	return nil
}
