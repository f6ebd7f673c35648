package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gubanews/internal/config"

	"github.com/spf13/cobra"
)

// configCmd groups config helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

// configInitCmd writes the default config file.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file into the workspace",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = filepath.Join(workspace, config.DefaultFileName)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
