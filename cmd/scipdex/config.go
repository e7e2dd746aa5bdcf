package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scipdex/internal/config"
)

var configRoot string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  "View the effective scipdex configuration loaded from .ckb/config.json plus any CKB_*-prefixed environment overrides.",
	RunE:  runConfigShow,
}

func init() {
	configCmd.Flags().StringVar(&configRoot, "root", ".", "project root whose .ckb/config.json to load")
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configRoot)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(loaded, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
