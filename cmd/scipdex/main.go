package main

import (
	"os"

	"scipdex/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: os.Stderr}).
			Error("command failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
