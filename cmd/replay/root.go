package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	output  string
)

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded neurostate scenarios offline",
	Long: `replay runs YAML fixtures through the assessment pipeline with a controlled
clock and reports the directive produced at every assessment step.

Commands:
  run      Replay one or more fixtures and compare against expectations
  token    Issue a development access token for the HTTP API`,
	SilenceUsage: true,
}

// Execute corre el comando raíz; cualquier error termina con código 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (json, table)")
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
