package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gkatanacio/mirror-downloader/config"
	"github.com/gkatanacio/mirror-downloader/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "mdl",
	Short:        "Resumable downloader that verifies data chunk by chunk and falls back across mirrors.",
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().String("log-file", "", "append log lines to this file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(downloadCmd, verifyCmd)
}

// setup loads the configuration for cmd and opens the logger it describes.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}
