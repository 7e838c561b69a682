package main

import (
	"github.com/spf13/cobra"

	"github.com/bdougie/slidecap/internal/config"
)

var v = config.New()

var rootCmd = &cobra.Command{
	Use:          "slidecap",
	Short:        "Capture presentation slides from a display",
	SilenceUsage: true,
	Long: `slidecap watches a display, saves every new slide as a PNG and renames
it in the background with a short title derived from the slide's text.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		return config.ReadFile(v, path)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	addCaptureFlags(rootCmd)
}
