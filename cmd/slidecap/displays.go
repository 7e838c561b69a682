package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdougie/slidecap/internal/capture"
)

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List displays and their capture indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		displays := capture.Displays()
		if len(displays) == 0 {
			return fmt.Errorf("no active displays found")
		}

		out := cmd.OutOrStdout()
		for _, d := range displays {
			b := d.Bounds
			fmt.Fprintf(out, "%d\tx=%d y=%d\t%dx%d\n", d.Index, b.Min.X, b.Min.Y, b.Dx(), b.Dy())
		}

		dir, err := cmd.Flags().GetString("preview")
		if err != nil || dir == "" {
			return err
		}
		paths, err := capture.WritePreviews(dir)
		for _, p := range paths {
			fmt.Fprintf(out, "preview: %s\n", p)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(displaysCmd)
	displaysCmd.Flags().String("preview", "", "Write a thumbnail of every display to this directory")
}
