package commands

import (
	"io"

	"github.com/spf13/cobra"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List the windows that a capture would record",
	Long: `Enumerate the open application windows and their virtual desktops
without creating a snapshot.`,
	Example: `  # Show current windows
  desksnap windows

  # Debug why a window is missing
  desksnap windows --log-level debug`,
	RunE: runWindows,
}

var windowsFormat string

func init() {
	rootCmd.AddCommand(windowsCmd)

	windowsCmd.Flags().StringVarP(&windowsFormat, "format", "f", "table", "output format (table, json or yaml)")
}

func runWindows(cmd *cobra.Command, args []string) error {
	_, svc, err := setup()
	if err != nil {
		return err
	}

	windows, err := svc.Windows(cmd.Context())
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), windowsFormat, windows, func(w io.Writer) {
		printWindowsTable(w, windows)
	})
}
