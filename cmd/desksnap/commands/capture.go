package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture the current window layout",
	Long: `Capture every open application window together with the virtual desktop
it is on. The snapshot becomes the live snapshot and is saved to the store
unless --no-save is given.`,
	Example: `  # Capture and save
  desksnap capture

  # Capture without touching the store, print as JSON
  desksnap capture --no-save --format json`,
	RunE: runCapture,
}

var (
	captureFormat string
	captureNoSave bool
)

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&captureFormat, "format", "f", "table", "output format (table, json or yaml)")
	captureCmd.Flags().BoolVar(&captureNoSave, "no-save", false, "do not persist the snapshot")
}

func runCapture(cmd *cobra.Command, args []string) error {
	_, svc, err := setup()
	if err != nil {
		return err
	}

	snap, err := svc.Capture(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to capture windows: %w", err)
	}

	if !captureNoSave {
		if err := svc.Save(snap.ID().String()); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
	}

	return writeOutput(cmd.OutOrStdout(), captureFormat, snap, func(w io.Writer) {
		fmt.Fprintf(w, "Snapshot %s (%d windows)\n\n", snap.ID(), snap.Len())
		printWindowsTable(w, snap.Windows())
	})
}
