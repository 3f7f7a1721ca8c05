package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/DeskSnap/internal/service"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
)

var showCmd = &cobra.Command{
	Use:   "show [ID]",
	Short: "Show the windows of a snapshot",
	Long:  `Show the windows recorded in a snapshot. Without an ID the live snapshot is shown.`,
	Example: `  # Show the live snapshot
  desksnap show

  # Show a specific snapshot as YAML
  desksnap show 6f1c2a9e-5b7d-4c1e-9f3a-2d8e4b6a1c0f --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var showFormat string

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showFormat, "format", "f", "table", "output format (table, json or yaml)")
}

// resolveSnapshot returns the snapshot named by args, or the live one.
func resolveSnapshot(svc *service.Service, args []string) (*snapshot.Snapshot, error) {
	if len(args) == 1 {
		return svc.Get(args[0])
	}
	snap, ok := svc.Live()
	if !ok {
		return nil, errors.New("no snapshots yet, run 'desksnap capture' first")
	}
	return snap, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	_, svc, err := setup()
	if err != nil {
		return err
	}

	snap, err := resolveSnapshot(svc, args)
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), showFormat, snap, func(w io.Writer) {
		fmt.Fprintf(w, "Snapshot %s (%d windows)\n\n", snap.ID(), snap.Len())
		printWindowsTable(w, snap.Windows())
	})
}
