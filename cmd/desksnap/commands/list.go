package commands

import (
	"io"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots",
	Long: `List every snapshot in the store. The live snapshot, the one most
recently captured, is marked with *.`,
	Example: `  # List snapshots in table format (default)
  desksnap list

  # List snapshots in JSON format
  desksnap list --format json`,
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, json or yaml)")
}

func runList(cmd *cobra.Command, args []string) error {
	_, svc, err := setup()
	if err != nil {
		return err
	}

	snaps := svc.List()
	live := ""
	if s, ok := svc.Live(); ok {
		live = s.ID().String()
	}

	return writeOutput(cmd.OutOrStdout(), listFormat, snaps, func(w io.Writer) {
		printSnapshotsTable(w, snaps, live)
	})
}
