package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save ID",
	Short: "Save the snapshot registry",
	Long:  `Check that ID names a known snapshot and write all snapshots to the store.`,
	Example: `  desksnap save 6f1c2a9e-5b7d-4c1e-9f3a-2d8e4b6a1c0f`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSave,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load snapshots from the store",
	Long:  `Read the store and report how many snapshots it holds.`,
	RunE:  runLoad,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	configMgr, svc, err := setup()
	if err != nil {
		return err
	}

	if err := svc.Save(args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Saved to %s\n", configMgr.Get().StorePath)
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	configMgr, svc, err := setup()
	if err != nil {
		return err
	}

	// setup already merged the store once.
	if _, err := svc.Load(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d snapshots from %s\n", len(svc.List()), configMgr.Get().StorePath)
	return nil
}
