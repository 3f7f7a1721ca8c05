package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/DeskSnap/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay [ID]",
	Short: "Reopen the applications of a snapshot",
	Long: `Launch the executable of every window in a snapshot, one at a time, wait
for it to settle, then move its first window to the recorded virtual desktop.
Without an ID the live snapshot is replayed.

The command exits non-zero if any window failed.`,
	Example: `  # Replay the live snapshot
  desksnap replay

  # Replay a specific snapshot with a longer settle delay
  desksnap replay 6f1c2a9e-5b7d-4c1e-9f3a-2d8e4b6a1c0f --settle-delay 10s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

var (
	replayFormat string
	replayQuiet  bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "table", "output format (table, json or yaml)")
	replayCmd.Flags().BoolVarP(&replayQuiet, "quiet", "q", false, "do not print progress")
}

func runReplay(cmd *cobra.Command, args []string) error {
	_, svc, err := setup()
	if err != nil {
		return err
	}

	snap, err := resolveSnapshot(svc, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var obs replay.Observer
	if !replayQuiet {
		obs = progressPrinter(cmd.ErrOrStderr())
	}

	outcomes, replayErr := svc.Replay(ctx, snap.ID().String(), obs)

	if err := writeOutput(cmd.OutOrStdout(), replayFormat, outcomes, func(w io.Writer) {
		printOutcomesTable(w, outcomes)
	}); err != nil {
		return err
	}

	if replayErr != nil {
		return fmt.Errorf("replay aborted: %w", replayErr)
	}
	return summaryError(replay.Summary(outcomes))
}

func progressPrinter(w io.Writer) replay.Observer {
	return func(p replay.Progress) {
		if p.State == replay.StatePending {
			return
		}
		fmt.Fprintf(w, "[%d/%d] %s: %s\n", p.Index+1, p.Total, truncate(p.Title, 48), p.State)
	}
}

// summaryError reports failed windows as an error so the exit status reflects them.
func summaryError(c replay.Counts) error {
	if c.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d windows failed (%d succeeded, %d skipped)", c.Failed, c.Total, c.Succeeded, c.Skipped)
}
