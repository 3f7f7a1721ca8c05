package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/DeskSnap/internal/replay"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
)

// writeOutput renders v as json or yaml, or calls table with a tabwriter.
func writeOutput(out io.Writer, format string, v interface{}, table func(w io.Writer)) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(v)
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		table(w)
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table', 'json' or 'yaml')", format)
	}
}

func printWindowsTable(w io.Writer, windows []snapshot.WindowRecord) {
	fmt.Fprintln(w, "#\tTITLE\tPID\tDESKTOP\tPATH")
	fmt.Fprintln(w, "-\t-----\t---\t-------\t----")

	for i, win := range windows {
		path := win.ExecutablePath
		if path == "" {
			path = "(unknown)"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", i, truncate(win.Title, 48), win.ProcessID, win.DesktopIndex, path)
	}
}

func printSnapshotsTable(w io.Writer, snaps []*snapshot.Snapshot, live string) {
	fmt.Fprintln(w, "ID\tCAPTURED\tWINDOWS\tLIVE")
	fmt.Fprintln(w, "--\t--------\t-------\t----")

	for _, s := range snaps {
		captured := "-"
		if !s.CapturedAt().IsZero() {
			captured = s.CapturedAt().Local().Format("2006-01-02 15:04:05")
		}
		isLive := ""
		if s.ID().String() == live {
			isLive = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID(), captured, s.Len(), isLive)
	}
}

func printOutcomesTable(w io.Writer, outcomes []replay.Outcome) {
	fmt.Fprintln(w, "#\tTITLE\tDESKTOP\tSTATUS\tREASON\tDETAIL")
	fmt.Fprintln(w, "-\t-----\t-------\t------\t------\t------")

	for _, o := range outcomes {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			o.Index, truncate(o.Title, 40), o.DesktopIndex, o.Status, o.Reason, o.Detail)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
