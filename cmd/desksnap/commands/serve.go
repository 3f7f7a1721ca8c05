package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/DeskSnap/internal/api"
	"github.com/bryanchriswhite/DeskSnap/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the DeskSnap API server",
	Long: `Start the DeskSnap HTTP server.

The server exposes capture, snapshot and replay operations as a REST API,
plus a WebSocket stream that reports replay progress window by window.`,
	Example: `  # Start server on default port (8737)
  desksnap serve

  # Start server on custom port
  desksnap serve --port 9090

  # Start with debug logging
  desksnap serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	configMgr, svc, err := setup()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("store", cfg.StorePath).
		Int("snapshots", len(svc.List())).
		Dur("settle_delay", cfg.SettleDelay).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), "✅ DeskSnap is running!")
	fmt.Fprintf(cmd.OutOrStdout(), "   - API: http://localhost:%d/api\n", cfg.ServerPort)
	fmt.Fprintln(cmd.OutOrStdout(), "   - Press Ctrl+C to stop")

	server := api.NewServer(svc, configMgr)
	if err := server.Start(ctx, cfg.ServerPort); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Shut down gracefully")
	return nil
}
