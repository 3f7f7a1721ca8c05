package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/DeskSnap/internal/config"
	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
	"github.com/bryanchriswhite/DeskSnap/internal/logger"
	"github.com/bryanchriswhite/DeskSnap/internal/replay"
	"github.com/bryanchriswhite/DeskSnap/internal/service"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
	"github.com/bryanchriswhite/DeskSnap/internal/window"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "desksnap",
		Short: "DeskSnap - Save and restore your virtual desktop layout",
		Long: `DeskSnap records which applications are open on which Windows virtual
desktop, and later reopens them and moves each new window back to the
desktop it was captured on.

Features:
  • Capture open top-level windows with their virtual desktop
  • Persist snapshots to %APPDATA%\vdesk.json
  • Replay a snapshot with a per-window report
  • REST API and WebSocket progress stream for integration`,
		SilenceUsage: true,
	}
)

// flagKeys maps configuration keys to the persistent flags that override them.
var flagKeys = map[string]string{
	config.KeyServerPort:  "port",
	config.KeyLogLevel:    "log-level",
	config.KeySettleDelay: "settle-delay",
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/desksnap/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8737)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Duration("settle-delay", 0, "wait after each launch before looking for its window (default is 5s)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig reads the configuration, applies flag overrides and initializes
// logging from it.
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := configMgr.BindFlags(rootCmd.PersistentFlags(), flagKeys); err != nil {
		return nil, err
	}

	cfg := configMgr.Get()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return configMgr, nil
}

// newService wires the application service from configuration and merges the
// snapshot store into its registry.
func newService(configMgr *config.Manager) (*service.Service, error) {
	cfg := configMgr.Get()

	enumerator := window.NewEnumerator(window.NewSource())
	logger.Get().Debug().
		Str("window_source", enumerator.Source().Name()).
		Dur("settle_delay", cfg.SettleDelay).
		Str("store", cfg.StorePath).
		Msg("Service configured")

	engine := replay.NewEngine(
		replay.NewExecLauncher(),
		enumerator,
		replay.WithSettleDelay(cfg.SettleDelay),
	)
	store := snapshot.NewStore(cfg.StorePath)

	svc := service.New(desktop.Acquire, enumerator, engine, snapshot.NewRegistry(), store)
	if _, err := svc.Load(); err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	return svc, nil
}

func setup() (*config.Manager, *service.Service, error) {
	configMgr, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	svc, err := newService(configMgr)
	if err != nil {
		return nil, nil, err
	}
	return configMgr, svc, nil
}
