package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/DeskSnap/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage DeskSnap configuration",
	Long:  `View and manage DeskSnap configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective DeskSnap configuration, including flag and DESKSNAP_* overrides.`,
	Example: `  # Show configuration as YAML (default)
  desksnap config show

  # Show configuration as JSON
  desksnap config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Keys: log_level, log_pretty, server_port, settle_delay, store_path`,
	Example: `  # Wait longer for slow applications
  desksnap config set settle_delay 8s

  # Set log level
  desksnap config set log_level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value.`,
	Example: `  # Get settle delay
  desksnap config get settle_delay`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	cfg := configMgr.Get()
	if formatFlag == "table" {
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
	return writeOutput(cmd.OutOrStdout(), formatFlag, cfg, func(io.Writer) {})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	if err := configMgr.Set(key, value); err != nil {
		return err
	}
	if err := configMgr.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Configuration updated: %s = %s\n", key, value)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	v := configMgr.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key not found: %s", key)
	}

	if key == config.KeySettleDelay {
		fmt.Fprintln(cmd.OutOrStdout(), configMgr.Get().SettleDelay)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), configMgr.GetConfigPath())
	return nil
}
