package cmd

import (
	"fmt"
	"os"

	"github.com/boozedog/devserve/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(c *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().SaveTo(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Fprintf(c.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(c *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(c)
	if err != nil {
		return err
	}

	data, err := cfg.Encode(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "# %s\n", path)
	_, err = c.OutOrStdout().Write(data)
	return err
}
