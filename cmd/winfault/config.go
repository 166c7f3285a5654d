package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crimson-sun/winfault/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit winfault configuration",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd(), newConfigPathCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cmd.Printf("debugger.cdb_path         %s\n", cfg.Debugger.CdbPath)
			cmd.Printf("debugger.kd_path          %s\n", cfg.Debugger.KdPath)
			cmd.Printf("debugger.symbol_path      %s\n", cfg.Debugger.SymbolPath)
			cmd.Printf("debugger.timeout_seconds  %d\n", cfg.Debugger.TimeoutSeconds)
			cmd.Printf("events.filter_level       %s\n", cfg.Events.FilterLevel)
			cmd.Printf("events.time_window_seconds %d\n", cfg.Events.TimeWindowSeconds)
			cmd.Printf("analyzer.model            %s\n", cfg.Analyzer.Model)
			if cfg.Analyzer.APIKey != "" {
				cmd.Println("analyzer.api_key          (set)")
			} else {
				cmd.Println("analyzer.api_key          (unset)")
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist one configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}

			path := filepath.Join(dir, "config.yaml")
			v := viper.New()
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("read config: %w", err)
			}
			v.Set(args[0], args[1])
			if err := v.WriteConfigAs(path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			cmd.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			cmd.Println(filepath.Join(dir, "config.yaml"))
			return nil
		},
	}
}
