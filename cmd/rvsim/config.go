package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/timing/config"
)

// loadConfig returns the preset or file configuration, or the default.
func loadConfig(path, preset string) (*config.Config, error) {
	switch {
	case path != "" && preset != "":
		return nil, fmt.Errorf("--config and --preset are exclusive")
	case path != "":
		return config.LoadConfig(path)
	case preset != "":
		cfg, ok := config.Presets()[preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (have %s)", preset,
				strings.Join(config.PresetNames(), ", "))
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newConfigCmd() *cobra.Command {
	var path, preset string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print a core configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(path, preset)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			data, err := cfg.JSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVar(&path, "config", "", "configuration file to validate and print")
	cmd.Flags().StringVar(&preset, "preset", "", "named preset to print")
	return cmd
}
