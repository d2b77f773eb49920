package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/anitrack/internal/config"
)

func newInitCmd(g *globals) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) > 0 {
				path = args[0]
			}
			err := config.WriteDefault(path, force)
			if errors.Is(err, config.ErrExists) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newConfigCmd(g *globals) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return cfg.Redacted().Encode(cmd.OutOrStdout())
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				p, err := config.Discover()
				if errors.Is(err, config.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "none (defaults); 'anitrack init' writes %s\n", config.DefaultPath())
					return nil
				}
				if err != nil {
					return err
				}
				path = p
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	testCmd := &cobra.Command{
		Use:   "test [path]",
		Short: "Validate a configuration file",
		Long:  "Validates config.toml syntax, field values and environment variable substitution.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				path = config.DefaultPath()
			}
			p := g.printer(cmd)
			p.printf("Validating %s...\n\n", path)

			if _, err := config.Load(path); err != nil {
				var configErr *config.ConfigError
				if errors.As(err, &configErr) {
					printConfigErrors(p, configErr)
					return errors.New("configuration invalid")
				}
				return fmt.Errorf("failed to load config: %w", err)
			}
			p.println("Configuration valid!")
			return nil
		},
	}

	configCmd.AddCommand(showCmd, pathCmd, testCmd)
	return configCmd
}

func printConfigErrors(p *printer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		p.println("Missing environment variables:")
		for _, m := range e.Missing {
			p.printf("  - %s\n", m)
		}
		p.println()
	}
	if len(e.Errors) > 0 {
		p.println("Validation errors:")
		for _, err := range e.Errors {
			p.printf("  - %s\n", err)
		}
		p.println()
	}
}
