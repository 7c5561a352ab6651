// Package command contains the CLI command constructors.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ems/internal/config"
	"ems/internal/observability"
)

type configKey struct{}

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	envFile := ".env"
	cmd := &cobra.Command{
		Use:          "ems [command] [flags]",
		Short:        "Employee management service",
		Version:      version(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile, os.Getenv)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := observability.InitSlog(cfg.LogLevel)
			logger.DebugContext(cmd.Context(), "configuration loaded",
				slog.String("addr", cfg.Addr),
				slog.String("session_backend", cfg.SessionBackend),
				slog.Bool("sso", cfg.OIDC.Enabled()),
			)
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&envFile,
		"env-file", "e",
		envFile,
		"path to a dotenv file; variables already set take precedence",
	)

	cmd.AddCommand(
		serveCommand(),
		userCommand(),
		seedCommand(),
	)

	return cmd
}
