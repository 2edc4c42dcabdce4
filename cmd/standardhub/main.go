// Package main provides the standardhub binary: the feedback queue API
// server plus operator commands for migrations, review and event tailing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cfhttp "github.com/Strob0t/standardhub/internal/adapter/http"
	"github.com/Strob0t/standardhub/internal/config"
	"github.com/Strob0t/standardhub/internal/logger"
)

// Version is set at build time via ldflags.
var Version = "dev"

const annotationNoConfig = "no-config"

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries state shared by all subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
	logCloser  logger.Closer
}

func rootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:           "standardhub",
		Short:         "Coding standards catalogue with a reviewed feedback queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoConfig] == "true" {
				return nil
			}
			cfg, err := config.LoadFrom(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg

			log, closer := logger.New(cfg.Logging)
			slog.SetDefault(log)
			c.logCloser = closer
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logCloser != nil {
				c.logCloser.Close()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultConfigFile, "YAML config file path")

	cmd.AddCommand(
		serveCmd(c),
		migrateCmd(c),
		feedbackCmd(c),
		catalogCmd(c),
		eventsCmd(c),
		&cobra.Command{
			Use:         "version",
			Short:       "Print version information",
			Annotations: map[string]string{annotationNoConfig: "true"},
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "standardhub version %s\n", Version)
			},
		},
	)

	cfhttp.Version = Version
	return cmd
}
