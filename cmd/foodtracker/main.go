// Package main is the entry point for the FoodTracker server and CLI.
//
// The main package stays minimal: parse flags, load configuration, build a
// logger and hand off to internal/server. All actual logic lives in
// imported packages.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/foodtracker/internal/config"
	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/server"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "foodtracker"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Record meals with a name, a photo and a star rating",
		Long: `FoodTracker keeps a list of meals, each with a name, an optional photo
and a 0-5 star rating, and serves an HTTP API for adding and editing them.

Configuration comes from an optional YAML file (--config) and
FOODTRACKER_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&flags), listCmd(&flags), versionCmd())
	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags, os.Stdout)
			if err != nil {
				return err
			}

			srv, err := server.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			// Start blocks until SIGINT/SIGTERM.
			return srv.Start()
		},
	}
}

func listCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the archived meals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			archive, err := server.OpenArchive(cfg, logger)
			if err != nil {
				return err
			}
			defer archive.Close()

			meals, err := archive.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading meals: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNAME\tRATING\tPHOTO")
			for i, m := range meals {
				photo := "no"
				if m.HasPhoto() {
					photo = "yes"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, m.Name(), stars(m.Rating()), photo)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d meal(s) in %s\n", len(meals), cfg.ArchivePath())
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

// setup loads the configuration and builds the logger it asks for.
func setup(flags *globalFlags, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flags.configPath, os.LookupEnv)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if flags.logLevel != "" {
		cfg.Log.Level = strings.ToLower(flags.logLevel)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// stars renders a rating as filled and empty stars.
func stars(n int) string {
	return strings.Repeat("★", n) + strings.Repeat("☆", model.MaxRating-n)
}
