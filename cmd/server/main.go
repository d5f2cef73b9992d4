package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat-server/internal/app"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/log"
)

// errLogged marks failures that were already reported through the logger.
var errLogged = errors.New("already logged")

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type serveFlags struct {
	configPath   string
	noWrite      bool
	addr         string
	logLevel     string
	logFormat    string
	auditDB      string
	allowOrigins []string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		// serve logs its own failures; usage errors still need printing.
		if !errors.Is(err, errLogged) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "roomchat-server",
		Short:         "Room based chat relay over WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), &f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "path to config file (default ./config.yaml)")
	flags.BoolVar(&f.noWrite, "no-write-config", false, "do not create a default config file when missing")
	flags.StringVar(&f.addr, "addr", "", "HTTP listen address")
	flags.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&f.logFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&f.auditDB, "audit-db", "", "SQLite path for the room audit log")
	flags.StringSliceVar(&f.allowOrigins, "allowed-origins", nil, "browser origins allowed to connect")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func serve(parent context.Context, f *serveFlags) error {
	bootLogger := log.New("info", "console")

	cfg, path, err := config.Load(bootLogger, f.configPath, !f.noWrite)
	if err != nil {
		bootLogger.Error().Err(err).Str("config", path).Msg("failed to load config")
		return fmt.Errorf("%w: %w", errLogged, err)
	}
	cfg.UpdateFrom(config.Config{
		Addr:           f.addr,
		LogLevel:       f.logLevel,
		LogFormat:      f.logFormat,
		AuditDBPath:    f.auditDB,
		AllowedOrigins: f.allowOrigins,
	})

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", path).Str("version", version).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize app")
		return fmt.Errorf("%w: %w", errLogged, err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting roomchat server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return fmt.Errorf("%w: %w", errLogged, err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
