package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/bootstrap"
	"github.com/lvyanru/chatctl/internal/config"
	"github.com/lvyanru/chatctl/internal/router"
	dbpkg "github.com/lvyanru/chatctl/pkg/database"
	"github.com/lvyanru/chatctl/pkg/logger"
)

var (
	cfgFile string
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "chatserver",
	Short: "Local stand-in backend for chatctl",
	Long: `chatserver implements the chat, account, notification and payment API that
chatctl talks to, backed by sqlite and an echo responder. It is meant for local
development and integration tests.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (default ./configs/server.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	hlog.SetLogger(logger.NewHertzZapAdapter(log))
	if cfg.Server.Mode == "debug" {
		hlog.SetLevel(hlog.LevelDebug)
	}

	log.Info("chatserver starting", zap.String("version", version), zap.String("config", cfgFile))

	db, err := dbpkg.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer dbpkg.Close(db, log) //nolint:errcheck

	srv, err := bootstrap.Wire(cfg, db, log)
	if err != nil {
		return err
	}

	if cfg.Seed.DemoUser {
		if err := srv.SeedDemoUser(cmd.Context(), log); err != nil {
			return err
		}
	}

	h := server.Default(
		server.WithHostPorts(cfg.GetServerAddr()),
		server.WithReadTimeout(cfg.Server.ReadTimeout),
		server.WithWriteTimeout(cfg.Server.WriteTimeout),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBodySize),
		server.WithExitWaitTime(time.Second),
	)
	router.Setup(h, srv.Handlers, cfg.Server.AllowOrigins, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Run()
	}()

	log.Info("server started", zap.String("address", cfg.GetServerAddr()), zap.String("mode", cfg.Server.Mode))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server run failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}
