// Package main is the entry point for the collab-todo server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"collab-todo/config"
	"collab-todo/registry"
	"collab-todo/session"
	"collab-todo/store"
	"collab-todo/trace"
	"collab-todo/transport"
)

func main() {
	var handler slog.Handler
	if os.Getenv("LOGTEXT") == "1" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler).With(slog.String("trace_id", trace.GenerateID())))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir, profile string

	root := &cobra.Command{
		Use:   "collab-todo",
		Short: "Collaborative shared-todo-list server",
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing config.<profile>.yaml")
	root.PersistentFlags().StringVar(&profile, "profile", "", "config profile name (overrides APP_ENVIRONMENT)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP + websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configDir, profile)
		},
	}
	root.AddCommand(serve)
	return root
}

func runServe(configDir, profile string) error {
	cfg, err := config.Load(configDir, profile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	listStore, err := store.NewBuntStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open list store: %w", err)
	}
	defer listStore.Close()

	sessionStore, err := store.NewBuntSessionStore(cfg.SessionStorePath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessionStore.Close()

	reg := registry.New(listStore, cfg.StoreInterval)
	sessions := session.NewManager(sessionStore)

	srv, err := transport.New(reg, listStore, sessions, cfg.SessionSecretPath, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		slog.Info("collab-todo starting", "addr", cfg.Addr())
		done <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-done:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	time.Sleep(50 * time.Millisecond)
	return nil
}
