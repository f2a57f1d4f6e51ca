package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/case-engine/internal/config"
	"github.com/jwebster45206/case-engine/internal/content"
	"github.com/jwebster45206/case-engine/internal/logger"
	"github.com/jwebster45206/case-engine/internal/services"
	"github.com/jwebster45206/case-engine/internal/session"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	// Logs go to a file; writing to the terminal would tear the UI.
	logFile, err := os.OpenFile(getEnv("CONSOLE_LOG", "console.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		_ = logFile.Close()
	}()
	log := logger.SetupTo(cfg, logFile)

	lib, err := content.Load(log)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}

	game, err := session.New(cfg, lib, log)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisSvc *services.RedisService
	if cfg.RedisURL != "" {
		redisSvc, err = connectRedis(ctx, cfg.RedisURL, log)
		if err != nil {
			return err
		}
		defer func() {
			_ = redisSvc.Close()
		}()
		game.WithRedis(redisSvc)
		// Runs before the client closes.
		defer game.Close()
	}

	log.Info("Starting case console",
		"session_id", game.ID(),
		"case_id", cfg.CaseID,
		"hud_port", cfg.Port,
		"redis", redisSvc != nil)

	server := newHUDServer(cfg.Port, game, redisSvc, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Quitting the UI ends the console.
		defer cancel()
		p := tea.NewProgram(NewConsoleUI(game), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("console UI failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("HUD server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HUD server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("HUD server is shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func connectRedis(ctx context.Context, url string, log *slog.Logger) (*services.RedisService, error) {
	svc, err := services.NewRedisService(url, log)
	if err != nil {
		return nil, fmt.Errorf("failed to configure redis: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := svc.WaitForConnection(waitCtx, 10, 2*time.Second); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("Redis connection established successfully")
	return svc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
