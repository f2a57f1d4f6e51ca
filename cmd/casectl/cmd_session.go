package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jwebster45206/case-engine/internal/services"
	"github.com/jwebster45206/case-engine/internal/services/events"
	"github.com/spf13/cobra"
)

var sessionFlags struct {
	redisURL string
	timeout  time.Duration
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <session-id>",
	Short: "Print the case state a running session last saved to Redis",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications <session-id>",
	Short: "List a session's notifications that have not expired",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifications,
}

func init() {
	for _, c := range []*cobra.Command{snapshotCmd, notificationsCmd} {
		f := c.Flags()
		f.StringVar(&sessionFlags.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL (default $REDIS_URL)")
		f.DurationVar(&sessionFlags.timeout, "timeout", 5*time.Second, "Redis timeout")
	}
}

func connect(cmd *cobra.Command) (*services.RedisService, context.Context, context.CancelFunc, error) {
	if sessionFlags.redisURL == "" {
		return nil, nil, nil, fmt.Errorf("no redis configured: set --redis-url or REDIS_URL")
	}
	svc, err := services.NewRedisService(sessionFlags.redisURL, cliLogger(cmd))
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), sessionFlags.timeout)
	if err := svc.Ping(ctx); err != nil {
		cancel()
		_ = svc.Close()
		return nil, nil, nil, err
	}
	return svc, ctx, cancel, nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	svc, ctx, cancel, err := connect(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() {
		_ = svc.Close()
	}()

	snap, ok, err := services.NewSnapshotStore(svc).Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return fmt.Errorf("no snapshot stored for session %s", args[0])
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func runNotifications(cmd *cobra.Command, args []string) error {
	svc, ctx, cancel, err := connect(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() {
		_ = svc.Close()
	}()

	store := events.NewNotificationStore(svc.GetClient(), 0, cliLogger(cmd))
	now := time.Now()
	active, err := store.Active(ctx, args[0], now)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(active) == 0 {
		fmt.Fprintf(out, "No active notifications for session %s\n", args[0])
		return nil
	}
	for _, n := range active {
		fmt.Fprintf(out, "%s  (%s left)\n", n.Message, n.ExpiresAt.Sub(now).Round(100*time.Millisecond))
	}
	return nil
}
