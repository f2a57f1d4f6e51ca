package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/case-engine/internal/handlers"
	"github.com/jwebster45206/case-engine/internal/services"
	"github.com/jwebster45206/case-engine/internal/session"
)

// newHUDServer serves the developer HUD for the running session. The event
// stream is only mounted when Redis carries the session's events.
func newHUDServer(port string, game *session.Session, redisSvc *services.RedisService, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	var cache services.Cache
	if redisSvc != nil {
		cache = redisSvc
	}
	mux.Handle("/health", handlers.NewHealthHandler(cache, log))

	hud := handlers.NewHUDHandler(game, log)
	mux.Handle("/v1/state", hud)
	mux.Handle("/v1/accusations", hud)
	mux.Handle("/v1/notifications", hud)

	if redisSvc != nil {
		mux.Handle("/v1/events/session/", handlers.NewEventsHandler(redisSvc.GetClient(), log))
	}

	return &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream stays open.
		IdleTimeout: 60 * time.Second,
	}
}
