package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/case-engine/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := testLogger()

	tests := []struct {
		name           string
		setupCache     func(t *testing.T) services.Cache
		expectedStatus int
		expectedHealth string
		expectedCache  string
	}{
		{
			name: "all healthy",
			setupCache: func(t *testing.T) services.Cache {
				mr := miniredis.RunT(t)
				svc, err := services.NewRedisService(mr.Addr(), logger)
				if err != nil {
					t.Fatalf("redis service: %v", err)
				}
				return svc
			},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedCache:  "healthy",
		},
		{
			name: "unhealthy cache",
			setupCache: func(t *testing.T) services.Cache {
				mr := miniredis.RunT(t)
				svc, err := services.NewRedisService(mr.Addr(), logger)
				if err != nil {
					t.Fatalf("redis service: %v", err)
				}
				mr.Close()
				return svc
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedCache:  "unhealthy",
		},
		{
			name:           "no cache configured",
			setupCache:     func(*testing.T) services.Cache { return nil },
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedCache:  "disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.setupCache(t), logger)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			if rr.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
			}

			var response HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if response.Status != tt.expectedHealth {
				t.Errorf("Expected status '%s', got '%s'", tt.expectedHealth, response.Status)
			}

			if response.Service != "case-engine" {
				t.Errorf("Expected service 'case-engine', got '%s'", response.Service)
			}

			if got := response.Components["cache"]; got != tt.expectedCache {
				t.Errorf("Expected cache status '%s', got '%v'", tt.expectedCache, got)
			}

			if got := response.Components["session"]; got != "healthy" {
				t.Errorf("Expected session status 'healthy', got '%v'", got)
			}

			if timeDiff := time.Since(response.Timestamp); timeDiff > time.Second {
				t.Errorf("Health check timestamp seems old: %v", timeDiff)
			}
		})
	}
}
