package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/case-engine/internal/session"
	"github.com/jwebster45206/case-engine/pkg/cases"
	"github.com/jwebster45206/case-engine/pkg/notify"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// Inspector is the part of a play session the HUD reads and drives.
type Inspector interface {
	Report() session.Report
	Suspects() []session.Suspect
	Accuse(suspectID, crimeID string) (cases.Verdict, error)
	Notifications() []notify.Entry
}

var _ Inspector = (*session.Session)(nil)

type AccuseRequest struct {
	SuspectID string `json:"suspect_id"`
	CrimeID   string `json:"crime_id"`
}

// HUDHandler serves the developer HUD:
//
//	GET  /v1/state
//	GET  /v1/accusations
//	POST /v1/accusations
//	GET  /v1/notifications
type HUDHandler struct {
	session Inspector
	logger  *slog.Logger
}

func NewHUDHandler(s Inspector, logger *slog.Logger) *HUDHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HUDHandler{session: s, logger: logger}
}

func (h *HUDHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	route := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case route == "/v1/state" && r.Method == http.MethodGet:
		h.writeJSON(w, r, http.StatusOK, h.session.Report())
	case route == "/v1/accusations" && r.Method == http.MethodGet:
		h.writeJSON(w, r, http.StatusOK, h.session.Suspects())
	case route == "/v1/accusations" && r.Method == http.MethodPost:
		h.handleAccuse(w, r)
	case route == "/v1/notifications" && r.Method == http.MethodGet:
		h.writeJSON(w, r, http.StatusOK, h.session.Notifications())
	case route == "/v1/state" || route == "/v1/accusations" || route == "/v1/notifications":
		h.logger.Warn("Method not allowed for HUD endpoint",
			"method", r.Method,
			"path", r.URL.Path)
		h.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed.")
	default:
		h.writeError(w, r, http.StatusNotFound, "Not found.")
	}
}

func (h *HUDHandler) handleAccuse(w http.ResponseWriter, r *http.Request) {
	var req AccuseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid accusation request body", "error", err)
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.SuspectID == "" || req.CrimeID == "" {
		h.writeError(w, r, http.StatusBadRequest, "suspect_id and crime_id are required.")
		return
	}

	verdict, err := h.session.Accuse(req.SuspectID, req.CrimeID)
	switch {
	case errors.Is(err, cases.ErrUnknownCrime):
		h.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, cases.ErrCrimeLocked), errors.Is(err, session.ErrFinished):
		h.writeError(w, r, http.StatusConflict, err.Error())
	case err != nil:
		h.logger.Error("Accusation failed", "error", err, "suspect_id", req.SuspectID, "crime_id", req.CrimeID)
		h.writeError(w, r, http.StatusInternalServerError, "Accusation failed.")
	default:
		h.writeJSON(w, r, http.StatusOK, verdict)
	}
}

func (h *HUDHandler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, ErrorResponse{Error: msg})
}

func (h *HUDHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
