package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/case-engine/internal/config"
	"github.com/jwebster45206/case-engine/internal/content"
	"github.com/jwebster45206/case-engine/internal/session"
	"github.com/jwebster45206/case-engine/pkg/cases"
	"github.com/jwebster45206/case-engine/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	lib, err := content.Load(log)
	require.NoError(t, err)
	s, err := session.New(&config.Config{
		CaseID:           "tutorial",
		WitnessRadius:    220,
		DialogueDistance: 70,
		NotificationTTL:  3 * time.Second,
		GameOverDelay:    900 * time.Millisecond,
	}, lib, log)
	require.NoError(t, err)
	return s
}

// stubInspector answers accusations with a fixed error.
type stubInspector struct {
	err     error
	verdict cases.Verdict
	notes   []notify.Entry
}

func (s *stubInspector) Report() session.Report        { return session.Report{SessionID: "stub"} }
func (s *stubInspector) Suspects() []session.Suspect   { return nil }
func (s *stubInspector) Notifications() []notify.Entry { return s.notes }
func (s *stubInspector) Accuse(suspectID, crimeID string) (cases.Verdict, error) {
	return s.verdict, s.err
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHUDHandler_State(t *testing.T) {
	s := newTestSession(t)
	h := NewHUDHandler(s, testLogger())

	rr := serve(h, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var report session.Report
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	assert.Equal(t, s.ID(), report.SessionID)
	assert.Equal(t, "tutorial", report.SceneID)
	assert.Equal(t, session.StatusPlaying, report.Outcome.Status)
	assert.Equal(t, 2, report.State.Counters["reputation_cops"])
}

func TestHUDHandler_Accusations(t *testing.T) {
	s := newTestSession(t)
	h := NewHUDHandler(s, testLogger())

	rr := serve(h, http.MethodGet, "/v1/accusations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var suspects []session.Suspect
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&suspects))
	require.NotEmpty(t, suspects)
	assert.Equal(t, "pinkDressGirlMouse", suspects[0].ID)
	require.NotEmpty(t, suspects[0].Crimes)
	assert.False(t, suspects[0].Crimes[0].Available)

	rr = serve(h, http.MethodPost, "/v1/accusations", `{"suspect_id":"pinkDressGirlMouse","crime_id":"cocainePossession"}`)
	assert.Equal(t, http.StatusConflict, rr.Code, "locked crime")
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Contains(t, errResp.Error, "crime is locked")
}

func TestHUDHandler_AccuseErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad body", `{`, nil, http.StatusBadRequest},
		{"missing fields", `{"suspect_id":"a"}`, nil, http.StatusBadRequest},
		{"unknown crime", `{"suspect_id":"a","crime_id":"arson"}`, fmt.Errorf("%w: arson", cases.ErrUnknownCrime), http.StatusNotFound},
		{"locked crime", `{"suspect_id":"a","crime_id":"c"}`, fmt.Errorf("%w: c", cases.ErrCrimeLocked), http.StatusConflict},
		{"finished", `{"suspect_id":"a","crime_id":"c"}`, session.ErrFinished, http.StatusConflict},
		{"other failure", `{"suspect_id":"a","crime_id":"c"}`, fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHUDHandler(&stubInspector{err: tt.err}, testLogger())
			rr := serve(h, http.MethodPost, "/v1/accusations", tt.body)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestHUDHandler_AccuseVerdict(t *testing.T) {
	stub := &stubInspector{verdict: cases.Verdict{SuspectID: "a", CrimeID: "c", Culprit: "a", Correct: true}}
	h := NewHUDHandler(stub, testLogger())

	rr := serve(h, http.MethodPost, "/v1/accusations", `{"suspect_id":"a","crime_id":"c"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var v cases.Verdict
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	assert.True(t, v.Correct)
}

func TestHUDHandler_Notifications(t *testing.T) {
	stub := &stubInspector{notes: []notify.Entry{{Message: "Phone log noted"}}}
	h := NewHUDHandler(stub, testLogger())

	rr := serve(h, http.MethodGet, "/v1/notifications", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var notes []notify.Entry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Phone log noted", notes[0].Message)
}

func TestHUDHandler_Routing(t *testing.T) {
	h := NewHUDHandler(&stubInspector{}, testLogger())

	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodDelete, "/v1/state", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodPost, "/v1/notifications", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/v1/elsewhere", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/v1/state/", "").Code)
}
