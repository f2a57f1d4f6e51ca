package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/case-engine/pkg/casestate"
)

const (
	mirrorTimeout = 500 * time.Millisecond
	mirrorBuffer  = 256
)

// ErrMirrorClosed is returned by Flush once the mirror has been closed.
var ErrMirrorClosed = errors.New("mirror closed")

// SnapshotSaver stores the latest case state of a session.
type SnapshotSaver interface {
	Save(ctx context.Context, sessionID string, snap casestate.Snapshot) error
}

type mirrorJob struct {
	what string
	fn   func(ctx context.Context) error
}

// Mirror forwards session activity to Redis. Calls only queue the write; a single worker
// performs them in order. When the queue is full the write is dropped, so a slow or
// unreachable Redis never holds up the caller.
type Mirror struct {
	sessionID   string
	broadcaster *Broadcaster
	store       *NotificationStore
	snapshots   SnapshotSaver
	now         func() time.Time
	logger      *slog.Logger

	jobs      chan mirrorJob
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewMirror starts the mirror's worker. Close stops it.
func NewMirror(sessionID string, broadcaster *Broadcaster, store *NotificationStore, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Mirror{
		sessionID:   sessionID,
		broadcaster: broadcaster,
		store:       store,
		now:         time.Now,
		logger:      logger.With("session_id", sessionID),
		jobs:        make(chan mirrorJob, mirrorBuffer),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go m.run()
	return m
}

// WithSnapshots enables Snapshot writes
// Returns the Mirror for method chaining
func (m *Mirror) WithSnapshots(saver SnapshotSaver) *Mirror {
	m.snapshots = saver
	return m
}

func (m *Mirror) run() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			return
		case job := <-m.jobs:
			m.do(job)
		}
	}
}

func (m *Mirror) do(job mirrorJob) {
	ctx, cancel := context.WithTimeout(m.ctx, mirrorTimeout)
	defer cancel()
	if err := job.fn(ctx); err != nil && m.ctx.Err() == nil {
		m.logger.Warn("Mirror failed", "what", job.what, "error", err)
	}
}

func (m *Mirror) enqueue(what string, fn func(ctx context.Context) error) {
	if m.ctx.Err() != nil {
		return
	}
	select {
	case m.jobs <- mirrorJob{what: what, fn: fn}:
	default:
		m.logger.Debug("Mirror queue full, dropping", "what", what)
	}
}

// Flush waits until everything queued before the call has been attempted.
func (m *Mirror) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	job := mirrorJob{what: "flush", fn: func(context.Context) error {
		close(flushed)
		return nil
	}}
	select {
	case m.jobs <- job:
	case <-m.done:
		return ErrMirrorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-flushed:
		return nil
	case <-m.done:
		return ErrMirrorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker and cancels the write in flight. Queued writes are dropped.
func (m *Mirror) Close() {
	m.closeOnce.Do(m.cancel)
	<-m.done
}

// Notify implements notify.Sink.
func (m *Mirror) Notify(message string) {
	at := m.now()
	m.enqueue("notification", func(ctx context.Context) error {
		if _, err := m.store.Add(ctx, m.sessionID, message, at); err != nil {
			return err
		}
		return m.broadcaster.PublishNotification(ctx, m.sessionID, message)
	})
}

// Snapshot queues a write of a detached state snapshot. Without a saver it does nothing.
func (m *Mirror) Snapshot(snap casestate.Snapshot) {
	saver := m.snapshots
	if saver == nil {
		return
	}
	m.enqueue("snapshot", func(ctx context.Context) error {
		return saver.Save(ctx, m.sessionID, snap)
	})
}

func (m *Mirror) ItemUsed(itemID, status string, witnesses []string) {
	m.enqueue("item used", func(ctx context.Context) error {
		return m.broadcaster.PublishItemUsed(ctx, m.sessionID, itemID, status, witnesses)
	})
}

func (m *Mirror) EffectApplied(effect any) {
	m.enqueue("effect", func(ctx context.Context) error {
		return m.broadcaster.PublishEffectApplied(ctx, m.sessionID, effect)
	})
}

func (m *Mirror) DialogueEnded(sourceID string) {
	m.enqueue("dialogue ended", func(ctx context.Context) error {
		return m.broadcaster.PublishDialogueEnded(ctx, m.sessionID, sourceID)
	})
}

func (m *Mirror) Verdict(suspectID, crimeID string, correct bool) {
	m.enqueue("verdict", func(ctx context.Context) error {
		return m.broadcaster.PublishVerdict(ctx, m.sessionID, suspectID, crimeID, correct)
	})
}

func (m *Mirror) GameOver(reason string) {
	m.enqueue("game over", func(ctx context.Context) error {
		return m.broadcaster.PublishGameOver(ctx, m.sessionID, reason)
	})
}
