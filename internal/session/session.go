package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/case-engine/internal/config"
	"github.com/jwebster45206/case-engine/internal/content"
	"github.com/jwebster45206/case-engine/internal/logger"
	"github.com/jwebster45206/case-engine/internal/services"
	"github.com/jwebster45206/case-engine/internal/services/events"
	"github.com/jwebster45206/case-engine/pkg/actor"
	"github.com/jwebster45206/case-engine/pkg/callbacks"
	"github.com/jwebster45206/case-engine/pkg/cases"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/dialogue"
	"github.com/jwebster45206/case-engine/pkg/evidence"
	"github.com/jwebster45206/case-engine/pkg/items"
	"github.com/jwebster45206/case-engine/pkg/narrative"
	"github.com/jwebster45206/case-engine/pkg/notify"
	"github.com/jwebster45206/case-engine/pkg/reactions"
	"github.com/jwebster45206/case-engine/pkg/textfilter"
)

// FiredReason is the game over the story triggers through triggerGameOverFired.
const FiredReason = "You're fired! Offering drugs to a witness was the last straw."

// ErrFinished is returned by actions attempted after the play-through has ended.
var ErrFinished = errors.New("play-through has ended")

// Status is where a play-through stands.
type Status string

const (
	StatusPlaying  Status = "playing"
	StatusVictory  Status = "victory"
	StatusGameOver Status = "game_over"
)

// Outcome is the status with the reason it was reached.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Input is one frame of player input.
type Input struct {
	dialogue.Input
	Move actor.Point // player displacement this frame
}

func initialReputation() map[string]int {
	return map[string]int{
		dialogue.ReputationCops:      2,
		dialogue.ReputationCivilians: 0,
		dialogue.ReputationCriminals: -2,
	}
}

// Session is one play-through. It builds every engine for the active scene explicitly
// and drives them from Update. All methods are safe for concurrent use; the engines
// underneath are only ever touched with the session lock held.
type Session struct {
	mu     sync.Mutex
	id     string
	cfg    *config.Config
	lib    *content.Library
	logger *slog.Logger

	state  *casestate.State
	feed   *notify.Feed
	bus    *items.Bus
	timers *Timers

	mirror *events.Mirror

	scene      *content.Scene
	caseCfg    *cases.Config
	roster     *actor.Roster
	lifecycle  *evidence.Lifecycle
	items      *items.ActionHandler
	dispatcher *callbacks.Dispatcher
	dialogue   *dialogue.Router
	reactions  *reactions.Engine
	director   *cases.Director
	resolver   *cases.Resolver

	paused       bool
	removed      map[string]bool
	pendingScene string
	outcome      Outcome
}

// New creates a session and starts a new game in the configured case.
func New(cfg *config.Config, lib *content.Library, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	id := uuid.NewString()
	s := &Session{
		id:     id,
		cfg:    cfg,
		lib:    lib,
		logger: logger.WithSession(log, id),
		state:  casestate.New(),
		feed:   notify.NewFeed(cfg.NotificationTTL),
		bus:    items.NewBus(log),
		timers: &Timers{},
	}
	if err := s.newGame(); err != nil {
		return nil, err
	}
	s.logger.Info("Session started", "case_id", s.caseCfg.ID, "scene_id", s.scene.ID)
	return s, nil
}

// WithRedis mirrors notifications, case events and state snapshots to Redis. Writes run
// in the background and are dropped when Redis falls behind; play never waits on them.
// Returns the Session for method chaining
func (s *Session) WithRedis(redisSvc *services.RedisService) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mirror != nil {
		s.mirror.Close()
	}
	client := redisSvc.GetClient()
	s.mirror = events.NewMirror(s.id,
		events.NewBroadcaster(client, s.logger),
		events.NewNotificationStore(client, s.cfg.NotificationTTL, s.logger),
		s.logger).
		WithSnapshots(services.NewSnapshotStore(redisSvc))
	return s
}

// Close stops the Redis mirror, if any. Writes still queued are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	m := s.mirror
	s.mirror = nil
	s.mu.Unlock()
	if m != nil {
		m.Close()
	}
}

// WithClock replaces the notification clock
// Returns the Session for method chaining
func (s *Session) WithClock(now func() time.Time) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed.WithClock(now)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// sink posts to the feed and, when configured, the Redis mirror.
func (s *Session) sink() notify.Sink {
	return notify.SinkFunc(func(message string) {
		sinks := notify.Fanout{s.feed}
		if s.mirror != nil {
			sinks = append(sinks, s.mirror)
		}
		sinks.Notify(message)
	})
}

// NewGame discards all progress and restarts the configured case.
func (s *Session) NewGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.newGame(); err != nil {
		return err
	}
	s.logger.Info("New game", "case_id", s.caseCfg.ID)
	s.persist()
	return nil
}

func (s *Session) newGame() error {
	scene, err := s.lib.SceneForCase(s.cfg.CaseID)
	if err != nil {
		return fmt.Errorf("failed to find starting scene: %w", err)
	}
	s.endDialogue(true)
	s.state.Reset()
	for id, v := range initialReputation() {
		s.state.SetCounter(id, v)
	}
	s.feed.Clear()
	s.outcome = Outcome{Status: StatusPlaying}
	return s.loadScene(scene)
}

// ChangeScene leaves the current scene for another. Case state carries over;
// the inventory and the dialogue engines start fresh.
func (s *Session) ChangeScene(sceneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changeScene(sceneID)
}

func (s *Session) changeScene(sceneID string) error {
	scene, err := s.lib.Scene(sceneID)
	if err != nil {
		return fmt.Errorf("failed to change scene: %w", err)
	}
	s.endDialogue(true)
	if err := s.loadScene(scene); err != nil {
		return err
	}
	s.logger.Info("Scene changed", "scene_id", scene.ID, "case_id", s.caseCfg.ID)
	return nil
}

// loadScene builds every engine for a scene. The reaction engine of the previous scene is
// unsubscribed before the new one subscribes, so each use is handled once.
func (s *Session) loadScene(scene *content.Scene) error {
	caseCfg, err := s.lib.Case(scene.Case)
	if err != nil {
		return fmt.Errorf("scene %s: %w", scene.ID, err)
	}
	log := s.logger.With("scene_id", scene.ID)
	sink := s.sink()

	spec := scene.Player
	player, err := actor.NewPlayerFromSpec(&spec)
	if err != nil {
		return fmt.Errorf("scene %s: %w", scene.ID, err)
	}
	roster := actor.NewRoster(player)
	for _, c := range scene.Characters {
		if err := roster.Add(&c); err != nil {
			return fmt.Errorf("scene %s: %w", scene.ID, err)
		}
	}

	registry := evidence.NewRegistry(log).WithDiscoveries(s.state)
	for _, c := range scene.Clues {
		if err := registry.Add(c); err != nil {
			return fmt.Errorf("scene %s: %w", scene.ID, err)
		}
	}
	inventory := items.NewInventory()
	lifecycle := evidence.NewLifecycle(s.state, registry, scene.Art, log).WithInventory(inventory)
	for _, c := range scene.Clues {
		lifecycle.Track(c.ID)
	}
	handler := items.NewActionHandler(scene.Items, s.state, inventory, lifecycle, s.bus, sink, log)

	w := &world{s: s}
	dispatcher := callbacks.NewDispatcher(&callbacks.Services{
		State:    s.state,
		Evidence: lifecycle,
		Items:    handler,
		Notifier: sink,
		World:    w,
	}, log)
	if err := dispatcher.RegisterPrefixed(callbacks.TutorialPrefix, callbacks.TutorialScripts()); err != nil {
		return fmt.Errorf("scene %s: %w", scene.ID, err)
	}
	if err := dispatcher.RegisterDefinitions(scene.Callbacks); err != nil {
		return fmt.Errorf("scene %s: %w", scene.ID, err)
	}

	env := dialogue.Env{State: s.state, Callbacks: dispatcher, World: w, Logger: log}
	graph, err := dialogue.NewGraphEngine(scene.Dialogues, env)
	if err != nil {
		return fmt.Errorf("scene %s: %w", scene.ID, err)
	}
	script := dialogue.NewScriptEngine(dialogue.ScriptConfig{
		Programs:  s.lib.Programs(scene),
		Aliases:   scene.Aliases,
		Sync:      s.storyVariables(),
		Externals: map[string]narrative.ExternalFunc{"triggerGameOverFired": s.fireFromStory},
	}, env)
	router := dialogue.NewRouter(log, script, graph)
	router.OnEnded(s.dialogueEnded)

	director := cases.NewDirector(caseCfg, s.state, roster, log)
	resolver := cases.NewResolver(caseCfg, s.state, log)

	if s.reactions != nil {
		s.reactions.Unsubscribe()
	}
	engine := reactions.NewEngine(roster, s.state, lifecycle, sink, log).
		WithRadius(s.cfg.WitnessRadius).
		WithStages(director).
		WithGameOver(s.cfg.GameOverDelay, s.timers, s.gameOver).
		WithObserver(s.effectApplied)
	if err := engine.Subscribe(s.bus); err != nil {
		return fmt.Errorf("scene %s: %w", scene.ID, err)
	}

	s.scene = scene
	s.caseCfg = caseCfg
	s.roster = roster
	s.lifecycle = lifecycle
	s.items = handler
	s.dispatcher = dispatcher
	s.dialogue = router
	s.reactions = engine
	s.director = director
	s.resolver = resolver
	s.timers.Clear()
	s.paused = false
	s.removed = make(map[string]bool)
	s.pendingScene = ""
	return nil
}

// storyVariables are synced into the story before every script dialogue.
func (s *Session) storyVariables() map[string]func() any {
	flag := func(ids ...string) func() any {
		return func() any {
			for _, id := range ids {
				if s.state.GetFlag(id) {
					return true
				}
			}
			return false
		}
	}
	return map[string]func() any{
		"playerDidCocaine":    flag("didSniffCoke", "usedCoke"),
		"player_ate_cheese_1": flag("didTasteCheese", "tastedCheese"),
		"player_ate_cheese_2": flag("cheeseDepleted"),
		"HAS_PHONE_CLUE":      flag("phoneTextRead"),
	}
}

func (s *Session) fireFromStory([]any) (any, error) {
	s.reactions.Apply(reactions.GameOver(FiredReason))
	return nil, nil
}

// gameOver is the delayed transition after a game over effect.
func (s *Session) gameOver(reason string) {
	if s.outcome.Status != StatusPlaying {
		return
	}
	s.endDialogue(true)
	s.outcome = Outcome{Status: StatusGameOver, Reason: reason}
	s.logger.Info("Game over", "reason", reason)
	if s.mirror != nil {
		s.mirror.GameOver(reason)
	}
	s.persist()
}

func (s *Session) effectApplied(fx reactions.Effect) {
	s.logger.Debug("Effect applied", "effect", fx.String())
	if s.mirror != nil {
		s.mirror.EffectApplied(fx)
	}
}

func (s *Session) dialogueEnded(sourceID string) {
	s.state.MarkEventAddressed(dialogue.EndedEventName(sourceID))
	if s.mirror != nil {
		s.mirror.DialogueEnded(sourceID)
	}
}

func (s *Session) endDialogue(discard bool) {
	if s.dialogue != nil && s.dialogue.IsDialogueActive() {
		s.dialogue.EndDialogue(dialogue.EndOptions{DiscardState: discard})
	}
}

// Update advances the session by one frame: movement, dialogue input, the speaker
// distance check, timers, then any scene change requested during the frame.
func (s *Session) Update(dt time.Duration, in Input) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome.Status == StatusPlaying && in.Move != (actor.Point{}) {
		p := s.roster.PlayerPosition()
		s.roster.MovePlayer(actor.Point{X: p.X + in.Move.X, Y: p.Y + in.Move.Y})
	}
	if s.dialogue.IsDialogueActive() {
		s.dialogue.Update(in.Input)
	}
	s.checkSpeakerDistance()
	s.timers.Advance(dt)
	s.applyPendingScene()
}

// checkSpeakerDistance ends the dialogue once the player is too far from a speaking character.
// Objects have no position and never end this way.
func (s *Session) checkSpeakerDistance() {
	if !s.dialogue.IsDialogueActive() {
		return
	}
	speaker := s.dialogue.CurrentNPC()
	pos, ok := s.roster.Position(speaker)
	if !ok {
		return
	}
	if d := pos.Distance(s.roster.PlayerPosition()); d > s.cfg.DialogueDistance {
		s.logger.Debug("Walked away from speaker", "speaker", speaker, "distance", d)
		s.dialogue.EndDialogue(dialogue.EndOptions{})
	}
}

func (s *Session) applyPendingScene() {
	if s.pendingScene == "" {
		return
	}
	id := s.pendingScene
	s.pendingScene = ""
	if err := s.changeScene(id); err != nil {
		logger.WithError(s.logger, err).Error("Scene change failed", "scene_id", id)
		s.sink().Notify("Something went wrong. You stay where you are.")
	}
}

// Interact starts a dialogue with a character or object. Characters must be within
// the dialogue distance.
func (s *Session) Interact(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome.Status != StatusPlaying || s.paused || s.removed[targetID] {
		return false
	}
	opts := dialogue.StartOptions{Speaker: s.speakerName(targetID)}
	switch c, ok := s.roster.Character(targetID); {
	case ok:
		if d := c.Position.Distance(s.roster.PlayerPosition()); d > s.cfg.DialogueDistance {
			s.logger.Debug("Too far to talk", "npc_id", targetID, "distance", d)
			return false
		}
		opts.Target = callbacks.Target{Kind: callbacks.TargetNPC, ID: targetID}
	default:
		if _, isItem := s.items.Config(targetID); isItem {
			opts.Target = callbacks.Target{Kind: callbacks.TargetItem, ID: targetID}
		} else {
			opts.Target = callbacks.Target{Kind: callbacks.TargetObject, ID: targetID}
		}
	}
	return s.dialogue.StartDialogue(targetID, opts)
}

func (s *Session) speakerName(id string) string {
	if c, ok := s.roster.Character(id); ok && c.Name != "" {
		return c.Name
	}
	if cfg, ok := s.items.Config(id); ok && cfg.Name != "" {
		return cfg.Name
	}
	return textfilter.DisplayName(id)
}

// UseItem uses a held item where the player stands. Items cannot be used during a dialogue.
func (s *Session) UseItem(itemID string) (items.UseResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome.Status != StatusPlaying || s.paused {
		return items.UseResult{}, false
	}
	pos := s.roster.PlayerPosition()
	res, ok := s.items.Use(items.UseRequest{
		ItemID:   itemID,
		Position: pos,
		Player:   s.roster.Player(),
	})
	if !ok {
		return res, false
	}
	if s.mirror != nil {
		var witnesses []string
		for _, w := range s.reactions.Witnesses(pos) {
			witnesses = append(witnesses, w.ID)
		}
		s.mirror.ItemUsed(itemID, string(res.NewStatus), witnesses)
	}
	s.persist()
	return res, true
}

// Accuse judges an accusation. A correct one wins the case; a wrong one is a game over.
func (s *Session) Accuse(suspectID, crimeID string) (cases.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome.Status != StatusPlaying || s.reactions.GameOverPending() {
		return cases.Verdict{}, ErrFinished
	}
	v, err := s.resolver.Accuse(suspectID, crimeID)
	if err != nil {
		return cases.Verdict{}, err
	}
	if s.mirror != nil {
		s.mirror.Verdict(suspectID, crimeID, v.Correct)
	}
	crime, _ := s.caseCfg.Crime(crimeID)
	if v.Correct {
		s.endDialogue(true)
		s.outcome = Outcome{Status: StatusVictory, Reason: crime.Label}
		s.sink().Notify("✅ Case closed: " + crime.Label)
		s.logger.Info("Case solved", "case_id", s.caseCfg.ID, "crime_id", crimeID)
	} else {
		s.reactions.Apply(reactions.GameOver(fmt.Sprintf("Wrong accusation. %s didn't do it.", s.speakerName(suspectID))))
	}
	s.persist()
	return v, nil
}

// persist queues a state snapshot for the Redis mirror. The copy is taken under the lock;
// the write happens later on the mirror's worker.
func (s *Session) persist() {
	if s.mirror == nil {
		return
	}
	s.mirror.Snapshot(s.state.Snapshot())
}

// world is what callbacks and dialogues may change about the scene.
type world struct {
	s *Session
}

func (w *world) Pause()  { w.s.paused = true }
func (w *world) Resume() { w.s.paused = false }

func (w *world) RemoveItemSprite(id string) {
	w.s.removed[id] = true
}

// ChangeScene defers to the end of the frame; the engines that asked are still running.
func (w *world) ChangeScene(sceneID string) {
	w.s.pendingScene = sceneID
}
