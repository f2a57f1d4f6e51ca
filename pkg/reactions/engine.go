package reactions

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/case-engine/pkg/actor"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/items"
	"github.com/jwebster45206/case-engine/pkg/notify"
)

const (
	// DefaultWitnessRadius applies to every character alike.
	DefaultWitnessRadius = 220
	// DefaultGameOverDelay separates the game-over notification from the transition.
	DefaultGameOverDelay = 900 * time.Millisecond
)

// Stage runs after the item rule on every use. apply executes one effect immediately,
// so later steps of a stage observe the state earlier steps produced.
type Stage interface {
	React(ev items.UsedEvent, apply func(Effect))
}

// Scheduler runs fn after d of game time.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Engine reacts to item use: it finds witnesses, runs the item's rule, applies the effects in order,
// then runs each stage.
type Engine struct {
	roster *actor.Roster
	state  *casestate.State
	clues  Clues
	sink   notify.Sink
	logger *slog.Logger

	rules         RuleTable
	stages        []Stage
	radius        float64
	gameOverDelay time.Duration
	scheduler     Scheduler
	transition    func(reason string)
	observers     []func(Effect)

	bus             *items.Bus
	sub             items.Subscription
	gameOverPending bool
}

// NewEngine creates an engine with the default rule table and radius. A nil logger uses slog.Default().
func NewEngine(roster *actor.Roster, state *casestate.State, clues Clues, sink notify.Sink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = notify.Discard
	}
	return &Engine{
		roster:        roster,
		state:         state,
		clues:         clues,
		sink:          sink,
		logger:        logger,
		rules:         DefaultRules(),
		radius:        DefaultWitnessRadius,
		gameOverDelay: DefaultGameOverDelay,
	}
}

// WithRules replaces the rule table
// Returns the Engine for method chaining
func (e *Engine) WithRules(rules RuleTable) *Engine {
	e.rules = rules
	return e
}

// WithRadius sets the witness radius
// Returns the Engine for method chaining
func (e *Engine) WithRadius(radius float64) *Engine {
	if radius > 0 {
		e.radius = radius
	}
	return e
}

// WithStages appends stages run after the item rule
// Returns the Engine for method chaining
func (e *Engine) WithStages(stages ...Stage) *Engine {
	e.stages = append(e.stages, stages...)
	return e
}

// WithGameOver sets how a game over leaves the scene
// Returns the Engine for method chaining
func (e *Engine) WithGameOver(delay time.Duration, scheduler Scheduler, transition func(reason string)) *Engine {
	if delay > 0 {
		e.gameOverDelay = delay
	}
	e.scheduler = scheduler
	e.transition = transition
	return e
}

// WithObserver registers a function called after every applied effect
// Returns the Engine for method chaining
func (e *Engine) WithObserver(fn func(Effect)) *Engine {
	if fn != nil {
		e.observers = append(e.observers, fn)
	}
	return e
}

// Subscribe attaches the engine to a bus. Subscribing again first detaches from the previous bus.
func (e *Engine) Subscribe(bus *items.Bus) error {
	e.Unsubscribe()
	sub, err := bus.Subscribe(e.HandleItemUsed)
	if err != nil {
		return fmt.Errorf("failed to subscribe reaction engine: %w", err)
	}
	e.bus = bus
	e.sub = sub
	return nil
}

// Unsubscribe detaches the engine. It is safe to call when not subscribed.
func (e *Engine) Unsubscribe() {
	if e.bus == nil {
		return
	}
	e.bus.Unsubscribe(e.sub)
	e.bus = nil
	e.sub = items.Subscription{}
}

// Witnesses returns the characters within the witness radius of pos, closest first.
func (e *Engine) Witnesses(pos actor.Point) []actor.Nearby {
	if e.roster == nil {
		return nil
	}
	return e.roster.Within(pos, e.radius)
}

// Resolve runs the item's rule without applying its effects. Rule tallies kept in state still advance.
func (e *Engine) Resolve(ev items.UsedEvent) (effects []Effect) {
	rule, ok := e.rules[ev.ItemID]
	if !ok {
		return nil
	}
	ctx := &Context{
		Event:     ev,
		Witnesses: e.Witnesses(ev.Position),
		State:     e.state,
		Clues:     e.clues,
		Roster:    e.roster,
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Reaction rule panicked", "item_id", ev.ItemID, "panic", r)
			effects = nil
		}
	}()
	return rule(ctx)
}

// HandleItemUsed is the bus handler.
func (e *Engine) HandleItemUsed(ev items.UsedEvent) {
	effects := e.Resolve(ev)
	e.logger.Debug("Item used",
		"item_id", ev.ItemID,
		"status", ev.Result.NewStatus,
		"effects", len(effects))
	for _, fx := range effects {
		e.Apply(fx)
	}
	for _, s := range e.stages {
		s.React(ev, e.Apply)
	}
}

// Apply executes one effect. Flags and unlocks are idempotent.
func (e *Engine) Apply(fx Effect) {
	switch fx.Kind {
	case KindBark:
		e.sink.Notify(fmt.Sprintf("%s: %s", e.name(fx.NPC), fx.Text))
	case KindMood:
		e.state.AdjustMood(fx.NPC, fx.To, fx.AddShock, fx.AddAnger)
	case KindFlag, KindUnlock:
		e.state.SetFlag(fx.ID, true)
	case KindCounter:
		e.state.IncrementCounter(fx.ID, fx.By)
	case KindNotify:
		e.sink.Notify(fx.Text)
	case KindAttack:
		e.sink.Notify(fmt.Sprintf("⚠ %s lashes out at you!", e.name(fx.NPC)))
		e.hit(fx.NPC)
	case KindGameOver:
		e.gameOver(fx)
	default:
		e.logger.Warn("Unknown effect kind", "kind", fx.Kind)
		return
	}
	for _, fn := range e.observers {
		fn(fx)
	}
}

func (e *Engine) hit(attackerID string) {
	if e.roster == nil || e.roster.Player() == nil {
		return
	}
	c, ok := e.roster.Character(attackerID)
	if !ok || c.Damage <= 0 {
		return
	}
	hp, err := e.roster.Player().TakeHit(c.Damage)
	if err != nil {
		e.logger.Warn("Failed to apply attack damage", "attacker", attackerID, "error", err)
		return
	}
	e.logger.Info("Player hit", "attacker", attackerID, "damage", c.Damage, "hp", hp)
}

// gameOver notifies at once and leaves the scene after the delay. Only the first game over transitions.
func (e *Engine) gameOver(fx Effect) {
	e.sink.Notify("🚫 " + fx.Text)
	if e.gameOverPending {
		return
	}
	e.gameOverPending = true
	delay := fx.Delay
	if delay <= 0 {
		delay = e.gameOverDelay
	}
	reason := fx.Text
	leave := func() {
		if e.transition != nil {
			e.transition(reason)
		}
	}
	if e.scheduler == nil {
		leave()
		return
	}
	e.scheduler.After(delay, leave)
}

// GameOverPending reports whether a game over is waiting for its transition.
func (e *Engine) GameOverPending() bool {
	return e.gameOverPending
}

// Reset clears the pending game over for a new game.
func (e *Engine) Reset() {
	e.gameOverPending = false
}

func (e *Engine) name(npcID string) string {
	if e.roster != nil {
		if c, ok := e.roster.Character(npcID); ok && c.Name != "" {
			return c.Name
		}
	}
	return npcID
}
