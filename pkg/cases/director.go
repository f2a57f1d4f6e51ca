package cases

import (
	"log/slog"
	"slices"

	"github.com/jwebster45206/case-engine/pkg/actor"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/conditions"
	"github.com/jwebster45206/case-engine/pkg/items"
	"github.com/jwebster45206/case-engine/pkg/reactions"
)

// Director applies the active case's rules after each item use. It runs as a reaction stage,
// so every step sees the mutations of the steps before it.
type Director struct {
	cfg       *Config
	state     *casestate.State
	roster    *actor.Roster
	evaluator *conditions.Evaluator
	logger    *slog.Logger
}

var _ reactions.Stage = (*Director)(nil)

// NewDirector creates a director for cfg. A nil cfg leaves the director idle until Load.
func NewDirector(cfg *Config, state *casestate.State, roster *actor.Roster, logger *slog.Logger) *Director {
	if logger == nil {
		logger = slog.Default()
	}
	return &Director{
		cfg:       cfg,
		state:     state,
		roster:    roster,
		evaluator: conditions.NewEvaluator(logger),
		logger:    logger,
	}
}

// Load switches to another case. Fail states are tracked per case in the case state.
func (d *Director) Load(cfg *Config) {
	d.cfg = cfg
	if cfg != nil {
		d.logger.Info("Case loaded", "case_id", cfg.ID, "crimes", len(cfg.Crimes))
	}
}

// Config returns the active case, or nil.
func (d *Director) Config() *Config {
	return d.cfg
}

// failedEvent is the addressed event recording that a case hit a fail state. It lives in
// the case state, so a director rebuilt for another scene does not fire again.
func failedEvent(caseID string) string {
	return "failState_" + caseID
}

// Failed reports whether a fail state of the active case has fired.
func (d *Director) Failed() bool {
	return d.cfg != nil && d.state.HasEventBeenAddressed(failedEvent(d.cfg.ID))
}

// React implements reactions.Stage.
func (d *Director) React(ev items.UsedEvent, apply func(reactions.Effect)) {
	if d.cfg == nil {
		return
	}
	log := d.logger.With("case_id", d.cfg.ID, "item_id", ev.ItemID)

	if ev.Result.NewStatus == casestate.PhaseEmpty {
		flag := d.cfg.DepletionFlag(ev.ItemID)
		if !d.state.GetFlag(flag) {
			apply(reactions.SetFlag(flag))
		}
	}

	for _, esc := range d.cfg.Escalations {
		d.escalate(esc, ev, apply, log)
	}

	for _, rule := range d.cfg.EventRules {
		if rule.WhenItem != ev.ItemID {
			continue
		}
		if rule.RequireWitness != "" && !d.witnessed(rule.RequireWitness, ev.Position) {
			continue
		}
		if rule.When != nil && !d.evaluator.Evaluate(*rule.When, d.state) {
			continue
		}
		changed := false
		for _, f := range rule.SetFlags {
			if d.state.GetFlag(f) {
				continue
			}
			apply(reactions.SetFlag(f))
			changed = true
		}
		for _, c := range rule.AddCounters {
			apply(reactions.Counter(c.ID, c.By))
		}
		if changed && rule.Message != "" {
			apply(reactions.Notify(rule.Message))
		}
	}

	d.checkFailStates(apply, log)
}

// escalate counts qualifying uses near a character and fires once the threshold is reached.
// The escalation id is recorded as an addressed event so it fires a single time per game.
func (d *Director) escalate(esc Escalation, ev items.UsedEvent, apply func(reactions.Effect), log *slog.Logger) {
	if esc.WhenItem != ev.ItemID {
		return
	}
	if esc.Status != "" && ev.Result.NewStatus != esc.Status {
		return
	}
	if esc.Near != "" {
		p, ok := d.position(esc.Near)
		if !ok || p.Distance(ev.Position) > esc.Within {
			return
		}
	}
	n := d.state.IncrementCounter(esc.Counter, 1)
	if n < esc.Threshold || d.state.HasEventBeenAddressed(esc.ID) {
		return
	}
	d.state.MarkEventAddressed(esc.ID)
	log.Info("Escalation fired", "escalation", esc.ID, "count", n)
	for _, f := range esc.SetFlags {
		apply(reactions.SetFlag(f))
	}
	if esc.Message != "" {
		apply(reactions.Notify(esc.Message))
	}
}

func (d *Director) checkFailStates(apply func(reactions.Effect), log *slog.Logger) {
	if d.Failed() {
		return
	}
	for _, fs := range d.cfg.FailStates {
		if !d.evaluator.Evaluate(fs.When, d.state) {
			continue
		}
		d.state.MarkEventAddressed(failedEvent(d.cfg.ID))
		log.Info("Fail state reached", "fail_state", fs.ID)
		fx := reactions.GameOver(fs.Message)
		fx.Delay = FailStateDelay
		apply(fx)
		return
	}
}

// witnessed reports whether a suspect stood within their own sensory range of pos.
func (d *Director) witnessed(npcID string, pos actor.Point) bool {
	if d.roster == nil {
		return false
	}
	c, ok := d.roster.Character(npcID)
	if !ok {
		return false
	}
	return c.Position.Distance(pos) <= c.Range()
}

func (d *Director) position(npcID string) (actor.Point, bool) {
	if d.roster == nil {
		return actor.Point{}, false
	}
	return d.roster.Position(npcID)
}

// Witnesses lists the active case's suspects who could see pos.
func (d *Director) Witnesses(pos actor.Point) []string {
	if d.cfg == nil {
		return nil
	}
	return slices.DeleteFunc(slices.Clone(d.cfg.Suspects), func(id string) bool {
		return !d.witnessed(id, pos)
	})
}
