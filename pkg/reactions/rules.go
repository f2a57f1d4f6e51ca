package reactions

import (
	"slices"

	"github.com/jwebster45206/case-engine/pkg/actor"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/items"
)

// FallbackBark is said by a witness without an authored line.
const FallbackBark = "..."

// CloseRange is how near Officer Whiskers must be to notice the cheese being eaten.
const CloseRange = 130

// Incident thresholds.
const (
	CheeseIncidentCounter   = "cheeseEatenInFrontOfWhiskers"
	CheeseIncidentThreshold = 3
)

// Clues tells rules which clues the player has found.
type Clues interface {
	IsDiscovered(clueID string) bool
}

// Context is what a rule sees for one item use.
type Context struct {
	Event     items.UsedEvent
	Witnesses []actor.Nearby
	State     *casestate.State
	Clues     Clues
	Roster    *actor.Roster
}

// Saw reports whether a character witnessed the use.
func (c *Context) Saw(npcID string) bool {
	return slices.ContainsFunc(c.Witnesses, func(n actor.Nearby) bool { return n.ID == npcID })
}

// WitnessIDs returns witness ids, closest first.
func (c *Context) WitnessIDs() []string {
	out := make([]string, len(c.Witnesses))
	for i, w := range c.Witnesses {
		out[i] = w.ID
	}
	return out
}

// Line returns a character's authored reaction to key.
func (c *Context) Line(npcID, key string) (string, bool) {
	if c.Roster == nil {
		return "", false
	}
	ch, ok := c.Roster.Character(npcID)
	if !ok {
		return "", false
	}
	return ch.ReactionTo(key)
}

// PickBark returns the authored line or FallbackBark.
func (c *Context) PickBark(npcID, key string) string {
	if line, ok := c.Line(npcID, key); ok {
		return line
	}
	return FallbackBark
}

// Within reports whether a character stands within dist of where the item was used.
func (c *Context) Within(npcID string, dist float64) bool {
	if c.Roster == nil {
		return false
	}
	p, ok := c.Roster.Position(npcID)
	return ok && p.Distance(c.Event.Position) <= dist
}

func (c *Context) discovered(clueID string) bool {
	return c.Clues != nil && c.Clues.IsDiscovered(clueID)
}

// Rule turns one item use into an ordered effect list. A rule may keep running tallies in State.
type Rule func(ctx *Context) []Effect

// RuleTable maps item ids to their rule.
type RuleTable map[string]Rule

// DefaultRules is the rule table for the tutorial items.
func DefaultRules() RuleTable {
	return RuleTable{
		"coke":       cokeRule,
		"blueCheese": cheeseRule,
		"clueGlue":   glueRule,
	}
}

func cokeRule(ctx *Context) []Effect {
	e := []Effect{SetFlag("didSniffCoke")}
	for _, w := range ctx.WitnessIDs() {
		if line, ok := ctx.Line(w, "coke"); ok {
			e = append(e, Bark(w, line))
		}
	}
	for _, w := range ctx.WitnessIDs() {
		e = append(e, Mood(w, MoodShocked, 2, 0))
	}
	for _, id := range []string{"pinkDressGirlMouse", "rockerMouse"} {
		if ctx.Saw(id) {
			e = append(e, Mood(id, "", 3, 0))
		}
	}
	// the phone ties the powder to Jennie
	if ctx.discovered("cluePhone") {
		e = append(e, Unlock("accuseJennieCocaine"))
	}
	return e
}

func cheeseRule(ctx *Context) []Effect {
	e := []Effect{SetFlag("didTasteCheese")}
	if ctx.Saw("orangeShirtMouse") {
		e = append(e, Bark("orangeShirtMouse", ctx.PickBark("orangeShirtMouse", "blueCheese")))
	}
	if ctx.Saw("cop2") {
		e = append(e, Bark("cop2", ctx.PickBark("cop2", "clueCheese")))
		if n := ctx.State.IncrementCounter(CheeseIncidentCounter, 1); n >= CheeseIncidentThreshold {
			e = append(e, Attack("cop2"), Unlock("accuseWhiskersViolence"))
		}
	}
	if ctx.Saw("orangeShirtMouse") && ctx.State.GetFlag("cheeseMarkedIllegal") {
		e = append(e, Unlock("accuseJerryIllegalCheese"))
	}

	status := ctx.Event.Result.NewStatus
	ate := status == casestate.PhaseHalf || status == casestate.PhaseEmpty
	if ate && ctx.Within("cop2", CloseRange) {
		e = append(e, Bark("cop2", "Hey! Are you eating that cheese right here?!"))
	}
	return e
}

func glueRule(ctx *Context) []Effect {
	var e []Effect
	for _, w := range ctx.WitnessIDs() {
		e = append(e, Bark(w, ctx.PickBark(w, "clueGlue")))
	}
	return e
}
