package cases

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/conditions"
)

// FailStateDelay separates a fail-state notification from the game over transition.
const FailStateDelay = 500 * time.Millisecond

// Accusations of crimes that are not in the case, or not yet open, are refused with these.
var (
	ErrUnknownCrime = errors.New("unknown crime")
	ErrCrimeLocked  = errors.New("crime is locked")
)

// CounterStep bumps a counter.
type CounterStep struct {
	ID string `yaml:"id" json:"id"`
	By int    `yaml:"by" json:"by"`
}

// EventRule fires when an item is used, optionally only in front of a witness
// and only while When holds.
type EventRule struct {
	WhenItem       string                `yaml:"whenItem" json:"when_item"`
	SetFlags       []string              `yaml:"setFlags,omitempty" json:"set_flags,omitempty"`
	AddCounters    []CounterStep         `yaml:"addCounters,omitempty" json:"add_counters,omitempty"`
	RequireWitness string                `yaml:"requireWitness,omitempty" json:"require_witness,omitempty"`
	When           *conditions.Condition `yaml:"when,omitempty" json:"when,omitempty"`
	Message        string                `yaml:"message,omitempty" json:"message,omitempty"` // shown when the rule sets a new flag
}

// Escalation is a one-time outburst: using an item with the given resulting status close to a character
// enough times sets flags and posts a message.
type Escalation struct {
	ID        string          `yaml:"id" json:"id"`
	WhenItem  string          `yaml:"whenItem" json:"when_item"`
	Status    casestate.Phase `yaml:"status,omitempty" json:"status,omitempty"`
	Near      string          `yaml:"near" json:"near"`
	Within    float64         `yaml:"within" json:"within"`
	Counter   string          `yaml:"counter" json:"counter"`
	Threshold int             `yaml:"threshold" json:"threshold"`
	SetFlags  []string        `yaml:"setFlags,omitempty" json:"set_flags,omitempty"`
	Message   string          `yaml:"message,omitempty" json:"message,omitempty"`
}

// Crime is an accusation option for a suspect.
type Crime struct {
	ID         string               `yaml:"id" json:"id"`
	Label      string               `yaml:"label" json:"label"`
	SuspectID  string               `yaml:"suspectId" json:"suspect_id"`
	File       string               `yaml:"file,omitempty" json:"file,omitempty"` // case file the crime belongs to
	UnlockWhen conditions.Condition `yaml:"unlockWhen" json:"unlock_when"`
}

// FailState ends the game once When holds.
type FailState struct {
	ID      string               `yaml:"id" json:"id"`
	Message string               `yaml:"message" json:"message"`
	When    conditions.Condition `yaml:"when" json:"when"`
}

// File is a case the player can be asked to solve. A nil ActiveWhen means always open.
type File struct {
	ID          string                `yaml:"id" json:"id"`
	Title       string                `yaml:"title" json:"title"`
	Task        string                `yaml:"task,omitempty" json:"task,omitempty"`
	Description string                `yaml:"description,omitempty" json:"description,omitempty"`
	Culprit     string                `yaml:"culprit" json:"culprit"`
	ActiveWhen  *conditions.Condition `yaml:"activeWhen,omitempty" json:"active_when,omitempty"`
}

// Config is the rule set for one scene's case.
type Config struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title,omitempty" json:"title,omitempty"`
	Suspects []string `yaml:"suspects" json:"suspects"`
	// Culprit is used for crimes that do not name a case file.
	Culprit     string       `yaml:"culprit,omitempty" json:"culprit,omitempty"`
	EventRules  []EventRule  `yaml:"eventRules,omitempty" json:"event_rules,omitempty"`
	Escalations []Escalation `yaml:"escalations,omitempty" json:"escalations,omitempty"`
	Crimes      []Crime      `yaml:"crimes" json:"crimes"`
	FailStates  []FailState  `yaml:"failStates,omitempty" json:"fail_states,omitempty"`
	Files       []File       `yaml:"files,omitempty" json:"files,omitempty"`
	// DepletionFlags maps an item to the flag set when a use leaves it empty; default "<item>Depleted".
	DepletionFlags map[string]string `yaml:"depletionFlags,omitempty" json:"depletion_flags,omitempty"`
}

// Crime looks up a crime by id.
func (c *Config) Crime(id string) (Crime, bool) {
	i := slices.IndexFunc(c.Crimes, func(cr Crime) bool { return cr.ID == id })
	if i < 0 {
		return Crime{}, false
	}
	return c.Crimes[i], true
}

// File looks up a case file by id.
func (c *Config) File(id string) (File, bool) {
	i := slices.IndexFunc(c.Files, func(f File) bool { return f.ID == id })
	if i < 0 {
		return File{}, false
	}
	return c.Files[i], true
}

// DepletionFlag returns the flag set when itemID runs out.
func (c *Config) DepletionFlag(itemID string) string {
	if f, ok := c.DepletionFlags[itemID]; ok {
		return f
	}
	return itemID + "Depleted"
}

// Validate checks references between suspects, crimes and files, and every condition.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("case id is required")
	}
	var errs []error
	isSuspect := func(id string) bool { return slices.Contains(c.Suspects, id) }
	check := func(where string, cond conditions.Condition) {
		if err := conditions.Validate(cond); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}

	files := make(map[string]bool)
	for _, f := range c.Files {
		if f.ID == "" || files[f.ID] {
			errs = append(errs, fmt.Errorf("file %q: missing or duplicate id", f.ID))
		}
		files[f.ID] = true
		if !isSuspect(f.Culprit) {
			errs = append(errs, fmt.Errorf("file %s: culprit %q is not a suspect", f.ID, f.Culprit))
		}
		if f.ActiveWhen != nil {
			check("file "+f.ID, *f.ActiveWhen)
		}
	}

	crimes := make(map[string]bool)
	for _, cr := range c.Crimes {
		if cr.ID == "" || crimes[cr.ID] {
			errs = append(errs, fmt.Errorf("crime %q: missing or duplicate id", cr.ID))
		}
		crimes[cr.ID] = true
		if !isSuspect(cr.SuspectID) {
			errs = append(errs, fmt.Errorf("crime %s: suspect %q is not a suspect", cr.ID, cr.SuspectID))
		}
		if cr.File != "" && !files[cr.File] {
			errs = append(errs, fmt.Errorf("crime %s: file %q does not exist", cr.ID, cr.File))
		}
		check("crime "+cr.ID, cr.UnlockWhen)
	}

	for i, r := range c.EventRules {
		if r.WhenItem == "" {
			errs = append(errs, fmt.Errorf("event rule %d: whenItem is required", i))
		}
		if r.RequireWitness != "" && !isSuspect(r.RequireWitness) {
			errs = append(errs, fmt.Errorf("event rule %d: witness %q is not a suspect", i, r.RequireWitness))
		}
		if r.When != nil {
			check(fmt.Sprintf("event rule %d", i), *r.When)
		}
	}

	for _, e := range c.Escalations {
		if e.ID == "" || e.WhenItem == "" || e.Counter == "" || e.Threshold <= 0 {
			errs = append(errs, fmt.Errorf("escalation %q: id, whenItem, counter and a positive threshold are required", e.ID))
		}
		if e.Status != "" && !e.Status.Valid() {
			errs = append(errs, fmt.Errorf("escalation %s: invalid status %q", e.ID, e.Status))
		}
	}

	for _, fs := range c.FailStates {
		check("fail state "+fs.ID, fs.When)
	}
	return errors.Join(errs...)
}
