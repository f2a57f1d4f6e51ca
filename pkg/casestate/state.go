package casestate

import (
	"maps"
	"slices"
)

// Phase is the degradation stage of a consumable clue.
type Phase string

const (
	PhaseFull  Phase = "full"
	PhaseHalf  Phase = "half"
	PhaseEmpty Phase = "empty"
	PhaseFixed Phase = "fixed" // never transitions
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseFull, PhaseHalf, PhaseEmpty, PhaseFixed:
		return true
	}
	return false
}

// next returns the phase that follows p along full -> half -> empty.
// Empty and fixed are terminal.
func (p Phase) next() Phase {
	switch p {
	case PhaseFull:
		return PhaseHalf
	case PhaseHalf:
		return PhaseEmpty
	default:
		return p
	}
}

// ClueRuntimeState tracks the physical state of a clue whose representation changes with use.
type ClueRuntimeState struct {
	Phase    Phase `json:"phase"`
	UsesLeft *int  `json:"uses_left,omitempty"`
}

// Mood is the accumulated emotional state of a character.
// Nothing reads it back yet; it is recorded for the HUD.
type Mood struct {
	Label string `json:"label,omitempty"`
	Shock int    `json:"shock,omitempty"`
	Anger int    `json:"anger,omitempty"`
}

// State is the shared, in-memory case state for one play session.
// It is not safe for concurrent use; callers serialize access.
type State struct {
	flags           map[string]bool
	collectedItems  map[string]struct{}
	clueState       map[string]*ClueRuntimeState
	discoveredClues map[string]struct{}
	eventsAddressed map[string]struct{}
	counters        map[string]int
	moods           map[string]Mood
}

// New creates an empty case state.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset discards everything. Used by the new game action.
func (s *State) Reset() {
	s.flags = make(map[string]bool)
	s.collectedItems = make(map[string]struct{})
	s.clueState = make(map[string]*ClueRuntimeState)
	s.discoveredClues = make(map[string]struct{})
	s.eventsAddressed = make(map[string]struct{})
	s.counters = make(map[string]int)
	s.moods = make(map[string]Mood)
}

// GetFlag returns the flag value, false if unset.
func (s *State) GetFlag(id string) bool {
	return s.flags[id]
}

// SetFlag sets a flag. Setting a flag to its current value is a no-op.
func (s *State) SetFlag(id string, value bool) {
	s.flags[id] = value
}

// HasFlag reports whether the flag has ever been written.
func (s *State) HasFlag(id string) bool {
	_, ok := s.flags[id]
	return ok
}

// AddItem records that an item was collected.
func (s *State) AddItem(id string) {
	s.collectedItems[id] = struct{}{}
}

// HasItem reports whether the item was ever collected.
func (s *State) HasItem(id string) bool {
	_, ok := s.collectedItems[id]
	return ok
}

// GetOrInitClueState returns the runtime state for a clue, creating it in the full phase on first access.
func (s *State) GetOrInitClueState(id string) *ClueRuntimeState {
	return s.InitClueState(id, PhaseFull)
}

// InitClueState creates the runtime state for a clue with the given phase if it does not exist yet.
// Existing state is returned untouched.
func (s *State) InitClueState(id string, phase Phase) *ClueRuntimeState {
	if cs, ok := s.clueState[id]; ok {
		return cs
	}
	cs := &ClueRuntimeState{Phase: phase}
	s.clueState[id] = cs
	return cs
}

// ClueState returns the runtime state for a clue without creating it.
func (s *State) ClueState(id string) (ClueRuntimeState, bool) {
	cs, ok := s.clueState[id]
	if !ok {
		return ClueRuntimeState{}, false
	}
	return *cs, true
}

// DegradeClue moves a clue one phase toward empty and returns the resulting phase.
// Once empty or fixed, repeated calls return the same phase without mutating anything.
func (s *State) DegradeClue(id string) Phase {
	cs := s.GetOrInitClueState(id)
	next := cs.Phase.next()
	if next == cs.Phase {
		return cs.Phase
	}
	cs.Phase = next
	if cs.UsesLeft != nil && *cs.UsesLeft > 0 {
		*cs.UsesLeft--
	}
	return cs.Phase
}

// ForceEmpty moves a non-fixed clue straight to empty.
func (s *State) ForceEmpty(id string) Phase {
	cs := s.GetOrInitClueState(id)
	if cs.Phase == PhaseFixed {
		return cs.Phase
	}
	cs.Phase = PhaseEmpty
	if cs.UsesLeft != nil {
		*cs.UsesLeft = 0
	}
	return cs.Phase
}

// MarkClueDiscovered records a discovery and reports whether it is new.
func (s *State) MarkClueDiscovered(id string) bool {
	if _, ok := s.discoveredClues[id]; ok {
		return false
	}
	s.discoveredClues[id] = struct{}{}
	return true
}

// IsClueDiscovered reports whether a clue has been discovered in any scene of the case.
func (s *State) IsClueDiscovered(id string) bool {
	_, ok := s.discoveredClues[id]
	return ok
}

// ForgetClueDiscoveries clears discoveries only.
func (s *State) ForgetClueDiscoveries() {
	clear(s.discoveredClues)
}

// MarkEventAddressed records that a one-shot event has fired.
func (s *State) MarkEventAddressed(name string) {
	s.eventsAddressed[name] = struct{}{}
}

// HasEventBeenAddressed reports whether a one-shot event has fired.
func (s *State) HasEventBeenAddressed(name string) bool {
	_, ok := s.eventsAddressed[name]
	return ok
}

// GetCounter returns the named counter, zero if unset.
func (s *State) GetCounter(id string) int {
	return s.counters[id]
}

// SetCounter overwrites the named counter.
func (s *State) SetCounter(id string, value int) {
	s.counters[id] = value
}

// IncrementCounter adds by to the named counter and returns the new value.
func (s *State) IncrementCounter(id string, by int) int {
	s.counters[id] += by
	return s.counters[id]
}

// AdjustMood applies a mood change to a character and returns the resulting mood.
// An empty label leaves the current label in place.
func (s *State) AdjustMood(characterID, label string, addShock, addAnger int) Mood {
	m := s.moods[characterID]
	if label != "" {
		m.Label = label
	}
	m.Shock += addShock
	m.Anger += addAnger
	s.moods[characterID] = m
	return m
}

// GetMood returns the mood of a character, the zero Mood if untouched.
func (s *State) GetMood(characterID string) Mood {
	return s.moods[characterID]
}

// Snapshot is a detached copy of the state, safe to serialize or hand to another goroutine.
type Snapshot struct {
	Flags           map[string]bool             `json:"flags"`
	Items           []string                    `json:"items"`
	Clues           map[string]ClueRuntimeState `json:"clues"`
	DiscoveredClues []string                    `json:"discovered_clues"`
	EventsAddressed []string                    `json:"events_addressed"`
	Counters        map[string]int              `json:"counters"`
	Moods           map[string]Mood             `json:"moods"`
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	clues := make(map[string]ClueRuntimeState, len(s.clueState))
	for id, cs := range s.clueState {
		c := *cs
		if cs.UsesLeft != nil {
			n := *cs.UsesLeft
			c.UsesLeft = &n
		}
		clues[id] = c
	}
	return Snapshot{
		Flags:           maps.Clone(s.flags),
		Items:           slices.Sorted(maps.Keys(s.collectedItems)),
		Clues:           clues,
		DiscoveredClues: slices.Sorted(maps.Keys(s.discoveredClues)),
		EventsAddressed: slices.Sorted(maps.Keys(s.eventsAddressed)),
		Counters:        maps.Clone(s.counters),
		Moods:           maps.Clone(s.moods),
	}
}

// SortedFlags returns flag ids in lexical order.
func (sn Snapshot) SortedFlags() []string {
	return slices.Sorted(maps.Keys(sn.Flags))
}

// SortedCounters returns counter ids in lexical order.
func (sn Snapshot) SortedCounters() []string {
	return slices.Sorted(maps.Keys(sn.Counters))
}
