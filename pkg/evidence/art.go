package evidence

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/case-engine/pkg/casestate"
	"gopkg.in/yaml.v3"
)

// Size selects the inventory (small) or journal (large) representation.
type Size string

const (
	SizeSmall Size = "small"
	SizeLarge Size = "large"
)

// ArtSet is either a single fixed key or one key per phase.
type ArtSet struct {
	Fixed  string                     `json:"-" yaml:"-"`
	Phases map[casestate.Phase]string `json:"-" yaml:"-"`
}

// Phased reports whether the set changes with use.
func (a ArtSet) Phased() bool {
	return a.Fixed == "" && len(a.Phases) > 0
}

// Key returns the key for a phase. Fixed sets ignore the phase.
func (a ArtSet) Key(phase casestate.Phase) string {
	if !a.Phased() {
		return a.Fixed
	}
	return a.Phases[phase]
}

// UnmarshalJSON accepts either a plain string (fixed) or an object keyed by phase.
func (a *ArtSet) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		a.Fixed = str
		a.Phases = nil
		return nil
	}
	var phases map[casestate.Phase]string
	if err := json.Unmarshal(data, &phases); err != nil {
		return fmt.Errorf("art set must be a string or a phase map: %w", err)
	}
	return a.setPhases(phases)
}

// MarshalJSON writes the same shape UnmarshalJSON reads.
func (a ArtSet) MarshalJSON() ([]byte, error) {
	if a.Phased() {
		return json.Marshal(a.Phases)
	}
	return json.Marshal(a.Fixed)
}

// UnmarshalYAML accepts either a scalar (fixed) or a mapping keyed by phase.
func (a *ArtSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Fixed = node.Value
		a.Phases = nil
		return nil
	}
	var phases map[casestate.Phase]string
	if err := node.Decode(&phases); err != nil {
		return fmt.Errorf("art set must be a string or a phase map: %w", err)
	}
	return a.setPhases(phases)
}

func (a *ArtSet) setPhases(phases map[casestate.Phase]string) error {
	for _, p := range []casestate.Phase{casestate.PhaseFull, casestate.PhaseHalf, casestate.PhaseEmpty} {
		if phases[p] == "" {
			return fmt.Errorf("phased art set is missing %q", p)
		}
	}
	a.Fixed = ""
	a.Phases = phases
	return nil
}

// ArtEntry is the artwork for one clue at both sizes.
type ArtEntry struct {
	Small ArtSet `json:"small" yaml:"small"`
	Large ArtSet `json:"large" yaml:"large"`
}

// Phased reports whether the clue's art wears down.
func (e ArtEntry) Phased() bool {
	return e.Small.Phased() || e.Large.Phased()
}

// ArtTable maps clue ids to artwork.
type ArtTable map[string]ArtEntry

// Phased reports whether a clue has degrading art. Unknown clues are fixed.
func (t ArtTable) Phased(clueID string) bool {
	e, ok := t[clueID]
	return ok && e.Phased()
}

// Key resolves the presentation key for a clue at a phase and size.
func (t ArtTable) Key(clueID string, size Size, phase casestate.Phase) (string, bool) {
	e, ok := t[clueID]
	if !ok {
		return "", false
	}
	set := e.Small
	if size == SizeLarge {
		set = e.Large
	}
	key := set.Key(phase)
	return key, key != ""
}
