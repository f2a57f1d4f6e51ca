package evidence

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Category groups clues in the case journal.
type Category string

const (
	CategoryEvidence Category = "evidence"
	CategoryPeople   Category = "people"
	CategoryPlaces   Category = "places"
	CategoryTimeline Category = "timeline"
)

// Categories lists the valid categories in journal order.
var Categories = []Category{CategoryEvidence, CategoryPeople, CategoryPlaces, CategoryTimeline}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Clue is a discoverable fact or object.
type Clue struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
	ImageKey    string   `json:"image_key,omitempty" yaml:"imageKey,omitempty"`
	Discovered  bool     `json:"discovered" yaml:"-"`
}

var (
	ErrDuplicateClue   = errors.New("duplicate clue id")
	ErrInvalidCategory = errors.New("invalid clue category")
)

// DiscoverResult is the outcome of a Discover call.
type DiscoverResult int

const (
	Discovered DiscoverResult = iota
	AlreadyDiscovered
	UnknownClue
)

func (r DiscoverResult) String() string {
	switch r {
	case Discovered:
		return "discovered"
	case AlreadyDiscovered:
		return "already discovered"
	default:
		return "unknown clue"
	}
}

// Discoveries records which clues have been found. *casestate.State implements it, which
// keeps discovery case-wide while registries come and go with scenes.
type Discoveries interface {
	MarkClueDiscovered(id string) bool
	IsClueDiscovered(id string) bool
	ForgetClueDiscoveries()
}

// discoverySet is the default store of a registry with no case state behind it.
type discoverySet map[string]struct{}

func (d discoverySet) MarkClueDiscovered(id string) bool {
	if _, ok := d[id]; ok {
		return false
	}
	d[id] = struct{}{}
	return true
}

func (d discoverySet) IsClueDiscovered(id string) bool {
	_, ok := d[id]
	return ok
}

func (d discoverySet) ForgetClueDiscoveries() {
	clear(d)
}

// Registry holds the clues of a case, in registration order.
type Registry struct {
	clues      map[string]*Clue
	order      []string
	discovered Discoveries
	logger     *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		clues:      make(map[string]*Clue),
		discovered: discoverySet{},
		logger:     logger,
	}
}

// WithDiscoveries backs the registry with a shared discovery store.
// Returns the Registry for method chaining
func (r *Registry) WithDiscoveries(d Discoveries) *Registry {
	r.discovered = d
	return r
}

// Add registers a clue. Ids must be unique and the category must be valid.
func (r *Registry) Add(c Clue) error {
	if !c.Category.Valid() {
		return fmt.Errorf("%w: %q for clue %s", ErrInvalidCategory, c.Category, c.ID)
	}
	if _, exists := r.clues[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateClue, c.ID)
	}
	clue := c
	clue.Discovered = false
	r.clues[c.ID] = &clue
	r.order = append(r.order, c.ID)
	return nil
}

func (r *Registry) view(c *Clue) Clue {
	out := *c
	out.Discovered = r.discovered.IsClueDiscovered(c.ID)
	return out
}

// Get returns a copy of a clue.
func (r *Registry) Get(id string) (Clue, bool) {
	c, ok := r.clues[id]
	if !ok {
		return Clue{}, false
	}
	return r.view(c), true
}

// IsDiscovered reports whether the clue has been discovered. With a shared store this
// includes clues found in other scenes of the case.
func (r *Registry) IsDiscovered(id string) bool {
	return r.discovered.IsClueDiscovered(id)
}

// Discover marks a clue discovered. Rediscovery and unknown ids are reported, not treated as errors.
func (r *Registry) Discover(id string) DiscoverResult {
	if _, ok := r.clues[id]; !ok {
		r.logger.Warn("Discover called for unknown clue", "clue_id", id)
		return UnknownClue
	}
	if !r.discovered.MarkClueDiscovered(id) {
		return AlreadyDiscovered
	}
	return Discovered
}

// List returns clues in registration order, filtered by category when one is given.
func (r *Registry) List(category Category) []Clue {
	var out []Clue
	for _, id := range r.order {
		c := r.clues[id]
		if category != "" && c.Category != category {
			continue
		}
		out = append(out, r.view(c))
	}
	return out
}

// DiscoveredIDs returns the ids of discovered clues in registration order.
func (r *Registry) DiscoveredIDs() []string {
	var out []string
	for _, id := range r.order {
		if r.discovered.IsClueDiscovered(id) {
			out = append(out, id)
		}
	}
	return out
}

// Reset forgets every discovery. Registrations are kept.
func (r *Registry) Reset() {
	r.discovered.ForgetClueDiscoveries()
}
