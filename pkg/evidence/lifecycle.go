package evidence

import (
	"log/slog"

	"github.com/jwebster45206/case-engine/pkg/casestate"
)

// Inventory is the inventory-facing collaborator the lifecycle keeps in sync.
type Inventory interface {
	Quantity(itemID string) int
	RemoveItem(itemID string)
	UpdateItemDisplay(itemID, displayKey string)
}

// Lifecycle owns clue discovery and degradation and keeps the inventory representation
// consistent with the clue phase.
type Lifecycle struct {
	state     *casestate.State
	registry  *Registry
	art       ArtTable
	inventory Inventory
	items     map[string]string // clue id -> inventory item id
	logger    *slog.Logger
}

// NewLifecycle wires a lifecycle to its stores. The inventory may be nil until WithInventory is called.
func NewLifecycle(state *casestate.State, registry *Registry, art ArtTable, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	if art == nil {
		art = ArtTable{}
	}
	return &Lifecycle{
		state:    state,
		registry: registry,
		art:      art,
		items:    make(map[string]string),
		logger:   logger,
	}
}

// WithInventory sets the inventory collaborator.
// Returns the Lifecycle for method chaining
func (l *Lifecycle) WithInventory(inv Inventory) *Lifecycle {
	l.inventory = inv
	return l
}

// Link associates a clue with the inventory item that represents it.
func (l *Lifecycle) Link(clueID, itemID string) {
	l.items[clueID] = itemID
}

// ItemFor returns the inventory item linked to a clue.
func (l *Lifecycle) ItemFor(clueID string) (string, bool) {
	id, ok := l.items[clueID]
	return id, ok
}

// Registry exposes the clue registry.
func (l *Lifecycle) Registry() *Registry {
	return l.registry
}

// Discover marks a clue discovered exactly once.
func (l *Lifecycle) Discover(clueID string) DiscoverResult {
	return l.registry.Discover(clueID)
}

// IsDiscovered reports whether a clue has been discovered.
func (l *Lifecycle) IsDiscovered(clueID string) bool {
	return l.registry.IsDiscovered(clueID)
}

// Degrades reports whether a clue has art that wears down with use.
func (l *Lifecycle) Degrades(clueID string) bool {
	return l.art.Phased(clueID)
}

// Track creates the runtime state for a clue: full for degrading art, fixed otherwise.
func (l *Lifecycle) Track(clueID string) casestate.Phase {
	if l.art.Phased(clueID) {
		return l.state.GetOrInitClueState(clueID).Phase
	}
	return l.state.InitClueState(clueID, casestate.PhaseFixed).Phase
}

// Phase returns the current phase of a clue, tracking it first if needed.
func (l *Lifecycle) Phase(clueID string) casestate.Phase {
	if cs, ok := l.state.ClueState(clueID); ok {
		return cs.Phase
	}
	return l.Track(clueID)
}

// DisplayKey returns the presentation key for the clue's current phase.
func (l *Lifecycle) DisplayKey(clueID string, size Size) (string, bool) {
	return l.art.Key(clueID, size, l.Phase(clueID))
}

// Degrade moves a clue one phase toward empty and refreshes the inventory art.
// Clues with a single fixed representation are left alone.
func (l *Lifecycle) Degrade(clueID string) casestate.Phase {
	before := l.Track(clueID)
	if before == casestate.PhaseFixed {
		return before
	}
	after := l.state.DegradeClue(clueID)
	if after != before {
		l.refreshDisplay(clueID)
	}
	return after
}

func (l *Lifecycle) refreshDisplay(clueID string) {
	itemID, ok := l.items[clueID]
	if !ok || l.inventory == nil {
		return
	}
	key, ok := l.DisplayKey(clueID, SizeSmall)
	if !ok {
		l.logger.Warn("No art for clue phase", "clue_id", clueID, "phase", l.Phase(clueID))
		return
	}
	l.inventory.UpdateItemDisplay(itemID, key)
}

// Reconcile enforces quantity/phase consistency for a clue's inventory item and reports
// whether the item was removed. A quantity of zero forces the phase to empty, and an
// empty phase removes the item whatever the quantity says.
func (l *Lifecycle) Reconcile(clueID string) bool {
	itemID, ok := l.items[clueID]
	if !ok || l.inventory == nil {
		return false
	}
	phase := l.Phase(clueID)
	qty := l.inventory.Quantity(itemID)

	if qty <= 0 && phase != casestate.PhaseEmpty && phase != casestate.PhaseFixed {
		phase = l.state.ForceEmpty(clueID)
		l.refreshDisplay(clueID)
	}
	if phase != casestate.PhaseEmpty && qty > 0 {
		return false
	}
	if qty > 0 {
		l.logger.Debug("Clue empty but quantity remains, removing item",
			"clue_id", clueID,
			"item_id", itemID,
			"quantity", qty)
	}
	l.inventory.RemoveItem(itemID)
	return true
}
