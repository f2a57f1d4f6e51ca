package items

import (
	"log/slog"

	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/evidence"
	"github.com/jwebster45206/case-engine/pkg/notify"
)

const defaultDepletedMessage = "There's nothing left."

// ActionHandler performs item pickups and uses against the inventory and the evidence lifecycle,
// then publishes an item used event.
type ActionHandler struct {
	configs   map[string]Config
	state     *casestate.State
	inventory *Inventory
	lifecycle *evidence.Lifecycle
	bus       *Bus
	sink      notify.Sink
	logger    *slog.Logger
}

// NewActionHandler creates a handler. Item clues are linked to their items in the lifecycle.
func NewActionHandler(configs []Config, state *casestate.State, inventory *Inventory, lifecycle *evidence.Lifecycle, bus *Bus, sink notify.Sink, logger *slog.Logger) *ActionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = notify.Discard
	}
	byID := make(map[string]Config, len(configs))
	for _, c := range configs {
		byID[c.ID] = c
		if c.Clue != "" {
			lifecycle.Link(c.Clue, c.ID)
		}
	}
	return &ActionHandler{
		configs:   byID,
		state:     state,
		inventory: inventory,
		lifecycle: lifecycle,
		bus:       bus,
		sink:      sink,
		logger:    logger,
	}
}

// Config returns the configuration of an item.
func (h *ActionHandler) Config(itemID string) (Config, bool) {
	c, ok := h.configs[itemID]
	return c, ok
}

// Inventory exposes the inventory the handler manages.
func (h *ActionHandler) Inventory() *Inventory {
	return h.inventory
}

// PickUp puts an item in the inventory and records it as collected.
// Items whose clue is already empty cannot be picked up again.
func (h *ActionHandler) PickUp(itemID string) bool {
	cfg, ok := h.configs[itemID]
	if !ok {
		h.logger.Warn("Pick up of unknown item", "item_id", itemID)
		return false
	}

	var displayKey string
	if cfg.Clue != "" {
		if h.lifecycle.Track(cfg.Clue) == casestate.PhaseEmpty {
			h.logger.Debug("Item already used up", "item_id", itemID)
			return false
		}
		displayKey, _ = h.lifecycle.DisplayKey(cfg.Clue, evidence.SizeSmall)
	}

	h.inventory.AddItem(cfg.ID, cfg.DisplayName(), cfg.StartingQuantity(), displayKey)
	h.state.AddItem(cfg.ID)
	return true
}

// Use performs one use of a held item and publishes the result. It reports false when
// the item is not held or unknown; nothing is published in that case.
func (h *ActionHandler) Use(req UseRequest) (UseResult, bool) {
	if !h.inventory.Has(req.ItemID) {
		h.logger.Warn("Use of item not in inventory", "item_id", req.ItemID)
		return UseResult{}, false
	}
	cfg, ok := h.configs[req.ItemID]
	if !ok {
		h.logger.Warn("Use of item with no configuration", "item_id", req.ItemID)
		return UseResult{}, false
	}

	res := h.apply(cfg)

	if res.Message != "" {
		h.sink.Notify(res.Message)
	}
	if res.Consumed {
		res.Removed = h.consume(cfg)
		if res.Removed {
			h.sink.Notify(cfg.DisplayName() + " was used up.")
		}
	}

	h.logger.Debug("Item used",
		"item_id", cfg.ID,
		"new_status", res.NewStatus,
		"consumed", res.Consumed,
		"removed", res.Removed)

	h.bus.Publish(UsedEvent{
		ItemID:   cfg.ID,
		Position: req.Position,
		Config:   cfg,
		Result:   res,
		Target:   req.Target,
		Player:   req.Player,
	})
	return res, true
}

func (h *ActionHandler) apply(cfg Config) UseResult {
	if cfg.Clue == "" || !h.lifecycle.Degrades(cfg.Clue) {
		return UseResult{
			NewStatus: casestate.PhaseFixed,
			Message:   cfg.UseMessage,
			Consumed:  cfg.SingleUse,
		}
	}

	before := h.lifecycle.Phase(cfg.Clue)
	if before == casestate.PhaseEmpty {
		msg := cfg.DepletedMessage
		if msg == "" {
			msg = defaultDepletedMessage
		}
		return UseResult{NewStatus: before, Message: msg}
	}

	after := h.lifecycle.Degrade(cfg.Clue)
	return UseResult{
		NewStatus:  after,
		Message:    cfg.Messages[after],
		ArtChanged: after != before,
		Consumed:   after == casestate.PhaseEmpty,
	}
}

func (h *ActionHandler) consume(cfg Config) bool {
	qty := h.inventory.Decrement(cfg.ID)
	if cfg.Clue != "" {
		return h.lifecycle.Reconcile(cfg.Clue)
	}
	if qty <= 0 {
		h.inventory.RemoveItem(cfg.ID)
		return true
	}
	return false
}

// Reset empties the inventory. Used by the new game action.
func (h *ActionHandler) Reset() {
	h.inventory.Clear()
}
