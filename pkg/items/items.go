package items

import (
	"github.com/jwebster45206/case-engine/pkg/actor"
	"github.com/jwebster45206/case-engine/pkg/casestate"
)

// Config is the authored definition of a usable item.
type Config struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Clue        string `json:"clue,omitempty" yaml:"clue,omitempty"` // evidence clue this item represents
	Quantity    int    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	SingleUse   bool   `json:"single_use,omitempty" yaml:"singleUse,omitempty"` // consumed on first use when the clue does not degrade

	// Messages is keyed by the phase the clue is in after a use.
	Messages        map[casestate.Phase]string `json:"messages,omitempty" yaml:"messages,omitempty"`
	DepletedMessage string                     `json:"depleted_message,omitempty" yaml:"depletedMessage,omitempty"`
	UseMessage      string                     `json:"use_message,omitempty" yaml:"useMessage,omitempty"`
}

// StartingQuantity is the quantity granted on pickup.
func (c Config) StartingQuantity() int {
	if c.Quantity > 0 {
		return c.Quantity
	}
	return 1
}

// DisplayName falls back to the id when no name is authored.
func (c Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// UseResult is what a single use of an item did.
type UseResult struct {
	Consumed   bool            `json:"consumed"`
	NewStatus  casestate.Phase `json:"new_status"`
	Message    string          `json:"message,omitempty"`
	ArtChanged bool            `json:"art_changed,omitempty"`
	Removed    bool            `json:"removed,omitempty"`
}

// UsedEvent is published once per use of an item.
type UsedEvent struct {
	ItemID   string        `json:"item_id"`
	Position actor.Point   `json:"position"`
	Config   Config        `json:"config"`
	Result   UseResult     `json:"result"`
	Target   string        `json:"target,omitempty"`
	Player   *actor.Player `json:"-"`
}

// UseRequest describes one "use item" action.
type UseRequest struct {
	ItemID   string
	Target   string
	Position actor.Point
	Player   *actor.Player
}
