package actor

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/d20"
)

// PlayerSpec is the serializable specification for the detective the player controls
type PlayerSpec struct {
	ID              string         `json:"id" yaml:"id"`
	Name            string         `json:"name,omitempty" yaml:"name,omitempty"`
	HP              int            `json:"hp,omitempty" yaml:"hp,omitempty"` // Current HP
	MaxHP           int            `json:"max_hp,omitempty" yaml:"maxHP,omitempty"`
	AC              int            `json:"ac,omitempty" yaml:"ac,omitempty"`
	Attributes      map[string]int `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	CombatModifiers map[string]int `json:"combat_modifiers,omitempty" yaml:"combatModifiers,omitempty"`
	Start           Point          `json:"start" yaml:"start"`
}

// Player is the runtime representation of the player character
type Player struct {
	Spec     *PlayerSpec
	Actor    *d20.Actor // Built at runtime from PlayerSpec
	Position Point
}

// NewPlayerFromSpec creates a Player and builds its d20.Actor
func NewPlayerFromSpec(spec *PlayerSpec) (*Player, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.MaxHP <= 0 {
		return nil, fmt.Errorf("player %s: max_hp must be positive", spec.ID)
	}

	actor, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(spec.Attributes).
		WithCombatModifiers(spec.CombatModifiers).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	// Set current HP if different from max
	if spec.HP != spec.MaxHP && spec.HP > 0 {
		if err := actor.SetHP(spec.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}

	return &Player{
		Spec:     spec,
		Actor:    actor,
		Position: spec.Start,
	}, nil
}

// TakeHit applies damage and returns the HP left. HP never drops below zero.
func (p *Player) TakeHit(damage int) (int, error) {
	if damage < 0 {
		damage = 0
	}
	hp := max(p.Actor.HP()-damage, 0)
	if err := p.Actor.SetHP(hp); err != nil {
		return p.Actor.HP(), fmt.Errorf("failed to apply damage: %w", err)
	}
	return hp, nil
}

// IsDown reports whether the player has no HP left.
func (p *Player) IsDown() bool {
	return p.Actor.HP() <= 0
}

// Restore resets HP and position to the spec values. Used by the new game action.
func (p *Player) Restore() error {
	hp := p.Spec.MaxHP
	if p.Spec.HP > 0 {
		hp = p.Spec.HP
	}
	if err := p.Actor.SetHP(hp); err != nil {
		return fmt.Errorf("failed to restore HP: %w", err)
	}
	p.Position = p.Spec.Start
	return nil
}

// MarshalJSON reads current runtime state from the Actor
func (p *Player) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	if p.Actor == nil {
		return json.Marshal(p.Spec)
	}

	type playerResponse struct {
		ID              string         `json:"id"`
		Name            string         `json:"name"`
		HP              int            `json:"hp"`
		MaxHP           int            `json:"max_hp"`
		AC              int            `json:"ac"`
		CombatModifiers map[string]int `json:"combat_modifiers,omitempty"`
		Position        Point          `json:"position"`
	}

	resp := playerResponse{
		ID:       p.Spec.ID,
		Name:     p.Spec.Name,
		HP:       p.Actor.HP(),
		MaxHP:    p.Actor.MaxHP(),
		AC:       p.Actor.AC(),
		Position: p.Position,
	}
	if mods := p.Actor.GetCombatModifiers(); len(mods) > 0 {
		resp.CombatModifiers = make(map[string]int, len(mods))
		for _, mod := range mods {
			resp.CombatModifiers[mod.Reason] = mod.Value
		}
	}
	return json.Marshal(resp)
}
