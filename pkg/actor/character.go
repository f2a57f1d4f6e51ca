package actor

import (
	"maps"
	"math"
)

// DefaultSensoryRange is used for characters that do not set their own range.
const DefaultSensoryRange = 200

// Point is a world position in pixels.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the straight-line distance between two points.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Faction groups characters for reputation bookkeeping.
type Faction string

const (
	FactionCops      Faction = "cops"
	FactionCivilians Faction = "civilians"
	FactionCriminals Faction = "criminals"
)

// Character is a tracked non-player character in the scene.
type Character struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Faction      Faction `json:"faction,omitempty" yaml:"faction,omitempty"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	Position     Point   `json:"position" yaml:"position"`
	SensoryRange float64 `json:"sensory_range,omitempty" yaml:"sensoryRange,omitempty"` // case rules that require a witness use this
	Damage       int     `json:"damage,omitempty" yaml:"damage,omitempty"`              // HP lost by the player when this character lashes out

	// Reactions maps an item id to the line this character says when seeing it used.
	Reactions map[string]string `json:"reactions,omitempty" yaml:"reactions,omitempty"`
}

// NewCharacter creates a Character from a template with optional overrides.
// ID and Position always come from overrides; other non-zero override fields replace template values.
func NewCharacter(template *Character, overrides *Character) *Character {
	if template == nil || overrides == nil {
		return nil
	}

	c := *template
	c.ID = overrides.ID
	c.Position = overrides.Position

	if overrides.Name != "" {
		c.Name = overrides.Name
	}
	if overrides.Faction != "" {
		c.Faction = overrides.Faction
	}
	if overrides.Description != "" {
		c.Description = overrides.Description
	}
	if overrides.SensoryRange != 0 {
		c.SensoryRange = overrides.SensoryRange
	}
	if overrides.Damage != 0 {
		c.Damage = overrides.Damage
	}

	// Reactions merge, overrides win
	if len(template.Reactions) > 0 || len(overrides.Reactions) > 0 {
		c.Reactions = make(map[string]string, len(template.Reactions)+len(overrides.Reactions))
		maps.Copy(c.Reactions, template.Reactions)
		maps.Copy(c.Reactions, overrides.Reactions)
	}

	return &c
}

// Range returns the character's sensory range, falling back to DefaultSensoryRange.
func (c *Character) Range() float64 {
	if c.SensoryRange > 0 {
		return c.SensoryRange
	}
	return DefaultSensoryRange
}

// ReactionTo returns the line for an item, if the character has one.
func (c *Character) ReactionTo(itemID string) (string, bool) {
	line, ok := c.Reactions[itemID]
	return line, ok
}

// MoveTo places the character at p.
func (c *Character) MoveTo(p Point) {
	c.Position = p
}
