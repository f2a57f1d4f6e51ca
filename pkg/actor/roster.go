package actor

import (
	"fmt"
	"sort"
)

// Nearby is a character found within some radius, with its distance.
type Nearby struct {
	ID       string
	Distance float64
}

// Roster tracks the player and every character in the scene.
// It is the position source for proximity checks.
type Roster struct {
	player     *Player
	characters map[string]*Character
	order      []string
	starts     map[string]Point
}

// NewRoster creates a roster around the player.
func NewRoster(player *Player) *Roster {
	return &Roster{
		player:     player,
		characters: make(map[string]*Character),
		starts:     make(map[string]Point),
	}
}

// Add tracks a character. Ids must be unique.
func (r *Roster) Add(c *Character) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("character must have an id")
	}
	if _, exists := r.characters[c.ID]; exists {
		return fmt.Errorf("character %s already tracked", c.ID)
	}
	r.characters[c.ID] = c
	r.order = append(r.order, c.ID)
	r.starts[c.ID] = c.Position
	return nil
}

// Player returns the player.
func (r *Roster) Player() *Player {
	return r.player
}

// PlayerPosition returns the player's position.
func (r *Roster) PlayerPosition() Point {
	return r.player.Position
}

// MovePlayer places the player at p.
func (r *Roster) MovePlayer(p Point) {
	r.player.Position = p
}

// Character returns a tracked character.
func (r *Roster) Character(id string) (*Character, bool) {
	c, ok := r.characters[id]
	return c, ok
}

// Position returns the position of a tracked character.
func (r *Roster) Position(id string) (Point, bool) {
	c, ok := r.characters[id]
	if !ok {
		return Point{}, false
	}
	return c.Position, true
}

// IDs returns tracked character ids in the order they were added.
func (r *Roster) IDs() []string {
	return append([]string(nil), r.order...)
}

// Within returns every character within radius of center, closest first.
// Ties keep roster order.
func (r *Roster) Within(center Point, radius float64) []Nearby {
	var out []Nearby
	for _, id := range r.order {
		d := r.characters[id].Position.Distance(center)
		if d <= radius {
			out = append(out, Nearby{ID: id, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// Reset returns every character to its starting position and restores the player.
func (r *Roster) Reset() error {
	for id, p := range r.starts {
		r.characters[id].Position = p
	}
	return r.player.Restore()
}
