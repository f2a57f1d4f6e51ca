package session

import (
	"github.com/jwebster45206/case-engine/pkg/actor"
	"github.com/jwebster45206/case-engine/pkg/cases"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/dialogue"
	"github.com/jwebster45206/case-engine/pkg/evidence"
	"github.com/jwebster45206/case-engine/pkg/items"
	"github.com/jwebster45206/case-engine/pkg/notify"
)

// Placed is a character with where it stands.
type Placed struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Position actor.Point `json:"position"`
	Distance float64     `json:"distance"` // from the player
}

// PlayerView is the player as it stands, detached from the live actor.
type PlayerView struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	HP       int         `json:"hp"`
	MaxHP    int         `json:"max_hp"`
	Position actor.Point `json:"position"`
}

// Suspect is a case suspect with what they can be accused of.
type Suspect struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Crimes  []cases.CrimeStatus `json:"crimes"`
	Summary string              `json:"summary,omitempty"`
}

// Report is a detached picture of the whole session.
type Report struct {
	SessionID     string             `json:"session_id"`
	SceneID       string             `json:"scene_id"`
	SceneTitle    string             `json:"scene_title,omitempty"`
	CaseID        string             `json:"case_id"`
	Outcome       Outcome            `json:"outcome"`
	Paused        bool               `json:"paused"`
	Player        PlayerView         `json:"player"`
	Characters    []Placed           `json:"characters"`
	State         casestate.Snapshot `json:"state"`
	Clues         []evidence.Clue    `json:"clues"`
	Inventory     []items.Item       `json:"inventory"`
	Files         []cases.FileStatus `json:"files"`
	Dialogue      dialogue.View      `json:"dialogue"`
	Notifications []notify.Entry     `json:"notifications"`
}

// Report captures the session as it stands.
func (s *Session) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Report{
		SessionID:     s.id,
		SceneID:       s.scene.ID,
		SceneTitle:    s.scene.Title,
		CaseID:        s.caseCfg.ID,
		Outcome:       s.outcome,
		Paused:        s.paused,
		Player:        s.player(),
		Characters:    s.characters(),
		State:         s.state.Snapshot(),
		Clues:         s.lifecycle.Registry().List(""),
		Inventory:     s.items.Inventory().Items(),
		Files:         s.resolver.Files(),
		Dialogue:      s.dialogue.View(),
		Notifications: s.feed.Active(),
	}
}

func (s *Session) player() PlayerView {
	p := s.roster.Player()
	return PlayerView{
		ID:       p.Spec.ID,
		Name:     p.Spec.Name,
		HP:       p.Actor.HP(),
		MaxHP:    p.Actor.MaxHP(),
		Position: p.Position,
	}
}

func (s *Session) characters() []Placed {
	player := s.roster.PlayerPosition()
	var out []Placed
	for _, id := range s.roster.IDs() {
		c, _ := s.roster.Character(id)
		out = append(out, Placed{
			ID:       id,
			Name:     c.Name,
			Position: c.Position,
			Distance: c.Position.Distance(player),
		})
	}
	return out
}

// Characters lists the characters of the scene with their distance from the player.
func (s *Session) Characters() []Placed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.characters()
}

// Suspects lists the case suspects and their crimes.
func (s *Session) Suspects() []Suspect {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Suspect, 0, len(s.caseCfg.Suspects))
	for _, id := range s.caseCfg.Suspects {
		out = append(out, Suspect{
			ID:      id,
			Name:    s.speakerName(id),
			Crimes:  s.resolver.Crimes(id),
			Summary: s.resolver.Summary(id),
		})
	}
	return out
}

// Dialogue returns the view of the active dialogue.
func (s *Session) Dialogue() dialogue.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue.View()
}

// Inventory returns the held items.
func (s *Session) Inventory() []items.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Inventory().Items()
}

// Notifications returns the notifications still showing.
func (s *Session) Notifications() []notify.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feed.Active()
}

// Outcome returns how the play-through stands.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Interactables lists what the player can try to talk to or inspect in the scene:
// characters first, then objects with dialogue whose sprite is still present.
func (s *Session) Interactables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.roster.IDs()
	for _, it := range s.scene.Items {
		if !s.removed[it.ID] && s.dialogue.Has(it.ID) {
			out = append(out, it.ID)
		}
	}
	return out
}

// State returns a snapshot of the case state.
func (s *Session) State() casestate.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}
