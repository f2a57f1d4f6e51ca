package reactions

import (
	"fmt"
	"time"
)

// Kind discriminates the Effect union.
type Kind string

const (
	KindBark     Kind = "bark"
	KindMood     Kind = "mood"
	KindFlag     Kind = "flag"
	KindUnlock   Kind = "unlock"
	KindAttack   Kind = "attack"
	KindGameOver Kind = "gameover"
	KindCounter  Kind = "counter"
	KindNotify   Kind = "notify"
)

// Mood labels.
const (
	MoodNeutral = "neutral"
	MoodAnnoyed = "annoyed"
	MoodAngry   = "angry"
	MoodShocked = "shocked"
)

// Effect is one instruction produced by a reaction pass. Which fields are meaningful depends on Kind:
//
//	bark:     NPC, Text
//	mood:     NPC, To, AddShock, AddAnger
//	flag:     ID
//	unlock:   ID
//	attack:   NPC
//	gameover: Text (the reason), Delay
//	counter:  ID, By
//	notify:   Text
type Effect struct {
	Kind     Kind          `json:"kind"`
	NPC      string        `json:"npc_id,omitempty"`
	ID       string        `json:"id,omitempty"`
	Text     string        `json:"text,omitempty"`
	To       string        `json:"to,omitempty"`
	AddShock int           `json:"add_shock,omitempty"`
	AddAnger int           `json:"add_anger,omitempty"`
	By       int           `json:"by,omitempty"`
	Delay    time.Duration `json:"delay,omitempty"` // gameover only; zero uses the engine default
}

// Bark makes a character say a line, shown as a notification.
func Bark(npcID, text string) Effect {
	return Effect{Kind: KindBark, NPC: npcID, Text: text}
}

// Mood relabels a character and adds to its shock and anger.
func Mood(npcID, to string, addShock, addAnger int) Effect {
	return Effect{Kind: KindMood, NPC: npcID, To: to, AddShock: addShock, AddAnger: addAnger}
}

// SetFlag sets a case flag to true.
func SetFlag(id string) Effect {
	return Effect{Kind: KindFlag, ID: id}
}

// Unlock opens an accusation or dialogue gate. Unlock ids are ordinary flags.
func Unlock(id string) Effect {
	return Effect{Kind: KindUnlock, ID: id}
}

// Attack has a character hit the player.
func Attack(attackerID string) Effect {
	return Effect{Kind: KindAttack, NPC: attackerID}
}

// GameOver ends the play-through after a delay.
func GameOver(reason string) Effect {
	return Effect{Kind: KindGameOver, Text: reason}
}

// Counter adds by to a case counter.
func Counter(id string, by int) Effect {
	return Effect{Kind: KindCounter, ID: id, By: by}
}

// Notify posts a plain notification.
func Notify(text string) Effect {
	return Effect{Kind: KindNotify, Text: text}
}

func (e Effect) String() string {
	switch e.Kind {
	case KindBark:
		return fmt.Sprintf("bark{%s: %q}", e.NPC, e.Text)
	case KindMood:
		return fmt.Sprintf("mood{%s to=%s shock=%+d anger=%+d}", e.NPC, e.To, e.AddShock, e.AddAnger)
	case KindFlag, KindUnlock:
		return fmt.Sprintf("%s{%s}", e.Kind, e.ID)
	case KindAttack:
		return fmt.Sprintf("attack{%s}", e.NPC)
	case KindCounter:
		return fmt.Sprintf("counter{%s %+d}", e.ID, e.By)
	default:
		return fmt.Sprintf("%s{%q}", e.Kind, e.Text)
	}
}
