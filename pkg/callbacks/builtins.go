package callbacks

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/case-engine/pkg/evidence"
)

// DiscoverClue discovers a clue and notifies once, the first time only.
// With no message the notification is built from the clue title.
func DiscoverClue(clueID, message string) Func {
	return func(svc *Services, ctx Context) {
		if svc.Evidence == nil {
			return
		}
		if svc.Evidence.Discover(clueID) != evidence.Discovered {
			return
		}
		msg := message
		if msg == "" {
			title := clueID
			if c, ok := svc.Evidence.Registry().Get(clueID); ok && c.Title != "" {
				title = c.Title
			}
			msg = "New clue: " + title
		}
		svc.notify(msg)
	}
}

// PickUpItem moves an item into the inventory and removes its sprite from the world.
// The sprite removed is the interaction target when there is one, otherwise the item id.
func PickUpItem(itemID string) Func {
	return func(svc *Services, ctx Context) {
		if svc.Items == nil || !svc.Items.PickUp(itemID) {
			return
		}
		if svc.World != nil {
			sprite := itemID
			if ctx.Target.ID != "" {
				sprite = ctx.Target.ID
			}
			svc.World.RemoveItemSprite(sprite)
		}
		name := itemID
		if cfg, ok := svc.Items.Config(itemID); ok {
			name = cfg.DisplayName()
		}
		svc.notify("Picked up " + name + ".")
	}
}

// MarkFlag sets a flag and notifies only if the flag was not already set.
func MarkFlag(flag, message string) Func {
	return func(svc *Services, ctx Context) {
		if svc.State.GetFlag(flag) {
			return
		}
		svc.State.SetFlag(flag, true)
		svc.notify(message)
	}
}

// IncrementCounter adds by to a counter.
func IncrementCounter(counter string, by int) Func {
	return func(svc *Services, ctx Context) {
		svc.State.IncrementCounter(counter, by)
	}
}

// MarkEvent records a one-shot dialogue event as addressed.
func MarkEvent(name string) Func {
	return func(svc *Services, ctx Context) {
		svc.State.MarkEventAddressed(name)
	}
}

// Notify posts a fixed message.
func Notify(message string) Func {
	return func(svc *Services, ctx Context) {
		svc.notify(message)
	}
}

// ChangeScene asks the world to move to another scene.
func ChangeScene(sceneID string) Func {
	return func(svc *Services, ctx Context) {
		if svc.World != nil {
			svc.World.ChangeScene(sceneID)
		}
	}
}

// Script runs steps in order, for larger multi-step effects.
func Script(steps ...Func) Func {
	return func(svc *Services, ctx Context) {
		for _, step := range steps {
			step(svc, ctx)
		}
	}
}

// Definition is an authored callback. Type selects the family; the other fields are its arguments.
type Definition struct {
	Type    string       `json:"type" yaml:"type"`
	Clue    string       `json:"clue,omitempty" yaml:"clue,omitempty"`
	Item    string       `json:"item,omitempty" yaml:"item,omitempty"`
	Flag    string       `json:"flag,omitempty" yaml:"flag,omitempty"`
	Counter string       `json:"counter,omitempty" yaml:"counter,omitempty"`
	By      int          `json:"by,omitempty" yaml:"by,omitempty"`
	Event   string       `json:"event,omitempty" yaml:"event,omitempty"`
	Scene   string       `json:"scene,omitempty" yaml:"scene,omitempty"`
	Message string       `json:"message,omitempty" yaml:"message,omitempty"`
	Steps   []Definition `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Build turns a definition into a callback.
func Build(def Definition) (Func, error) {
	switch def.Type {
	case "discoverClue":
		if def.Clue == "" {
			return nil, fmt.Errorf("discoverClue requires clue")
		}
		return DiscoverClue(def.Clue, def.Message), nil
	case "pickUpItem":
		if def.Item == "" {
			return nil, fmt.Errorf("pickUpItem requires item")
		}
		return PickUpItem(def.Item), nil
	case "markFlag":
		if def.Flag == "" {
			return nil, fmt.Errorf("markFlag requires flag")
		}
		return MarkFlag(def.Flag, def.Message), nil
	case "incrementCounter":
		if def.Counter == "" {
			return nil, fmt.Errorf("incrementCounter requires counter")
		}
		by := def.By
		if by == 0 {
			by = 1
		}
		return IncrementCounter(def.Counter, by), nil
	case "markEvent":
		if def.Event == "" {
			return nil, fmt.Errorf("markEvent requires event")
		}
		return MarkEvent(def.Event), nil
	case "notify":
		return Notify(def.Message), nil
	case "changeScene":
		if def.Scene == "" {
			return nil, fmt.Errorf("changeScene requires scene")
		}
		return ChangeScene(def.Scene), nil
	case "script":
		if len(def.Steps) == 0 {
			return nil, fmt.Errorf("script requires steps")
		}
		steps := make([]Func, len(def.Steps))
		for i, s := range def.Steps {
			fn, err := Build(s)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			steps[i] = fn
		}
		return Script(steps...), nil
	default:
		return nil, fmt.Errorf("unknown callback type %q", def.Type)
	}
}

// RegisterDefinitions builds and registers authored callbacks, in id order.
func (d *Dispatcher) RegisterDefinitions(defs map[string]Definition) error {
	for _, id := range slices.Sorted(maps.Keys(defs)) {
		fn, err := Build(defs[id])
		if err != nil {
			return fmt.Errorf("callback %s: %w", id, err)
		}
		if err := d.Register(id, fn); err != nil {
			return err
		}
	}
	return nil
}
