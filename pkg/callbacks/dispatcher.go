package callbacks

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/evidence"
	"github.com/jwebster45206/case-engine/pkg/items"
	"github.com/jwebster45206/case-engine/pkg/notify"
)

// TargetKind discriminates what an interaction is about.
type TargetKind string

const (
	TargetNone   TargetKind = ""
	TargetNPC    TargetKind = "npc"
	TargetItem   TargetKind = "item"
	TargetBody   TargetKind = "body"
	TargetObject TargetKind = "object"
)

// Target is the entity the current dialogue or callback concerns.
type Target struct {
	Kind TargetKind `json:"kind,omitempty"`
	ID   string     `json:"id,omitempty"`
}

// Context is passed to every callback.
type Context struct {
	CallbackID string
	Source     string // dialogue source that triggered the callback, if any
	Target     Target
	Args       []string // positional arguments from scripted calls
}

// World is the slice of the surrounding simulation callbacks may touch.
type World interface {
	RemoveItemSprite(id string)
	ChangeScene(sceneID string)
}

// Services is what a callback may read and write. Rendering internals are not reachable from here.
type Services struct {
	State    *casestate.State
	Evidence *evidence.Lifecycle
	Items    *items.ActionHandler
	Notifier notify.Sink
	World    World
}

func (s *Services) notify(message string) {
	if s.Notifier != nil && message != "" {
		s.Notifier.Notify(message)
	}
}

// Func is a dispatchable side-effecting action.
type Func func(svc *Services, ctx Context)

// Dispatcher resolves callback ids to registered actions.
type Dispatcher struct {
	table  map[string]Func
	svc    *Services
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher bound to its services. A nil logger uses slog.Default().
func NewDispatcher(svc *Services, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		table:  make(map[string]Func),
		svc:    svc,
		logger: logger,
	}
}

// Register adds a callback. Ids must be unique.
func (d *Dispatcher) Register(id string, fn Func) error {
	if id == "" || fn == nil {
		return fmt.Errorf("callback id and function are required")
	}
	if _, exists := d.table[id]; exists {
		return fmt.Errorf("callback %q already registered", id)
	}
	d.table[id] = fn
	return nil
}

// RegisterPrefixed adds a family of callbacks under "prefix/name".
func (d *Dispatcher) RegisterPrefixed(prefix string, fns map[string]Func) error {
	for _, name := range slices.Sorted(maps.Keys(fns)) {
		if err := d.Register(prefix+"/"+name, fns[name]); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether a callback id is registered.
func (d *Dispatcher) Has(id string) bool {
	_, ok := d.table[id]
	return ok
}

// IDs returns the registered ids in lexical order.
func (d *Dispatcher) IDs() []string {
	return slices.Sorted(maps.Keys(d.table))
}

// Dispatch invokes a callback and reports whether one ran. Unknown ids log a warning and do nothing;
// a panicking callback is logged and swallowed so the surrounding dialogue keeps running.
func (d *Dispatcher) Dispatch(id string, ctx Context) (ran bool) {
	fn, ok := d.table[id]
	if !ok {
		d.logger.Warn("Unknown callback", "callback_id", id, "source", ctx.Source)
		return false
	}
	ctx.CallbackID = id

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Callback panicked", "callback_id", id, "panic", r)
			ran = false
		}
	}()

	d.logger.Debug("Dispatching callback",
		"callback_id", id,
		"source", ctx.Source,
		"target_kind", ctx.Target.Kind,
		"target_id", ctx.Target.ID)
	fn(d.svc, ctx)
	return true
}
