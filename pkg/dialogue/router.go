package dialogue

import "log/slog"

// Engine is a Controller that can tell whether it has content for a source.
type Engine interface {
	Controller
	Has(sourceID string) bool
}

// Router picks the engine for a source when a dialogue starts, preferring engines in the order given.
// Call sites only ever see the Controller contract.
type Router struct {
	engines []Engine
	current Engine
	logger  *slog.Logger
	onEnded []func(string)
}

// NewRouter creates a router over engines. A nil logger uses slog.Default().
func NewRouter(logger *slog.Logger, engines ...Engine) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{engines: engines, logger: logger}
	for _, e := range engines {
		e.OnEnded(r.ended)
	}
	return r
}

func (r *Router) ended(sourceID string) {
	for _, fn := range r.onEnded {
		fn(sourceID)
	}
}

// Kind returns the kind of the engine running the active dialogue, or "".
func (r *Router) Kind() EngineKind {
	if r.current == nil || !r.current.IsDialogueActive() {
		return ""
	}
	return r.current.Kind()
}

// Has reports whether any engine has content for a source.
func (r *Router) Has(sourceID string) bool {
	return r.engineFor(sourceID) != nil
}

func (r *Router) engineFor(sourceID string) Engine {
	for _, e := range r.engines {
		if e.Has(sourceID) {
			return e
		}
	}
	return nil
}

func (r *Router) StartDialogue(sourceID string, opts StartOptions) bool {
	if r.IsDialogueActive() {
		return false
	}
	e := r.engineFor(sourceID)
	if e == nil {
		r.logger.Warn("No dialogue content for source", "source", sourceID)
		return false
	}
	r.current = e
	return e.StartDialogue(sourceID, opts)
}

func (r *Router) IsDialogueActive() bool {
	return r.current != nil && r.current.IsDialogueActive()
}

func (r *Router) Update(in Input) {
	if r.current != nil {
		r.current.Update(in)
	}
}

func (r *Router) EndDialogue(opts EndOptions) {
	if r.current != nil {
		r.current.EndDialogue(opts)
	}
}

func (r *Router) CurrentNPC() string {
	if r.current == nil {
		return ""
	}
	return r.current.CurrentNPC()
}

func (r *Router) View() View {
	if r.current == nil {
		return View{}
	}
	return r.current.View()
}

func (r *Router) OnEnded(fn func(sourceID string)) {
	if fn != nil {
		r.onEnded = append(r.onEnded, fn)
	}
}
