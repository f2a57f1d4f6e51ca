package dialogue

import (
	"log/slog"

	"github.com/jwebster45206/case-engine/pkg/callbacks"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/conditions"
)

// GreetingNodeID is the conventional start node of a graph and the default start id.
const GreetingNodeID = "greeting"

// EngineKind tags which engine a controller is.
type EngineKind string

const (
	KindGraph  EngineKind = "graph"
	KindScript EngineKind = "script"
)

// Effect is a small state change applied when an option is selected.
type Effect struct {
	SetFlags []string       `json:"set_flags,omitempty" yaml:"setFlags,omitempty"`
	Counters map[string]int `json:"counters,omitempty" yaml:"counters,omitempty"`
}

// Option is one selectable reply on a node.
type Option struct {
	ID             string                `json:"id" yaml:"id"`
	Text           string                `json:"text" yaml:"text"`
	NextDialogueID string                `json:"next_dialogue_id,omitempty" yaml:"nextDialogueId,omitempty"`
	CallbackID     string                `json:"callback_id,omitempty" yaml:"callbackId,omitempty"`
	Condition      *conditions.Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Effect         *Effect               `json:"effect,omitempty" yaml:"effect,omitempty"`
}

// Node is one beat of a dialogue graph.
type Node struct {
	ID             string                `json:"id" yaml:"id"`
	Speaker        string                `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text           string                `json:"text" yaml:"text"`
	Options        []Option              `json:"options,omitempty" yaml:"options,omitempty"`
	NextDialogueID string                `json:"next_dialogue_id,omitempty" yaml:"nextDialogueId,omitempty"` // linear beat when there are no options
	Condition      *conditions.Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Entry          bool                  `json:"entry,omitempty" yaml:"entry,omitempty"` // preferred start node while Condition holds
}

// Input carries the discrete input edges seen this frame.
type Input struct {
	Confirm bool
	Exit    bool
	Up      bool
	Down    bool
}

// StartOptions configures StartDialogue.
type StartOptions struct {
	StartNodeID string
	Speaker     string
	Target      callbacks.Target
}

// EndOptions configures EndDialogue. The zero value persists script state.
type EndOptions struct {
	DiscardState bool
}

// View is what a front end renders for the active dialogue.
type View struct {
	Active   bool       `json:"active"`
	Kind     EngineKind `json:"kind,omitempty"`
	Source   string     `json:"source,omitempty"`
	Speaker  string     `json:"speaker,omitempty"`
	NodeID   string     `json:"node_id,omitempty"`
	Text     string     `json:"text,omitempty"`
	Options  []string   `json:"options,omitempty"`
	Selected int        `json:"selected"`
	// CanAdvance is true when confirm moves to another beat rather than ending.
	CanAdvance bool `json:"can_advance,omitempty"`
}

// Controller is the contract both dialogue engines satisfy.
type Controller interface {
	Kind() EngineKind
	// StartDialogue is a no-op returning false when a dialogue is already active
	// or no start position can be resolved.
	StartDialogue(sourceID string, opts StartOptions) bool
	IsDialogueActive() bool
	// Update advances the state machine on this frame's input edges.
	Update(in Input)
	// EndDialogue is a no-op when nothing is active.
	EndDialogue(opts EndOptions)
	// CurrentNPC returns the source id of the active dialogue, or "".
	CurrentNPC() string
	View() View
	// OnEnded registers a listener called once per ended dialogue with its source id.
	OnEnded(fn func(sourceID string))
}

// World is paused while a dialogue is active.
type World interface {
	Pause()
	Resume()
}

// Env is what the engines read and write.
type Env struct {
	State     *casestate.State
	Callbacks *callbacks.Dispatcher
	World     World
	Logger    *slog.Logger
}

// EndedEventName is the event name published when a dialogue with source ends.
func EndedEventName(sourceID string) string {
	return "dialogueEnded_" + sourceID
}

// session is the bookkeeping both engines share.
type session struct {
	env       Env
	logger    *slog.Logger
	evaluator *conditions.Evaluator

	active   bool
	source   string
	speaker  string
	target   callbacks.Target
	selected int
	onEnded  []func(string)
}

func newSession(env Env, kind EngineKind) session {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("engine", string(kind))
	if env.State == nil {
		env.State = casestate.New()
	}
	return session{
		env:       env,
		logger:    logger,
		evaluator: conditions.NewEvaluator(logger),
	}
}

func (s *session) begin(sourceID string, opts StartOptions) {
	s.active = true
	s.source = sourceID
	s.speaker = opts.Speaker
	if s.speaker == "" {
		s.speaker = sourceID
	}
	s.target = opts.Target
	s.selected = 0
	if s.env.World != nil {
		s.env.World.Pause()
	}
}

// finish clears the session before notifying so listeners may start a new dialogue.
func (s *session) finish() {
	source := s.source
	s.active = false
	s.source = ""
	s.speaker = ""
	s.target = callbacks.Target{}
	s.selected = 0
	if s.env.World != nil {
		s.env.World.Resume()
	}
	s.logger.Debug("Dialogue ended", "source", source)
	for _, fn := range s.onEnded {
		fn(source)
	}
}

// navigate moves the highlight, wrapping at both ends.
func (s *session) navigate(in Input, n int) {
	if n == 0 {
		s.selected = 0
		return
	}
	switch {
	case in.Up:
		s.selected = (s.selected - 1 + n) % n
	case in.Down:
		s.selected = (s.selected + 1) % n
	}
}

func (s *session) dispatch(callbackID string) {
	if callbackID == "" || s.env.Callbacks == nil {
		return
	}
	s.env.Callbacks.Dispatch(callbackID, callbacks.Context{Source: s.source, Target: s.target})
}

func (s *session) IsDialogueActive() bool {
	return s.active
}

func (s *session) CurrentNPC() string {
	return s.source
}

func (s *session) OnEnded(fn func(sourceID string)) {
	if fn != nil {
		s.onEnded = append(s.onEnded, fn)
	}
}
