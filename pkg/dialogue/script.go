package dialogue

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jwebster45206/case-engine/pkg/callbacks"
	"github.com/jwebster45206/case-engine/pkg/narrative"
)

// Reputation counters adjusted from scripts.
const (
	ReputationCops      = "reputation_cops"
	ReputationCivilians = "reputation_civilians"
	ReputationCriminals = "reputation_criminals"
)

// SkipTutorialCallback is run by the tutorial_skip_callback external.
const SkipTutorialCallback = callbacks.TutorialPrefix + "/skip_tutorial"

// placeholderText is shown when the story offers choices without new text.
const placeholderText = "..."

// ProgramSource resolves the compiled program for a dialogue source.
type ProgramSource interface {
	Program(sourceID string) (*narrative.Program, bool)
}

// ScriptConfig configures a ScriptEngine.
type ScriptConfig struct {
	Programs ProgramSource
	// Aliases maps an object source to the knot that holds its dialogue.
	Aliases map[string]string
	// Sync values are written into declared story variables before each session.
	Sync map[string]func() any
	// Externals are bound in addition to the built-in functions and may replace them.
	Externals map[string]narrative.ExternalFunc
}

// ScriptEngine runs compiled narrative programs behind the Controller contract.
type ScriptEngine struct {
	session
	cfg     ScriptConfig
	saved   map[string][]byte
	story   *narrative.Story
	text    string
	choices []narrative.Choice
}

// NewScriptEngine creates a script engine.
func NewScriptEngine(cfg ScriptConfig, env Env) *ScriptEngine {
	return &ScriptEngine{
		session: newSession(env, KindScript),
		cfg:     cfg,
		saved:   make(map[string][]byte),
	}
}

func (e *ScriptEngine) Kind() EngineKind {
	return KindScript
}

// Has reports whether a program exists for a source.
func (e *ScriptEngine) Has(sourceID string) bool {
	if e.cfg.Programs == nil {
		return false
	}
	_, ok := e.cfg.Programs.Program(sourceID)
	return ok
}

// StartDialogue loads the source's program, restores its saved state, syncs variables and
// jumps to the first start path that exists.
func (e *ScriptEngine) StartDialogue(sourceID string, opts StartOptions) bool {
	if e.active {
		return false
	}
	if e.cfg.Programs == nil {
		e.logger.Warn("No program source configured", "source", sourceID)
		return false
	}
	prog, ok := e.cfg.Programs.Program(sourceID)
	if !ok {
		e.logger.Warn("No story program for source", "source", sourceID)
		return false
	}

	story := narrative.NewStory(prog)
	if data, ok := e.saved[sourceID]; ok {
		if err := story.LoadState(data); err != nil {
			e.logger.Warn("Discarding unreadable story state", "source", sourceID, "error", err)
			delete(e.saved, sourceID)
			story.ResetState()
		}
	}
	e.bind(story)
	e.sync(story)

	path, ok := e.startPath(prog, sourceID, opts.StartNodeID)
	if !ok {
		e.logger.Warn("No valid story path", "source", sourceID, "start_node", opts.StartNodeID)
		return false
	}
	if !e.guard("choose path", story, func() error { return story.ChoosePathString(path) }) {
		return false
	}

	e.begin(sourceID, opts)
	e.story = story
	e.logger.Debug("Story dialogue started", "source", sourceID, "path", path)
	e.pump()
	return true
}

// startPath tries, in order: the object alias knot, the explicit id, the id under the source knot,
// "<source>_entry" and the source knot. "<source>.greeting" is only tried for the default start.
func (e *ScriptEngine) startPath(prog *narrative.Program, sourceID, startNodeID string) (string, bool) {
	var candidates []string
	if alias, ok := e.cfg.Aliases[sourceID]; ok && alias != sourceID {
		candidates = append(candidates, alias)
	}
	explicit := startNodeID != "" && startNodeID != GreetingNodeID
	if explicit {
		candidates = append(candidates, startNodeID, sourceID+"."+startNodeID)
	}
	candidates = append(candidates, sourceID+"_entry", sourceID)
	if !explicit {
		candidates = append(candidates, sourceID+"."+GreetingNodeID)
	}

	for _, path := range candidates {
		if prog.HasPath(path) {
			return path, true
		}
	}
	return "", false
}

func (e *ScriptEngine) bind(story *narrative.Story) {
	story.BindExternalFunction("handleCallback", func(args []any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("handleCallback needs a callback id")
		}
		id, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("handleCallback id must be a string, got %T", args[0])
		}
		e.dispatch(id)
		return nil, nil
	})
	story.BindExternalFunction("tutorial_skip_callback", func([]any) (any, error) {
		e.dispatch(SkipTutorialCallback)
		return nil, nil
	})
	story.BindExternalFunction("increaseCopReputation", e.reputation(ReputationCops, 1))
	story.BindExternalFunction("decreaseCopReputation", e.reputation(ReputationCops, -1))
	story.BindExternalFunction("increaseNPCReputation", e.reputation(ReputationCivilians, 1))
	story.BindExternalFunction("decreaseNPCReputation", e.reputation(ReputationCivilians, -1))

	for name, fn := range e.cfg.Externals {
		story.BindExternalFunction(name, fn)
	}
}

func (e *ScriptEngine) reputation(counter string, delta int) narrative.ExternalFunc {
	return func([]any) (any, error) {
		v := e.env.State.IncrementCounter(counter, delta)
		e.logger.Debug("Reputation changed", "counter", counter, "value", v, "source", e.source)
		return nil, nil
	}
}

// sync writes host values into variables the program declares. Undeclared names are skipped.
func (e *ScriptEngine) sync(story *narrative.Story) {
	for _, name := range slices.Sorted(maps.Keys(e.cfg.Sync)) {
		if !story.HasVariable(name) {
			continue
		}
		if err := story.SetVariable(name, e.cfg.Sync[name]()); err != nil {
			e.logger.Warn("Skipping story variable", "variable", name, "error", err)
		}
	}
}

// guard runs a story operation, turning returned errors and panics into false.
func (e *ScriptEngine) guard(op string, story *narrative.Story, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Story runtime panicked", "op", op, "path", story.CurrentPath(), "panic", r)
			ok = false
		}
	}()
	if err := fn(); err != nil {
		e.logger.Error("Story runtime error", "op", op, "path", story.CurrentPath(), "error", err)
		return false
	}
	return true
}

// pump continues the story until it offers choices or finishes. Output since the last choice point
// becomes the displayed text; a story with nothing left to show ends the dialogue.
func (e *ScriptEngine) pump() {
	story := e.story
	var text string
	ok := e.guard("continue", story, func() error {
		var err error
		text, err = story.ContinueMaximally()
		return err
	})
	if !e.active || e.story != story {
		// an external ended the dialogue while the story ran
		return
	}
	if !ok {
		e.EndDialogue(EndOptions{DiscardState: true})
		return
	}

	text = strings.TrimSpace(text)
	choices := story.CurrentChoices()
	if text == "" && len(choices) == 0 {
		e.EndDialogue(EndOptions{})
		return
	}
	if text == "" {
		text = placeholderText
	}
	e.text = text
	e.choices = choices
	e.selected = 0
}

// Update handles exit, navigation and confirm, in that order of precedence.
func (e *ScriptEngine) Update(in Input) {
	if !e.active || e.story == nil {
		return
	}
	switch {
	case in.Exit:
		e.EndDialogue(EndOptions{})
	case in.Confirm:
		if len(e.choices) == 0 {
			e.EndDialogue(EndOptions{})
			return
		}
		e.Select(e.selected)
	case in.Up || in.Down:
		e.navigate(in, len(e.choices))
	}
}

// Select forwards a choice to the story and pumps it.
func (e *ScriptEngine) Select(i int) {
	if !e.active || i < 0 || i >= len(e.choices) {
		return
	}
	story := e.story
	idx := e.choices[i].Index
	if !e.guard("choose", story, func() error { return story.ChooseChoiceIndex(idx) }) {
		e.EndDialogue(EndOptions{DiscardState: true})
		return
	}
	e.pump()
}

// EndDialogue saves the story state for the source unless told to discard it.
func (e *ScriptEngine) EndDialogue(opts EndOptions) {
	if !e.active {
		return
	}
	if !opts.DiscardState && e.story != nil {
		data, err := e.story.SaveState()
		if err != nil {
			e.logger.Warn("Failed to save story state", "source", e.source, "error", err)
		} else {
			e.saved[e.source] = data
		}
	}
	e.story = nil
	e.text = ""
	e.choices = nil
	e.finish()
}

// HasSavedState reports whether a source will resume rather than start fresh.
func (e *ScriptEngine) HasSavedState(sourceID string) bool {
	_, ok := e.saved[sourceID]
	return ok
}

// Reset forgets every saved story state.
func (e *ScriptEngine) Reset() {
	clear(e.saved)
}

func (e *ScriptEngine) View() View {
	if !e.active || e.story == nil {
		return View{Kind: KindScript}
	}
	v := View{
		Active:     true,
		Kind:       KindScript,
		Source:     e.source,
		Speaker:    e.speaker,
		NodeID:     "script_step",
		Text:       e.text,
		Selected:   e.selected,
		CanAdvance: len(e.choices) > 0,
	}
	if len(e.choices) > 0 {
		v.NodeID = "script_choice"
	}
	for _, c := range e.choices {
		v.Options = append(v.Options, c.Text)
	}
	return v
}
