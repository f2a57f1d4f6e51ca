package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
)

// maxSteps bounds one Continue call so a divert loop without output fails instead of hanging.
const maxSteps = 10000

var (
	ErrUndeclaredVariable = errors.New("undeclared story variable")
	ErrUnboundFunction    = errors.New("unbound external function")
	ErrUnknownPath        = errors.New("unknown story path")
	ErrNoSuchChoice       = errors.New("no such choice")
	ErrRunaway            = errors.New("story ran too many steps without output")
)

// ExternalFunc is a host function callable from the story.
type ExternalFunc func(args []any) (any, error)

// Choice is an option currently offered by the story.
type Choice struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Target string `json:"target"`
	Key    string `json:"key"`
}

type pointer struct {
	Path  string `json:"path"`
	Index int    `json:"index"`
}

// Story runs a Program. It is not safe for concurrent use.
type Story struct {
	program   *Program
	vars      map[string]any
	ptr       pointer
	started   bool
	ended     bool
	choices   []Choice
	taken     map[string]bool
	externals map[string]ExternalFunc
}

// NewStory creates a story positioned at the program start, if it has one.
func NewStory(p *Program) *Story {
	s := &Story{
		program:   p,
		externals: make(map[string]ExternalFunc),
	}
	s.ResetState()
	return s
}

// Program returns the program being run.
func (s *Story) Program() *Program {
	return s.program
}

// ResetState restores variable defaults and moves to the start.
func (s *Story) ResetState() {
	s.vars = maps.Clone(s.program.Variables)
	if s.vars == nil {
		s.vars = make(map[string]any)
	}
	s.taken = make(map[string]bool)
	s.choices = nil
	s.ended = false
	s.started = s.program.Start != ""
	s.ptr = pointer{Path: s.program.Start}
}

// BindExternalFunction makes a host function callable from call instructions.
func (s *Story) BindExternalFunction(name string, fn ExternalFunc) {
	s.externals[name] = fn
}

// CanContinue reports whether Continue would make progress.
func (s *Story) CanContinue() bool {
	return s.started && !s.ended && len(s.choices) == 0
}

// Ended reports whether the story reached its end.
func (s *Story) Ended() bool {
	return s.ended
}

// CurrentPath returns the path of the block being run.
func (s *Story) CurrentPath() string {
	return s.ptr.Path
}

// CurrentChoices returns the choices on offer.
func (s *Story) CurrentChoices() []Choice {
	return append([]Choice(nil), s.choices...)
}

// Continue runs until one line of text is produced, a choice point is reached, or the story ends.
// The returned line is empty in the latter two cases.
func (s *Story) Continue() (string, error) {
	if !s.CanContinue() {
		return "", nil
	}
	for range maxSteps {
		block, ok := s.program.block(s.ptr.Path)
		if !ok {
			s.ended = true
			return "", fmt.Errorf("%w: %q", ErrUnknownPath, s.ptr.Path)
		}
		if s.ptr.Index >= len(block) {
			// falling off the end of a block finishes the story
			s.ended = true
			return "", nil
		}

		ins := block[s.ptr.Index]
		switch ins.Op {
		case OpText:
			s.ptr.Index++
			if s.check(ins.When) {
				return ins.Text, nil
			}
		case OpChoice:
			s.collectChoices(block)
			if len(s.choices) > 0 {
				return "", nil
			}
		case OpDivert:
			if !s.check(ins.When) {
				s.ptr.Index++
				continue
			}
			if err := s.jump(ins.To); err != nil {
				return "", err
			}
			if s.ended {
				return "", nil
			}
		case OpSet:
			s.ptr.Index++
			if err := s.SetVariable(ins.Var, ins.Value); err != nil {
				return "", err
			}
		case OpCall:
			s.ptr.Index++
			if err := s.call(ins); err != nil {
				return "", err
			}
		case OpEnd:
			s.ended = true
			return "", nil
		default:
			return "", fmt.Errorf("unknown op %q at %s[%d]", ins.Op, s.ptr.Path, s.ptr.Index)
		}
	}
	return "", ErrRunaway
}

// ContinueMaximally runs Continue until the story stops, joining the produced lines.
func (s *Story) ContinueMaximally() (string, error) {
	var lines []string
	for s.CanContinue() {
		line, err := s.Continue()
		if err != nil {
			return strings.Join(lines, "\n"), err
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// collectChoices gathers the run of consecutive choice instructions at the pointer and
// moves the pointer past them.
func (s *Story) collectChoices(block []Instruction) {
	s.choices = nil
	for s.ptr.Index < len(block) && block[s.ptr.Index].Op == OpChoice {
		ins := block[s.ptr.Index]
		key := fmt.Sprintf("%s#%d", s.ptr.Path, s.ptr.Index)
		s.ptr.Index++
		if !s.check(ins.When) {
			continue
		}
		if !ins.Sticky && s.taken[key] {
			continue
		}
		s.choices = append(s.choices, Choice{
			Index:  len(s.choices),
			Text:   ins.Text,
			Target: ins.To,
			Key:    key,
		})
	}
}

// ChooseChoiceIndex takes one of the offered choices.
func (s *Story) ChooseChoiceIndex(i int) error {
	if i < 0 || i >= len(s.choices) {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchChoice, i, len(s.choices))
	}
	c := s.choices[i]
	s.taken[c.Key] = true
	s.choices = nil
	return s.jump(c.Target)
}

// ChoosePathString moves the story to a path, discarding pending choices.
func (s *Story) ChoosePathString(path string) error {
	s.choices = nil
	s.ended = false
	return s.jump(path)
}

func (s *Story) jump(path string) error {
	if path == End {
		s.ended = true
		return nil
	}
	if !s.program.HasPath(path) {
		return fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	s.ptr = pointer{Path: path}
	s.started = true
	return nil
}

func (s *Story) call(ins Instruction) error {
	fn, ok := s.externals[ins.Fn]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnboundFunction, ins.Fn)
	}
	out, err := fn(ins.Args)
	if err != nil {
		return fmt.Errorf("external %s: %w", ins.Fn, err)
	}
	if ins.Var != "" {
		return s.SetVariable(ins.Var, out)
	}
	return nil
}

func (s *Story) check(c *Cond) bool {
	if c == nil {
		return true
	}
	v := s.vars[c.Var]
	var ok bool
	switch {
	case c.AtLeast != nil:
		n, isNum := v.(float64)
		ok = isNum && n >= *c.AtLeast
	case c.Equals != nil:
		ok = equal(normalize(v), normalize(c.Equals))
	default:
		ok = truthy(v)
	}
	if c.Not {
		return !ok
	}
	return ok
}

// HasVariable reports whether the program declares a variable.
func (s *Story) HasVariable(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// GetVariable returns a variable's value.
func (s *Story) GetVariable(name string) (any, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// SetVariable sets a declared variable. Numbers are stored as float64.
func (s *Story) SetVariable(name string, value any) error {
	if _, ok := s.vars[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredVariable, name)
	}
	s.vars[name] = normalize(value)
	return nil
}

type savedState struct {
	Vars    map[string]any  `json:"vars"`
	Pointer pointer         `json:"pointer"`
	Started bool            `json:"started"`
	Ended   bool            `json:"ended"`
	Choices []Choice        `json:"choices,omitempty"`
	Taken   map[string]bool `json:"taken,omitempty"`
}

// SaveState serializes the story position and variables.
func (s *Story) SaveState() ([]byte, error) {
	return json.Marshal(savedState{
		Vars:    s.vars,
		Pointer: s.ptr,
		Started: s.started,
		Ended:   s.ended,
		Choices: s.choices,
		Taken:   s.taken,
	})
}

// LoadState restores a state produced by SaveState. Variables the program no longer declares are dropped.
func (s *Story) LoadState(data []byte) error {
	var st savedState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to decode story state: %w", err)
	}
	if st.Started && !st.Ended && !s.program.HasPath(st.Pointer.Path) {
		return fmt.Errorf("%w: saved pointer %q", ErrUnknownPath, st.Pointer.Path)
	}

	vars := maps.Clone(s.program.Variables)
	if vars == nil {
		vars = make(map[string]any)
	}
	for k, v := range st.Vars {
		if _, ok := vars[k]; ok {
			vars[k] = normalize(v)
		}
	}
	s.vars = vars
	s.ptr = st.Pointer
	s.started = st.Started
	s.ended = st.Ended
	s.choices = st.Choices
	s.taken = st.Taken
	if s.taken == nil {
		s.taken = make(map[string]bool)
	}
	return nil
}
