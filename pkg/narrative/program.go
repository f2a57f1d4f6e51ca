package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Op is an instruction opcode.
type Op string

const (
	OpText   Op = "text"
	OpChoice Op = "choice"
	OpDivert Op = "divert"
	OpSet    Op = "set"
	OpCall   Op = "call"
	OpEnd    Op = "end"
)

// End is the divert target that finishes the story.
const End = "END"

// Cond gates a text line or choice on a story variable.
// With neither Equals nor AtLeast set, the variable must be truthy.
type Cond struct {
	Var     string   `json:"var"`
	Equals  any      `json:"equals,omitempty"`
	AtLeast *float64 `json:"atLeast,omitempty"`
	Not     bool     `json:"not,omitempty"`
}

// Instruction is one step of a compiled block.
type Instruction struct {
	Op     Op     `json:"op"`
	Text   string `json:"text,omitempty"`
	To     string `json:"to,omitempty"`
	When   *Cond  `json:"when,omitempty"`
	Sticky bool   `json:"sticky,omitempty"`
	Var    string `json:"var,omitempty"`
	Value  any    `json:"value,omitempty"`
	Fn     string `json:"fn,omitempty"`
	Args   []any  `json:"args,omitempty"`
}

// Knot is a named section with optional named stitches.
type Knot struct {
	Body     []Instruction            `json:"body"`
	Stitches map[string][]Instruction `json:"stitches,omitempty"`
}

// Program is a compiled branching-narrative script.
type Program struct {
	Start     string          `json:"start,omitempty"`
	Variables map[string]any  `json:"variables,omitempty"`
	Knots     map[string]Knot `json:"knots"`
}

var ErrInvalidProgram = errors.New("invalid narrative program")

// Compile decodes and validates a program.
func Compile(data []byte) (*Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for k, v := range p.Variables {
		p.Variables[k] = normalize(v)
	}
	return &p, nil
}

// Validate checks opcodes, divert targets, and variable references.
func (p *Program) Validate() error {
	if len(p.Knots) == 0 {
		return fmt.Errorf("%w: no knots", ErrInvalidProgram)
	}
	if p.Start != "" && !p.HasPath(p.Start) {
		return fmt.Errorf("%w: start %q does not exist", ErrInvalidProgram, p.Start)
	}
	var errs []string
	for _, path := range p.Paths() {
		block, _ := p.block(path)
		for i, ins := range block {
			if err := p.validateInstruction(ins); err != nil {
				errs = append(errs, fmt.Sprintf("%s[%d]: %v", path, i, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w:\n%s", ErrInvalidProgram, strings.Join(errs, "\n"))
	}
	return nil
}

func (p *Program) validateInstruction(ins Instruction) error {
	if ins.When != nil {
		if _, ok := p.Variables[ins.When.Var]; !ok {
			return fmt.Errorf("condition on undeclared variable %q", ins.When.Var)
		}
	}
	switch ins.Op {
	case OpText:
		return nil
	case OpChoice, OpDivert:
		if ins.To == "" {
			return fmt.Errorf("%s without target", ins.Op)
		}
		if ins.To != End && !p.HasPath(ins.To) {
			return fmt.Errorf("%s to unknown path %q", ins.Op, ins.To)
		}
	case OpSet:
		if _, ok := p.Variables[ins.Var]; !ok {
			return fmt.Errorf("set of undeclared variable %q", ins.Var)
		}
	case OpCall:
		if ins.Fn == "" {
			return fmt.Errorf("call without function name")
		}
		if ins.Var != "" {
			if _, ok := p.Variables[ins.Var]; !ok {
				return fmt.Errorf("call result stored in undeclared variable %q", ins.Var)
			}
		}
	case OpEnd:
		return nil
	default:
		return fmt.Errorf("unknown op %q", ins.Op)
	}
	return nil
}

// HasPath reports whether "knot" or "knot.stitch" exists.
func (p *Program) HasPath(path string) bool {
	_, ok := p.block(path)
	return ok
}

// Paths lists every addressable path, sorted.
func (p *Program) Paths() []string {
	var out []string
	for name, k := range p.Knots {
		out = append(out, name)
		for stitch := range k.Stitches {
			out = append(out, name+"."+stitch)
		}
	}
	slices.Sort(out)
	return out
}

// DeclaredVariables lists variable names, sorted.
func (p *Program) DeclaredVariables() []string {
	return slices.Sorted(maps.Keys(p.Variables))
}

// Block returns the instructions at path, or nil when it does not exist.
func (p *Program) Block(path string) []Instruction {
	b, _ := p.block(path)
	return b
}

func (p *Program) block(path string) ([]Instruction, bool) {
	knotName, stitch, hasStitch := strings.Cut(path, ".")
	k, ok := p.Knots[knotName]
	if !ok {
		return nil, false
	}
	if !hasStitch {
		return k.Body, true
	}
	b, ok := k.Stitches[stitch]
	return b, ok
}

// normalize maps every numeric type to float64 so JSON-loaded and Go-set values compare equal.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return v != nil
	}
}

// equal compares scalar story values; anything else is never equal.
func equal(a, b any) bool {
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	default:
		return false
	}
}
