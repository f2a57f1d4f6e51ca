package conditions

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Kind discriminates the Condition union.
type Kind string

const (
	KindFlag           Kind = "flag"
	KindCounterAtLeast Kind = "counterAtLeast"
	KindAll            Kind = "all"
	KindAny            Kind = "any"
)

// Condition is a boolean predicate over case state.
// Which fields are meaningful depends on Type:
//
//	flag:           ID, Value (defaults to true)
//	counterAtLeast: ID, Count
//	all, any:       Of
type Condition struct {
	Type  Kind        `json:"type" yaml:"type"`
	ID    string      `json:"id,omitempty" yaml:"id,omitempty"`
	Value *bool       `json:"value,omitempty" yaml:"value,omitempty"`
	Count int         `json:"count,omitempty" yaml:"count,omitempty"`
	Of    []Condition `json:"of,omitempty" yaml:"of,omitempty"`
}

// StateView provides the minimal interface needed to evaluate conditions.
// This avoids import cycles with the casestate package.
type StateView interface {
	GetFlag(id string) bool
	GetCounter(id string) int
}

// Flag is true when the flag is set.
func Flag(id string) Condition {
	return Condition{Type: KindFlag, ID: id}
}

// FlagIs is true when the flag equals value. Unset flags read as false.
func FlagIs(id string, value bool) Condition {
	return Condition{Type: KindFlag, ID: id, Value: &value}
}

// CounterAtLeast is true when the counter is >= count.
func CounterAtLeast(id string, count int) Condition {
	return Condition{Type: KindCounterAtLeast, ID: id, Count: count}
}

// All is true when every child holds. No children means true.
func All(of ...Condition) Condition {
	return Condition{Type: KindAll, Of: of}
}

// Any is true when at least one child holds. No children means false.
func Any(of ...Condition) Condition {
	return Condition{Type: KindAny, Of: of}
}

func (c Condition) expected() bool {
	if c.Value == nil {
		return true
	}
	return *c.Value
}

// Evaluate checks a condition against state, left to right with short-circuiting.
// Unknown kinds evaluate to false.
func Evaluate(c Condition, v StateView) bool {
	return eval(c, v, nil)
}

// Holds evaluates an optional condition; a nil condition always holds.
func Holds(c *Condition, v StateView) bool {
	if c == nil {
		return true
	}
	return Evaluate(*c, v)
}

// EvaluateAll reports whether every condition holds. An empty list holds.
func EvaluateAll(cs []Condition, v StateView) bool {
	for _, c := range cs {
		if !Evaluate(c, v) {
			return false
		}
	}
	return true
}

func eval(c Condition, v StateView, onUnknown func(Kind)) bool {
	switch c.Type {
	case KindFlag:
		return v.GetFlag(c.ID) == c.expected()
	case KindCounterAtLeast:
		return v.GetCounter(c.ID) >= c.Count
	case KindAll:
		for _, child := range c.Of {
			if !eval(child, v, onUnknown) {
				return false
			}
		}
		return true
	case KindAny:
		for _, child := range c.Of {
			if eval(child, v, onUnknown) {
				return true
			}
		}
		return false
	default:
		if onUnknown != nil {
			onUnknown(c.Type)
		}
		return false
	}
}

// Evaluator is Evaluate with a warning logged for unknown condition kinds.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an evaluator. A nil logger uses slog.Default().
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger}
}

// Evaluate checks a condition against state.
func (e *Evaluator) Evaluate(c Condition, v StateView) bool {
	return eval(c, v, func(k Kind) {
		e.logger.Warn("Unknown condition kind, evaluating false", "kind", string(k))
	})
}

// Holds evaluates an optional condition; a nil condition always holds.
func (e *Evaluator) Holds(c *Condition, v StateView) bool {
	if c == nil {
		return true
	}
	return e.Evaluate(*c, v)
}

// Describe renders a condition as hint text, e.g. "usedCoke=true & phoneTextRead=true".
func Describe(c Condition) string {
	return describe(c, false)
}

func describe(c Condition, nested bool) string {
	switch c.Type {
	case KindFlag:
		return c.ID + "=" + strconv.FormatBool(c.expected())
	case KindCounterAtLeast:
		return c.ID + ">=" + strconv.Itoa(c.Count)
	case KindAll, KindAny:
		if len(c.Of) == 0 {
			if c.Type == KindAll {
				return "always"
			}
			return "never"
		}
		sep := " & "
		if c.Type == KindAny {
			sep = " | "
		}
		parts := make([]string, len(c.Of))
		for i, child := range c.Of {
			parts[i] = describe(child, true)
		}
		out := strings.Join(parts, sep)
		if nested && len(parts) > 1 {
			out = "(" + out + ")"
		}
		return out
	default:
		return "unknown(" + string(c.Type) + ")"
	}
}

// ErrInvalidCondition is wrapped by Validate for malformed conditions.
var ErrInvalidCondition = errors.New("invalid condition")

// Validate checks that a condition tree is well formed.
func Validate(c Condition) error {
	switch c.Type {
	case KindFlag:
		if c.ID == "" {
			return fmt.Errorf("%w: flag condition requires id", ErrInvalidCondition)
		}
	case KindCounterAtLeast:
		if c.ID == "" {
			return fmt.Errorf("%w: counterAtLeast condition requires id", ErrInvalidCondition)
		}
		if c.Count < 0 {
			return fmt.Errorf("%w: counterAtLeast %q has negative count %d", ErrInvalidCondition, c.ID, c.Count)
		}
	case KindAll, KindAny:
		for i, child := range c.Of {
			if err := Validate(child); err != nil {
				return fmt.Errorf("%s[%d]: %w", c.Type, i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCondition, c.Type)
	}
	return nil
}

// References returns the flag and counter ids a condition reads, in tree order.
func References(c Condition) (flags, counters []string) {
	var walk func(Condition)
	walk = func(c Condition) {
		switch c.Type {
		case KindFlag:
			flags = append(flags, c.ID)
		case KindCounterAtLeast:
			counters = append(counters, c.ID)
		case KindAll, KindAny:
			for _, child := range c.Of {
				walk(child)
			}
		}
	}
	walk(c)
	return flags, counters
}
