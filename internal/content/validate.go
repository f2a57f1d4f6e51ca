package content

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/case-engine/pkg/callbacks"
	"github.com/jwebster45206/case-engine/pkg/conditions"
	"github.com/jwebster45206/case-engine/pkg/dialogue"
	"github.com/jwebster45206/case-engine/pkg/narrative"
)

var validIDRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// BuiltinCallbacks are the callback ids every session registers in code.
func BuiltinCallbacks() []string {
	var ids []string
	for name := range callbacks.TutorialScripts() {
		ids = append(ids, callbacks.TutorialPrefix+"/"+name)
	}
	slices.Sort(ids)
	return ids
}

// Validator collects every content problem instead of stopping at the first.
type Validator struct {
	lib    *Library
	errors []string
}

func NewValidator(lib *Library) *Validator {
	return &Validator{lib: lib}
}

// Validate checks every case and scene in the library.
func (v *Validator) Validate() error {
	v.errors = nil
	for _, id := range v.lib.CaseIDs() {
		v.validateIDFormat("case ID", id)
		if err := v.lib.cases[id].Validate(); err != nil {
			for _, line := range strings.Split(err.Error(), "\n") {
				v.addError(fmt.Sprintf("case %s: %s", id, line))
			}
		}
	}
	for _, id := range v.lib.SceneIDs() {
		v.validateScene(v.lib.scenes[id])
	}
	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

// Errors returns the problems found by the last Validate.
func (v *Validator) Errors() []string {
	return slices.Clone(v.errors)
}

func (v *Validator) validateScene(s *Scene) {
	where := "scene " + s.ID
	v.validateIDFormat("scene ID", s.ID)

	characters := make(map[string]bool)
	for _, c := range s.Characters {
		v.validateIDFormat(where+" character ID", c.ID)
		if characters[c.ID] {
			v.addError(fmt.Sprintf("%s: duplicate character %q", where, c.ID))
		}
		characters[c.ID] = true
	}
	if s.Player.MaxHP <= 0 {
		v.addError(fmt.Sprintf("%s: player maxHP must be positive", where))
	}

	if c, ok := v.lib.cases[s.Case]; !ok {
		v.addError(fmt.Sprintf("%s: case %q does not exist", where, s.Case))
	} else {
		for _, suspect := range c.Suspects {
			if !characters[suspect] {
				v.addError(fmt.Sprintf("%s: suspect %q of case %s is not a character", where, suspect, c.ID))
			}
		}
	}

	clues := make(map[string]bool)
	for _, c := range s.Clues {
		v.validateIDFormat(where+" clue ID", c.ID)
		if clues[c.ID] {
			v.addError(fmt.Sprintf("%s: duplicate clue %q", where, c.ID))
		}
		clues[c.ID] = true
		if !c.Category.Valid() {
			v.addError(fmt.Sprintf("%s: clue %s has invalid category %q", where, c.ID, c.Category))
		}
	}
	for clueID := range s.Art {
		if !clues[clueID] {
			v.addError(fmt.Sprintf("%s: art for unknown clue %q", where, clueID))
		}
	}

	itemIDs := make(map[string]bool)
	for _, it := range s.Items {
		v.validateIDFormat(where+" item ID", it.ID)
		itemIDs[it.ID] = true
		if it.Clue != "" && !clues[it.Clue] {
			v.addError(fmt.Sprintf("%s: item %s refers to unknown clue %q", where, it.ID, it.Clue))
		}
	}

	known := make(map[string]bool)
	for _, id := range BuiltinCallbacks() {
		known[id] = true
	}
	for _, id := range slices.Sorted(maps.Keys(s.Callbacks)) {
		known[id] = true
		def := s.Callbacks[id]
		if _, err := callbacks.Build(def); err != nil {
			v.addError(fmt.Sprintf("%s: callback %s: %v", where, id, err))
			continue
		}
		v.validateDefinitionRefs(where+" callback "+id, def, clues, itemIDs)
	}

	for _, source := range slices.Sorted(maps.Keys(s.Dialogues)) {
		v.validateGraph(fmt.Sprintf("%s dialogue %s", where, source), s.Dialogues[source], known)
	}

	v.validateStory(s, known)
}

func (v *Validator) validateDefinitionRefs(where string, def callbacks.Definition, clues, itemIDs map[string]bool) {
	if def.Clue != "" && !clues[def.Clue] {
		v.addError(fmt.Sprintf("%s: unknown clue %q", where, def.Clue))
	}
	if def.Item != "" && !itemIDs[def.Item] {
		v.addError(fmt.Sprintf("%s: unknown item %q", where, def.Item))
	}
	for i, step := range def.Steps {
		v.validateDefinitionRefs(fmt.Sprintf("%s step %d", where, i), step, clues, itemIDs)
	}
}

func (v *Validator) validateGraph(where string, g dialogue.Graph, known map[string]bool) {
	if err := g.Validate(); err != nil {
		v.addError(fmt.Sprintf("%s: %v", where, err))
	}
	for _, n := range g {
		if n.Condition != nil {
			v.validateCondition(fmt.Sprintf("%s node %s", where, n.ID), *n.Condition)
		}
		if n.Entry && n.Condition == nil {
			v.addError(fmt.Sprintf("%s node %s: entry node needs a condition", where, n.ID))
		}
		for _, o := range n.Options {
			if o.CallbackID != "" && !known[o.CallbackID] {
				v.addError(fmt.Sprintf("%s node %s option %s: unknown callback %q", where, n.ID, o.ID, o.CallbackID))
			}
			if o.Condition != nil {
				v.validateCondition(fmt.Sprintf("%s node %s option %s", where, n.ID, o.ID), *o.Condition)
			}
		}
	}
}

func (v *Validator) validateCondition(where string, c conditions.Condition) {
	if err := conditions.Validate(c); err != nil {
		v.addError(fmt.Sprintf("%s: %v", where, err))
	}
}

// validateStory compiles the scene's story and checks every script source can start
// and every handleCallback call names a known callback.
func (v *Validator) validateStory(s *Scene, known map[string]bool) {
	if s.Story == "" {
		if len(s.ScriptSources) > 0 {
			v.addError(fmt.Sprintf("scene %s: script sources without a story", s.ID))
		}
		return
	}
	p, err := v.lib.Program(s.Story)
	if err != nil {
		v.addError(fmt.Sprintf("scene %s: %v", s.ID, err))
		return
	}
	for _, source := range s.ScriptSources {
		candidates := []string{source + "_entry", source, source + "." + dialogue.GreetingNodeID}
		if alias, ok := s.Aliases[source]; ok {
			candidates = append([]string{alias}, candidates...)
		}
		if !slices.ContainsFunc(candidates, p.HasPath) {
			v.addError(fmt.Sprintf("scene %s: story %s has no start path for %q", s.ID, s.Story, source))
		}
	}
	for _, path := range p.Paths() {
		for _, id := range callbackArgs(p, path) {
			if !known[id] {
				v.addError(fmt.Sprintf("scene %s: story %s path %s calls unknown callback %q", s.ID, s.Story, path, id))
			}
		}
	}
}

func callbackArgs(p *narrative.Program, path string) []string {
	var out []string
	for _, ins := range p.Block(path) {
		if ins.Op != narrative.OpCall || ins.Fn != "handleCallback" || len(ins.Args) == 0 {
			continue
		}
		if id, ok := ins.Args[0].(string); ok {
			out = append(out, id)
		}
	}
	return out
}

func (v *Validator) validateIDFormat(fieldName, id string) {
	if id == "" {
		v.addError(fmt.Sprintf("%s is empty", fieldName))
		return
	}
	if !validIDRegex.MatchString(id) {
		v.addError(fmt.Sprintf("%s '%s' should be an identifier (letters, digits, underscores)", fieldName, id))
	}
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
