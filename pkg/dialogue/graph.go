package dialogue

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/case-engine/pkg/conditions"
)

// Graph is the node list authored for one source.
type Graph []Node

// Validate checks that node ids are unique and every forward reference resolves.
func (g Graph) Validate() error {
	seen := make(map[string]bool, len(g))
	for _, n := range g {
		if n.ID == "" {
			return fmt.Errorf("node without id")
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for _, n := range g {
		if n.NextDialogueID != "" && !seen[n.NextDialogueID] {
			return fmt.Errorf("node %q: next %q does not exist", n.ID, n.NextDialogueID)
		}
		for _, o := range n.Options {
			if o.NextDialogueID != "" && !seen[o.NextDialogueID] {
				return fmt.Errorf("node %q option %q: next %q does not exist", n.ID, o.ID, o.NextDialogueID)
			}
		}
	}
	return nil
}

// GraphEngine runs statically declared node graphs.
type GraphEngine struct {
	session
	graphs  map[string]map[string]*Node
	order   map[string][]string
	current *Node
	visible []Option
}

// NewGraphEngine indexes graphs by source id. A graph with duplicate node ids is rejected;
// dangling forward references are allowed and end the dialogue when followed.
func NewGraphEngine(graphs map[string]Graph, env Env) (*GraphEngine, error) {
	e := &GraphEngine{
		session: newSession(env, KindGraph),
		graphs:  make(map[string]map[string]*Node, len(graphs)),
		order:   make(map[string][]string, len(graphs)),
	}
	for _, source := range slices.Sorted(maps.Keys(graphs)) {
		nodes := make(map[string]*Node, len(graphs[source]))
		for i := range graphs[source] {
			n := &graphs[source][i]
			if _, dup := nodes[n.ID]; dup {
				return nil, fmt.Errorf("dialogue %s: duplicate node id %q", source, n.ID)
			}
			nodes[n.ID] = n
			e.order[source] = append(e.order[source], n.ID)
		}
		e.graphs[source] = nodes
	}
	return e, nil
}

func (e *GraphEngine) Kind() EngineKind {
	return KindGraph
}

// Has reports whether a graph exists for a source.
func (e *GraphEngine) Has(sourceID string) bool {
	_, ok := e.graphs[sourceID]
	return ok
}

// StartDialogue resolves the start node: the explicit id, then an entry node whose condition holds,
// then the greeting node.
func (e *GraphEngine) StartDialogue(sourceID string, opts StartOptions) bool {
	if e.active {
		return false
	}
	nodes, ok := e.graphs[sourceID]
	if !ok {
		e.logger.Warn("No dialogue graph for source", "source", sourceID)
		return false
	}
	start := e.resolveStart(sourceID, nodes, opts.StartNodeID)
	if start == nil {
		e.logger.Warn("No start node for dialogue", "source", sourceID, "start_node", opts.StartNodeID)
		return false
	}
	e.begin(sourceID, opts)
	e.show(start)
	return true
}

func (e *GraphEngine) resolveStart(sourceID string, nodes map[string]*Node, explicit string) *Node {
	if explicit != "" && explicit != GreetingNodeID {
		if n, ok := nodes[explicit]; ok {
			return n
		}
		e.logger.Warn("Unknown start node, falling back", "source", sourceID, "node_id", explicit)
	}
	for _, id := range e.order[sourceID] {
		n := nodes[id]
		if n.Entry && n.Condition != nil && e.evaluator.Evaluate(*n.Condition, e.env.State) {
			return n
		}
	}
	if n, ok := nodes[GreetingNodeID]; ok {
		return n
	}
	if n, ok := nodes[sourceID+"_entry"]; ok {
		return n
	}
	return nil
}

// show displays a node, hiding options whose own condition or target node condition is false.
func (e *GraphEngine) show(n *Node) {
	e.current = n
	e.visible = e.visible[:0]
	nodes := e.graphs[e.source]
	for _, o := range n.Options {
		if !e.evaluator.Holds(o.Condition, e.env.State) {
			continue
		}
		if next, ok := nodes[o.NextDialogueID]; ok && !e.evaluator.Holds(next.Condition, e.env.State) {
			continue
		}
		e.visible = append(e.visible, o)
	}
	e.selected = 0
	if n.Speaker != "" {
		e.speaker = n.Speaker
	}
}

// Update handles exit, navigation and confirm, in that order of precedence.
func (e *GraphEngine) Update(in Input) {
	if !e.active || e.current == nil {
		return
	}
	switch {
	case in.Exit:
		e.EndDialogue(EndOptions{})
	case in.Confirm:
		e.confirm()
	case in.Up || in.Down:
		e.navigate(in, len(e.visible))
	}
}

func (e *GraphEngine) confirm() {
	if len(e.visible) > 0 {
		e.Select(e.selected)
		return
	}
	if e.current.NextDialogueID != "" {
		e.advance(e.current.NextDialogueID)
		return
	}
	e.EndDialogue(EndOptions{})
}

// Select picks a visible option. The option's effect and callback run before the next node is shown.
func (e *GraphEngine) Select(i int) {
	if !e.active || i < 0 || i >= len(e.visible) {
		return
	}
	opt := e.visible[i]
	e.applyEffect(opt.Effect)
	e.dispatch(opt.CallbackID)
	if !e.active {
		// the callback ended or replaced the dialogue
		return
	}
	if opt.NextDialogueID == "" {
		e.EndDialogue(EndOptions{})
		return
	}
	e.advance(opt.NextDialogueID)
}

func (e *GraphEngine) advance(nodeID string) {
	n, ok := e.graphs[e.source][nodeID]
	if !ok {
		e.logger.Warn("Unknown dialogue node", "source", e.source, "node_id", nodeID)
		e.EndDialogue(EndOptions{})
		return
	}
	e.show(n)
}

func (e *GraphEngine) applyEffect(eff *Effect) {
	if eff == nil {
		return
	}
	for _, f := range eff.SetFlags {
		e.env.State.SetFlag(f, true)
	}
	for _, id := range slices.Sorted(maps.Keys(eff.Counters)) {
		e.env.State.IncrementCounter(id, eff.Counters[id])
	}
}

// EndDialogue returns to idle. Graph dialogues keep no state between sessions.
func (e *GraphEngine) EndDialogue(EndOptions) {
	if !e.active {
		return
	}
	e.current = nil
	e.visible = nil
	e.finish()
}

func (e *GraphEngine) View() View {
	if !e.active || e.current == nil {
		return View{Kind: KindGraph}
	}
	v := View{
		Active:   true,
		Kind:     KindGraph,
		Source:   e.source,
		Speaker:  e.speaker,
		NodeID:   e.current.ID,
		Text:     e.current.Text,
		Selected: e.selected,
	}
	for _, o := range e.visible {
		v.Options = append(v.Options, o.Text)
	}
	v.CanAdvance = len(e.visible) > 0 || e.current.NextDialogueID != ""
	return v
}

// NodeConditions returns every condition referenced by a graph, for content validation.
func (g Graph) NodeConditions() []conditions.Condition {
	var out []conditions.Condition
	for _, n := range g {
		if n.Condition != nil {
			out = append(out, *n.Condition)
		}
		for _, o := range n.Options {
			if o.Condition != nil {
				out = append(out, *o.Condition)
			}
		}
	}
	return out
}
