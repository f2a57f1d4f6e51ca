package dialogue

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jwebster45206/case-engine/pkg/callbacks"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/conditions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Engine     = (*GraphEngine)(nil)
	_ Engine     = (*ScriptEngine)(nil)
	_ Controller = (*Router)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWorld struct {
	paused, resumed int
}

func (w *fakeWorld) Pause()  { w.paused++ }
func (w *fakeWorld) Resume() { w.resumed++ }

func cheeseTasted() *conditions.Condition {
	c := conditions.Flag("didTasteCheese")
	return &c
}

func testGraphs() map[string]Graph {
	return map[string]Graph{
		"cop2": {
			{
				ID:   "greeting",
				Text: "Detective. Glad you're here.",
				Options: []Option{
					{ID: "ask", Text: "What happened?", NextDialogueID: "details", CallbackID: "note_briefing"},
					{ID: "cheese", Text: "Want some cheese?", NextDialogueID: "cheese", Condition: cheeseTasted()},
					{ID: "lie", Text: "I never touched it.", NextDialogueID: "denial"},
					{ID: "bye", Text: "Later."},
				},
			},
			{ID: "details", Text: "Someone left a bag of powder.", NextDialogueID: "outro"},
			{ID: "outro", Text: "Take a look around."},
			{ID: "cheese", Text: "You're eating cheese during an investigation?"},
			{ID: "denial", Text: "Sure you didn't.", Condition: cheeseTasted()},
			{
				ID:        "smellsCheese",
				Text:      "Why do you smell like blue cheese?",
				Entry:     true,
				Condition: cheeseTasted(),
				Options: []Option{
					{ID: "shrug", Text: "No idea.", NextDialogueID: "ghost", Effect: &Effect{SetFlags: []string{"liedToWhiskers"}, Counters: map[string]int{"lies": 1}}},
				},
			},
		},
		"rockerMouse": {
			{ID: "intro", Text: "Yo."},
		},
	}
}

type graphFixture struct {
	engine *GraphEngine
	state  *casestate.State
	world  *fakeWorld
	ended  []string
	calls  []string
}

func newGraphFixture(t *testing.T) *graphFixture {
	t.Helper()
	f := &graphFixture{state: casestate.New(), world: &fakeWorld{}}
	d := callbacks.NewDispatcher(&callbacks.Services{State: f.state}, testLogger())
	require.NoError(t, d.Register("note_briefing", func(_ *callbacks.Services, ctx callbacks.Context) {
		// record which node was on screen when the callback ran
		f.calls = append(f.calls, ctx.Source+":"+f.engine.View().NodeID)
	}))

	e, err := NewGraphEngine(testGraphs(), Env{State: f.state, Callbacks: d, World: f.world, Logger: testLogger()})
	require.NoError(t, err)
	e.OnEnded(func(source string) { f.ended = append(f.ended, source) })
	f.engine = e
	return f
}

func TestGraphEngine_StartAtGreetingAndFilterOptions(t *testing.T) {
	f := newGraphFixture(t)

	require.True(t, f.engine.StartDialogue("cop2", StartOptions{}))
	assert.True(t, f.engine.IsDialogueActive())
	assert.Equal(t, "cop2", f.engine.CurrentNPC())

	want := View{
		Active:     true,
		Kind:       KindGraph,
		Source:     "cop2",
		Speaker:    "cop2",
		NodeID:     "greeting",
		Text:       "Detective. Glad you're here.",
		Options:    []string{"What happened?", "Later."},
		CanAdvance: true,
	}
	if diff := cmp.Diff(want, f.engine.View()); diff != "" {
		t.Errorf("View() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, f.world.paused)
}

func TestGraphEngine_SecondStartIsNoOp(t *testing.T) {
	f := newGraphFixture(t)
	require.True(t, f.engine.StartDialogue("cop2", StartOptions{}))
	f.engine.Update(Input{Down: true})
	before := f.engine.View()

	assert.False(t, f.engine.StartDialogue("rockerMouse", StartOptions{StartNodeID: "intro"}))
	assert.Equal(t, before, f.engine.View())
	assert.Equal(t, 1, f.world.paused)
}

func TestGraphEngine_CallbackRunsBeforeNextNode(t *testing.T) {
	f := newGraphFixture(t)
	require.True(t, f.engine.StartDialogue("cop2", StartOptions{}))

	f.engine.Update(Input{Confirm: true})

	assert.Equal(t, []string{"cop2:greeting"}, f.calls)
	assert.Equal(t, "details", f.engine.View().NodeID)
}

func TestGraphEngine_LinearBeatsAndEnd(t *testing.T) {
	f := newGraphFixture(t)
	require.True(t, f.engine.StartDialogue("cop2", StartOptions{}))

	f.engine.Update(Input{Confirm: true}) // -> details
	v := f.engine.View()
	assert.Empty(t, v.Options)
	assert.True(t, v.CanAdvance)

	f.engine.Update(Input{Confirm: true}) // -> outro
	assert.Equal(t, "outro", f.engine.View().NodeID)
	assert.False(t, f.engine.View().CanAdvance)

	f.engine.Update(Input{Confirm: true}) // -> idle
	assert.False(t, f.engine.IsDialogueActive())
	assert.Equal(t, []string{"cop2"}, f.ended)
	assert.Equal(t, 1, f.world.resumed)

	f.engine.EndDialogue(EndOptions{})
	f.engine.Update(Input{Confirm: true})
	assert.Equal(t, []string{"cop2"}, f.ended, "ended must fire once per session")
}

func TestGraphEngine_NavigationWraps(t *testing.T) {
	f := newGraphFixture(t)
	require.True(t, f.engine.StartDialogue("cop2", StartOptions{}))

	f.engine.Update(Input{Up: true})
	assert.Equal(t, 1, f.engine.View().Selected)
	f.engine.Update(Input{Down: true})
	assert.Equal(t, 0, f.engine.View().Selected)
	assert.Empty(t, f.calls, "navigation has no side effects")

	f.engine.Update(Input{Down: true})
	f.engine.Update(Input{Confirm: true}) // "Later." has no next node
	assert.False(t, f.engine.IsDialogueActive())
	assert.Empty(t, f.calls)
}

func TestGraphEngine_EntryNodeAndEffects(t *testing.T) {
	f := newGraphFixture(t)
	f.state.SetFlag("didTasteCheese", true)

	require.True(t, f.engine.StartDialogue("cop2", StartOptions{StartNodeID: GreetingNodeID}))
	assert.Equal(t, "smellsCheese", f.engine.View().NodeID)

	f.engine.Update(Input{Confirm: true})

	// next node does not exist: the dialogue ends after the effect is applied
	assert.False(t, f.engine.IsDialogueActive())
	assert.True(t, f.state.GetFlag("liedToWhiskers"))
	assert.Equal(t, 1, f.state.GetCounter("lies"))
	assert.Equal(t, []string{"cop2"}, f.ended)
}

func TestGraphEngine_ExplicitStartWinsOverEntry(t *testing.T) {
	f := newGraphFixture(t)
	f.state.SetFlag("didTasteCheese", true)

	require.True(t, f.engine.StartDialogue("cop2", StartOptions{StartNodeID: "details"}))
	assert.Equal(t, "details", f.engine.View().NodeID)
}

func TestGraphEngine_OptionsFollowState(t *testing.T) {
	st := casestate.New()
	graphs := testGraphs()
	nodes := graphs["cop2"]
	nodes[len(nodes)-1].Entry = false
	e, err := NewGraphEngine(graphs, Env{State: st, Logger: testLogger()})
	require.NoError(t, err)

	require.True(t, e.StartDialogue("cop2", StartOptions{}))
	assert.Equal(t, []string{"What happened?", "Later."}, e.View().Options)
	e.EndDialogue(EndOptions{})

	// the option condition and the target node condition both open up
	st.SetFlag("didTasteCheese", true)
	require.True(t, e.StartDialogue("cop2", StartOptions{}))
	assert.Equal(t, []string{"What happened?", "Want some cheese?", "I never touched it.", "Later."}, e.View().Options)
}

func TestGraphEngine_ExitEndsImmediately(t *testing.T) {
	f := newGraphFixture(t)
	require.True(t, f.engine.StartDialogue("cop2", StartOptions{}))

	f.engine.Update(Input{Exit: true, Confirm: true})
	assert.False(t, f.engine.IsDialogueActive())
	assert.Empty(t, f.calls)
	assert.Equal(t, View{Kind: KindGraph}, f.engine.View())
}

func TestGraphEngine_UnresolvableStart(t *testing.T) {
	f := newGraphFixture(t)

	assert.False(t, f.engine.StartDialogue("nobody", StartOptions{}))
	assert.False(t, f.engine.StartDialogue("rockerMouse", StartOptions{}), "no greeting node")
	assert.False(t, f.engine.IsDialogueActive())
	assert.Empty(t, f.ended)
	assert.Zero(t, f.world.paused)

	assert.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{StartNodeID: "intro"}))
}

func TestGraphEngine_ListenerMayStartNextDialogue(t *testing.T) {
	f := newGraphFixture(t)
	f.engine.OnEnded(func(source string) {
		if source == "rockerMouse" {
			f.engine.StartDialogue("cop2", StartOptions{})
		}
	})

	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{StartNodeID: "intro"}))
	f.engine.Update(Input{Confirm: true})

	assert.True(t, f.engine.IsDialogueActive())
	assert.Equal(t, "cop2", f.engine.CurrentNPC())
}

func TestNewGraphEngine_DuplicateNodeID(t *testing.T) {
	_, err := NewGraphEngine(map[string]Graph{
		"cop2": {{ID: "greeting"}, {ID: "greeting"}},
	}, Env{Logger: testLogger()})
	assert.Error(t, err)
}

func TestGraph_Validate(t *testing.T) {
	tests := []struct {
		name    string
		graph   Graph
		wantErr bool
	}{
		{"valid", testGraphs()["rockerMouse"], false},
		{"missing id", Graph{{Text: "hi"}}, true},
		{"duplicate", Graph{{ID: "a"}, {ID: "a"}}, true},
		{"dangling next", Graph{{ID: "a", NextDialogueID: "b"}}, true},
		{"dangling option", Graph{{ID: "a", Options: []Option{{ID: "o", NextDialogueID: "b"}}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	assert.Len(t, testGraphs()["cop2"].NodeConditions(), 3)
}
