package dialogue

import (
	"testing"

	"github.com/jwebster45206/case-engine/pkg/callbacks"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/narrative"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scriptProgram = `{
  "variables": {"playerDidCocaine": false, "HAS_PHONE_CLUE": false},
  "knots": {
    "rockerMouse": {
      "body": [
        {"op": "text", "text": "Yo."},
        {"op": "text", "text": "You look wired.", "when": {"var": "playerDidCocaine"}},
        {"op": "divert", "to": "rockerMouse.menu"}
      ],
      "stitches": {
        "menu": [
          {"op": "choice", "text": "Ask about the bag", "to": "rockerMouse.bag"},
          {"op": "choice", "text": "Leave", "to": "END", "sticky": true}
        ],
        "bag": [
          {"op": "call", "fn": "handleCallback", "args": ["tutorial/read_phone_text"]},
          {"op": "call", "fn": "increaseCopReputation"},
          {"op": "text", "text": "What bag?"},
          {"op": "divert", "to": "rockerMouse.menu"}
        ]
      }
    },
    "clueCoke": {
      "body": [
        {"op": "text", "text": "A small bag of white powder."},
        {"op": "end"}
      ]
    },
    "pinkDressGirlMouse_entry": {
      "body": [
        {"op": "text", "text": "The phone doesn't work", "when": {"var": "HAS_PHONE_CLUE"}},
        {"op": "text", "text": "Hi!"},
        {"op": "end"}
      ]
    },
    "broken": {
      "body": [
        {"op": "text", "text": "Hm."},
        {"op": "choice", "text": "Poke it", "to": "broken.bad"}
      ],
      "stitches": {
        "bad": [
          {"op": "call", "fn": "missing"}
        ]
      }
    },
    "panicky": {
      "body": [
        {"op": "call", "fn": "boom"}
      ]
    },
    "silent": {
      "body": [
        {"op": "end"}
      ]
    },
    "firedCop": {
      "body": [
        {"op": "text", "text": "You're done here."},
        {"op": "call", "fn": "triggerGameOverFired"},
        {"op": "end"}
      ]
    }
  }
}`

type programMap map[string]*narrative.Program

func (m programMap) Program(sourceID string) (*narrative.Program, bool) {
	p, ok := m[sourceID]
	return p, ok
}

type scriptFixture struct {
	engine   *ScriptEngine
	state    *casestate.State
	ended    []string
	sources  []string
	gameOver int
}

func newScriptFixture(t *testing.T) *scriptFixture {
	t.Helper()
	prog, err := narrative.Compile([]byte(scriptProgram))
	require.NoError(t, err)

	f := &scriptFixture{state: casestate.New()}
	d := callbacks.NewDispatcher(&callbacks.Services{State: f.state}, testLogger())
	require.NoError(t, d.Register("tutorial/read_phone_text", func(svc *callbacks.Services, ctx callbacks.Context) {
		f.sources = append(f.sources, ctx.Source)
		svc.State.SetFlag("phoneTextRead", true)
	}))

	programs := programMap{}
	for _, id := range []string{"rockerMouse", "coke", "pinkDressGirlMouse", "broken", "panicky", "silent", "cop2"} {
		programs[id] = prog
	}

	f.engine = NewScriptEngine(ScriptConfig{
		Programs: programs,
		Aliases:  map[string]string{"coke": "clueCoke"},
		Sync: map[string]func() any{
			"playerDidCocaine": func() any { return f.state.GetFlag("playerDidCocaine") },
			"HAS_PHONE_CLUE":   func() any { return f.state.GetFlag("phoneTextRead") },
			"NOT_DECLARED":     func() any { return true },
		},
		Externals: map[string]narrative.ExternalFunc{
			"boom": func([]any) (any, error) { panic("boom") },
			"triggerGameOverFired": func([]any) (any, error) {
				f.gameOver++
				return nil, nil
			},
		},
	}, Env{State: f.state, Callbacks: d, Logger: testLogger()})
	f.engine.OnEnded(func(source string) { f.ended = append(f.ended, source) })
	return f
}

func TestScriptEngine_StartShowsTextAndChoices(t *testing.T) {
	f := newScriptFixture(t)

	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{Speaker: "Rocker"}))
	v := f.engine.View()
	assert.Equal(t, KindScript, v.Kind)
	assert.Equal(t, "Rocker", v.Speaker)
	assert.Equal(t, "Yo.", v.Text)
	assert.Equal(t, []string{"Ask about the bag", "Leave"}, v.Options)
	assert.Equal(t, "script_choice", v.NodeID)

	assert.False(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))
}

func TestScriptEngine_SecondStartIsNoOp(t *testing.T) {
	f := newScriptFixture(t)
	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))
	f.engine.Update(Input{Confirm: true})
	before := f.engine.View()
	require.Equal(t, "What bag?", before.Text)

	// The story path would run triggerGameOverFired if it were chosen.
	assert.False(t, f.engine.StartDialogue("cop2", StartOptions{StartNodeID: "firedCop"}))
	assert.Equal(t, before, f.engine.View())
	assert.Equal(t, "rockerMouse", f.engine.CurrentNPC())
	assert.Zero(t, f.gameOver)
	assert.False(t, f.engine.HasSavedState("cop2"))
	assert.Equal(t, []string{"rockerMouse"}, f.sources)
	assert.Equal(t, 1, f.state.GetCounter(ReputationCops))

	// The running story is untouched and still finishes normally.
	f.engine.Update(Input{Confirm: true})
	assert.False(t, f.engine.IsDialogueActive())
	assert.Equal(t, []string{"rockerMouse"}, f.ended)
}

func TestScriptEngine_SyncsDeclaredVariables(t *testing.T) {
	f := newScriptFixture(t)
	f.state.SetFlag("playerDidCocaine", true)

	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))
	assert.Equal(t, "Yo.\nYou look wired.", f.engine.View().Text)
}

func TestScriptEngine_ChoiceRunsExternals(t *testing.T) {
	f := newScriptFixture(t)
	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))

	f.engine.Update(Input{Confirm: true})

	assert.Equal(t, []string{"rockerMouse"}, f.sources)
	assert.True(t, f.state.GetFlag("phoneTextRead"))
	assert.Equal(t, 1, f.state.GetCounter(ReputationCops))

	v := f.engine.View()
	assert.Equal(t, "What bag?", v.Text)
	assert.Equal(t, []string{"Leave"}, v.Options)

	f.engine.Update(Input{Confirm: true})
	assert.False(t, f.engine.IsDialogueActive())
	assert.Equal(t, []string{"rockerMouse"}, f.ended)
}

func TestScriptEngine_ResumesSavedState(t *testing.T) {
	f := newScriptFixture(t)
	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))
	f.engine.Update(Input{Confirm: true})
	f.engine.Update(Input{Exit: true})

	assert.True(t, f.engine.HasSavedState("rockerMouse"))
	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))
	// the bag question was already asked in the earlier session
	assert.Equal(t, []string{"Leave"}, f.engine.View().Options)

	f.engine.EndDialogue(EndOptions{})
	f.engine.Reset()
	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))
	assert.Equal(t, []string{"Ask about the bag", "Leave"}, f.engine.View().Options)
}

func TestScriptEngine_DiscardStateOnEnd(t *testing.T) {
	f := newScriptFixture(t)
	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))
	f.engine.Update(Input{Confirm: true})
	f.engine.EndDialogue(EndOptions{DiscardState: true})

	assert.False(t, f.engine.HasSavedState("rockerMouse"))
	assert.Equal(t, []string{"rockerMouse"}, f.ended)

	require.True(t, f.engine.StartDialogue("rockerMouse", StartOptions{}))
	assert.Len(t, f.engine.View().Options, 2)
}

func TestScriptEngine_StartPaths(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		start    string
		wantText string
	}{
		{"object alias knot", "coke", "", "A small bag of white powder."},
		{"entry knot", "pinkDressGirlMouse", "greeting", "Hi!"},
		{"stitch under source", "rockerMouse", "bag", "What bag?"},
		{"absolute path", "cop2", "clueCoke", "A small bag of white powder."},
		{"alias wins over explicit id", "coke", "firedCop", "A small bag of white powder."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newScriptFixture(t)
			require.True(t, f.engine.StartDialogue(tt.source, StartOptions{StartNodeID: tt.start}))
			assert.Equal(t, tt.wantText, f.engine.View().Text)
		})
	}
}

func TestScriptEngine_TextWithoutChoicesEndsOnConfirm(t *testing.T) {
	f := newScriptFixture(t)
	f.state.SetFlag("phoneTextRead", true)

	require.True(t, f.engine.StartDialogue("pinkDressGirlMouse", StartOptions{}))
	v := f.engine.View()
	assert.Equal(t, "The phone doesn't work\nHi!", v.Text)
	assert.Empty(t, v.Options)
	assert.False(t, v.CanAdvance)

	f.engine.Update(Input{Down: true})
	assert.True(t, f.engine.IsDialogueActive())
	f.engine.Update(Input{Confirm: true})
	assert.False(t, f.engine.IsDialogueActive())
}

func TestScriptEngine_RuntimeErrorForcesEnd(t *testing.T) {
	f := newScriptFixture(t)
	require.True(t, f.engine.StartDialogue("broken", StartOptions{}))
	assert.Equal(t, []string{"Poke it"}, f.engine.View().Options)

	assert.NotPanics(t, func() { f.engine.Update(Input{Confirm: true}) })
	assert.False(t, f.engine.IsDialogueActive())
	assert.False(t, f.engine.HasSavedState("broken"))
	assert.Equal(t, []string{"broken"}, f.ended)
}

func TestScriptEngine_PanicForcesEnd(t *testing.T) {
	f := newScriptFixture(t)

	assert.NotPanics(t, func() { f.engine.StartDialogue("panicky", StartOptions{}) })
	assert.False(t, f.engine.IsDialogueActive())
	assert.Equal(t, []string{"panicky"}, f.ended)
}

func TestScriptEngine_EmptyStoryEndsAtOnce(t *testing.T) {
	f := newScriptFixture(t)
	f.engine.StartDialogue("silent", StartOptions{})
	assert.False(t, f.engine.IsDialogueActive())
	assert.Equal(t, []string{"silent"}, f.ended)
}

func TestScriptEngine_UnknownSource(t *testing.T) {
	f := newScriptFixture(t)
	assert.False(t, f.engine.Has("orangeShirtMouse"))
	assert.False(t, f.engine.StartDialogue("orangeShirtMouse", StartOptions{}))
	assert.False(t, f.engine.IsDialogueActive())
	assert.Empty(t, f.ended)
}

func TestRouter_PicksEngineBySource(t *testing.T) {
	sf := newScriptFixture(t)
	graph, err := NewGraphEngine(map[string]Graph{
		"orangeShirtMouse": {{ID: "greeting", Text: "Cheese? What cheese?"}},
	}, Env{Logger: testLogger()})
	require.NoError(t, err)

	r := NewRouter(testLogger(), sf.engine, graph)
	var ended []string
	r.OnEnded(func(source string) { ended = append(ended, source) })

	require.True(t, r.StartDialogue("orangeShirtMouse", StartOptions{}))
	assert.Equal(t, KindGraph, r.Kind())
	assert.Equal(t, "orangeShirtMouse", r.CurrentNPC())
	assert.False(t, r.StartDialogue("rockerMouse", StartOptions{}))
	r.Update(Input{Confirm: true})
	assert.False(t, r.IsDialogueActive())

	require.True(t, r.StartDialogue("rockerMouse", StartOptions{}))
	assert.Equal(t, KindScript, r.Kind())
	assert.Equal(t, "Yo.", r.View().Text)
	r.EndDialogue(EndOptions{})

	assert.False(t, r.StartDialogue("nobody", StartOptions{}))
	assert.Equal(t, EngineKind(""), r.Kind())
	assert.Equal(t, []string{"orangeShirtMouse", "rockerMouse"}, ended)
}

func TestScriptEngine_HostExternals(t *testing.T) {
	f := newScriptFixture(t)

	require.True(t, f.engine.StartDialogue("cop2", StartOptions{StartNodeID: "firedCop"}))
	assert.Equal(t, "You're done here.", f.engine.View().Text)
	assert.Equal(t, 1, f.gameOver)
}
