package callbacks

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/jwebster45206/case-engine/pkg/evidence"
	"github.com/jwebster45206/case-engine/pkg/items"
	"github.com/jwebster45206/case-engine/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeWorld struct {
	removed []string
	scenes  []string
}

func (w *fakeWorld) RemoveItemSprite(id string) { w.removed = append(w.removed, id) }
func (w *fakeWorld) ChangeScene(id string)      { w.scenes = append(w.scenes, id) }

type fixture struct {
	dispatcher *Dispatcher
	svc        *Services
	world      *fakeWorld
	messages   []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{world: &fakeWorld{}}

	st := casestate.New()
	reg := evidence.NewRegistry(logger)
	require.NoError(t, reg.Add(evidence.Clue{ID: "cluePhone", Title: "Burner phone", Category: evidence.CategoryEvidence}))
	inv := items.NewInventory()
	lc := evidence.NewLifecycle(st, reg, nil, logger).WithInventory(inv)
	handler := items.NewActionHandler([]items.Config{{ID: "phone", Name: "Phone", Clue: "cluePhone"}},
		st, inv, lc, items.NewBus(logger), nil, logger)

	f.svc = &Services{
		State:    st,
		Evidence: lc,
		Items:    handler,
		Notifier: notify.SinkFunc(func(m string) { f.messages = append(f.messages, m) }),
		World:    f.world,
	}
	f.dispatcher = NewDispatcher(f.svc, logger)
	return f
}

func TestDispatcher_UnknownIsNoOp(t *testing.T) {
	f := newFixture(t)

	assert.NotPanics(t, func() {
		assert.False(t, f.dispatcher.Dispatch("does_not_exist", Context{Source: "cop2"}))
	})
	assert.Empty(t, f.messages)
}

func TestDispatcher_RegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatcher.Register("a", Notify("hi")))
	assert.Error(t, f.dispatcher.Register("a", Notify("again")))
	assert.Error(t, f.dispatcher.Register("", Notify("x")))
}

func TestDispatcher_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatcher.Register("bad", func(*Services, Context) { panic("boom") }))

	assert.NotPanics(t, func() {
		assert.False(t, f.dispatcher.Dispatch("bad", Context{}))
	})
}

func TestDispatcher_PassesContext(t *testing.T) {
	f := newFixture(t)
	var got Context
	require.NoError(t, f.dispatcher.Register("capture", func(_ *Services, ctx Context) { got = ctx }))

	f.dispatcher.Dispatch("capture", Context{Source: "deadBody", Target: Target{Kind: TargetBody, ID: "DeadBody"}})
	assert.Equal(t, Context{CallbackID: "capture", Source: "deadBody", Target: Target{Kind: TargetBody, ID: "DeadBody"}}, got)
}

func TestBuiltins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatcher.Register("find_phone", DiscoverClue("cluePhone", "")))
	require.NoError(t, f.dispatcher.Register("take_phone", PickUpItem("phone")))
	require.NoError(t, f.dispatcher.Register("count", IncrementCounter("n", 2)))
	require.NoError(t, f.dispatcher.Register("event", MarkEvent("intro")))

	f.dispatcher.Dispatch("find_phone", Context{})
	f.dispatcher.Dispatch("find_phone", Context{})
	f.dispatcher.Dispatch("take_phone", Context{Target: Target{Kind: TargetItem, ID: "phone_sprite"}})
	f.dispatcher.Dispatch("count", Context{})
	f.dispatcher.Dispatch("count", Context{})
	f.dispatcher.Dispatch("event", Context{})

	assert.Equal(t, []string{"New clue: Burner phone", "Picked up Phone."}, f.messages)
	assert.True(t, f.svc.Evidence.IsDiscovered("cluePhone"))
	assert.True(t, f.svc.Items.Inventory().Has("phone"))
	assert.Equal(t, []string{"phone_sprite"}, f.world.removed)
	assert.Equal(t, 4, f.svc.State.GetCounter("n"))
	assert.True(t, f.svc.State.HasEventBeenAddressed("intro"))
}

func TestTutorialScripts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatcher.RegisterPrefixed(TutorialPrefix, TutorialScripts()))
	assert.True(t, f.dispatcher.Has("tutorial/skip_tutorial"))

	f.dispatcher.Dispatch("tutorial/mark_cheese_illegal", Context{})
	f.dispatcher.Dispatch("tutorial/mark_cheese_illegal", Context{})
	f.dispatcher.Dispatch("tutorial/read_phone_text", Context{})
	f.dispatcher.Dispatch("tutorial/skip_tutorial", Context{})

	assert.True(t, f.svc.State.GetFlag("cheeseMarkedIllegal"))
	assert.True(t, f.svc.State.GetFlag("phoneTextRead"))
	assert.True(t, f.svc.State.GetFlag("tutorialSkipped"))
	assert.Equal(t, []string{
		"🧀 Cheese marked as illegal contraband.",
		"📱 Phone log noted (Butter text).",
		"Tutorial skipped.",
	}, f.messages)
	assert.Equal(t, []string{TutorialSkipScene}, f.world.scenes)
}

func TestRegisterDefinitions(t *testing.T) {
	src := `
pick_up_phone_and_note:
  type: script
  steps:
    - type: pickUpItem
      item: phone
    - type: discoverClue
      clue: cluePhone
      message: "Phone added to evidence."
    - type: incrementCounter
      counter: evidenceCollected
tell:
  type: notify
  message: hello
`
	var defs map[string]Definition
	require.NoError(t, yaml.Unmarshal([]byte(src), &defs))

	f := newFixture(t)
	require.NoError(t, f.dispatcher.RegisterDefinitions(defs))
	assert.Equal(t, []string{"pick_up_phone_and_note", "tell"}, f.dispatcher.IDs())

	f.dispatcher.Dispatch("pick_up_phone_and_note", Context{})
	assert.Equal(t, []string{"Picked up Phone.", "Phone added to evidence."}, f.messages)
	assert.Equal(t, 1, f.svc.State.GetCounter("evidenceCollected"))
}

func TestBuild_Errors(t *testing.T) {
	bad := []Definition{
		{Type: "discoverClue"},
		{Type: "pickUpItem"},
		{Type: "markFlag"},
		{Type: "incrementCounter"},
		{Type: "markEvent"},
		{Type: "changeScene"},
		{Type: "script"},
		{Type: "script", Steps: []Definition{{Type: "nope"}}},
		{Type: "teleport"},
	}
	for _, def := range bad {
		_, err := Build(def)
		assert.Error(t, err, "type %q", def.Type)
	}
}
