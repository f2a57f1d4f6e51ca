package evidence

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeInventory struct {
	qty     map[string]int
	display map[string]string
	removed []string
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{qty: map[string]int{}, display: map[string]string{}}
}

func (f *fakeInventory) Quantity(id string) int { return f.qty[id] }
func (f *fakeInventory) RemoveItem(id string) {
	delete(f.qty, id)
	f.removed = append(f.removed, id)
}
func (f *fakeInventory) UpdateItemDisplay(id, key string) { f.display[id] = key }

func testArt() ArtTable {
	return ArtTable{
		"cluePhone": {
			Small: ArtSet{Fixed: "phone_32"},
			Large: ArtSet{Fixed: "phone_64"},
		},
		"clueCoke": {
			Small: ArtSet{Phases: map[casestate.Phase]string{
				casestate.PhaseFull: "coke_32_full", casestate.PhaseHalf: "coke_32_half", casestate.PhaseEmpty: "coke_32_empty",
			}},
			Large: ArtSet{Phases: map[casestate.Phase]string{
				casestate.PhaseFull: "coke_64_full", casestate.PhaseHalf: "coke_64_half", casestate.PhaseEmpty: "coke_64_empty",
			}},
		},
	}
}

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry(testLogger())

	require.NoError(t, r.Add(Clue{ID: "cluePhone", Title: "Phone", Category: CategoryEvidence}))
	assert.ErrorIs(t, r.Add(Clue{ID: "cluePhone", Title: "Again", Category: CategoryEvidence}), ErrDuplicateClue)
	assert.ErrorIs(t, r.Add(Clue{ID: "x", Category: "gossip"}), ErrInvalidCategory)

	c, ok := r.Get("cluePhone")
	require.True(t, ok)
	assert.Equal(t, "Phone", c.Title)
}

func TestRegistry_DiscoverOnce(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Add(Clue{ID: "cluePhone", Category: CategoryEvidence}))

	assert.Equal(t, Discovered, r.Discover("cluePhone"))
	assert.Equal(t, AlreadyDiscovered, r.Discover("cluePhone"))
	assert.Equal(t, UnknownClue, r.Discover("clueGhost"))
	assert.True(t, r.IsDiscovered("cluePhone"))
	assert.False(t, r.IsDiscovered("clueGhost"))

	r.Reset()
	assert.False(t, r.IsDiscovered("cluePhone"))
}

func TestRegistry_ListByCategory(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Add(Clue{ID: "a", Category: CategoryEvidence}))
	require.NoError(t, r.Add(Clue{ID: "b", Category: CategoryPeople}))
	require.NoError(t, r.Add(Clue{ID: "c", Category: CategoryEvidence}))
	r.Discover("c")

	var ids []string
	for _, c := range r.List(CategoryEvidence) {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)
	assert.Len(t, r.List(""), 3)
	assert.Equal(t, []string{"c"}, r.DiscoveredIDs())
}

func TestRegistry_SharedDiscoveries(t *testing.T) {
	st := casestate.New()
	first := NewRegistry(testLogger()).WithDiscoveries(st)
	require.NoError(t, first.Add(Clue{ID: "cluePhone", Category: CategoryEvidence}))
	assert.Equal(t, Discovered, first.Discover("cluePhone"))

	// A registry built later over the same state sees the discovery.
	second := NewRegistry(testLogger()).WithDiscoveries(st)
	require.NoError(t, second.Add(Clue{ID: "cluePhone", Category: CategoryEvidence}))
	assert.True(t, second.IsDiscovered("cluePhone"))
	assert.Equal(t, AlreadyDiscovered, second.Discover("cluePhone"))

	c, ok := second.Get("cluePhone")
	require.True(t, ok)
	assert.True(t, c.Discovered)
}

func newLifecycle(t *testing.T) (*Lifecycle, *casestate.State, *fakeInventory) {
	t.Helper()
	st := casestate.New()
	inv := newFakeInventory()
	lc := NewLifecycle(st, NewRegistry(testLogger()), testArt(), testLogger()).WithInventory(inv)
	lc.Link("clueCoke", "coke")
	lc.Link("cluePhone", "phone")
	return lc, st, inv
}

func TestLifecycle_DegradeUpdatesDisplay(t *testing.T) {
	lc, _, inv := newLifecycle(t)
	inv.qty["coke"] = 1

	assert.Equal(t, casestate.PhaseFull, lc.Track("clueCoke"))
	assert.Equal(t, casestate.PhaseHalf, lc.Degrade("clueCoke"))
	assert.Equal(t, "coke_32_half", inv.display["coke"])

	assert.Equal(t, casestate.PhaseEmpty, lc.Degrade("clueCoke"))
	assert.Equal(t, "coke_32_empty", inv.display["coke"])

	assert.Equal(t, casestate.PhaseEmpty, lc.Degrade("clueCoke"))

	key, ok := lc.DisplayKey("clueCoke", SizeLarge)
	require.True(t, ok)
	assert.Equal(t, "coke_64_empty", key)
}

func TestLifecycle_FixedClueNeverDegrades(t *testing.T) {
	lc, st, inv := newLifecycle(t)
	inv.qty["phone"] = 1

	for range 3 {
		assert.Equal(t, casestate.PhaseFixed, lc.Degrade("cluePhone"))
	}
	assert.Empty(t, inv.display)

	cs, ok := st.ClueState("cluePhone")
	require.True(t, ok)
	assert.Equal(t, casestate.PhaseFixed, cs.Phase)
}

func TestLifecycle_Reconcile(t *testing.T) {
	tests := []struct {
		name          string
		degrades      int
		qty           int
		expectRemoved bool
		expectPhase   casestate.Phase
	}{
		{"full with stock stays", 0, 1, false, casestate.PhaseFull},
		{"zero quantity forces empty", 1, 0, true, casestate.PhaseEmpty},
		{"empty wins over remaining quantity", 2, 3, true, casestate.PhaseEmpty},
		{"half with stock stays", 1, 1, false, casestate.PhaseHalf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc, _, inv := newLifecycle(t)
			inv.qty["coke"] = tt.qty
			lc.Track("clueCoke")
			for range tt.degrades {
				lc.Degrade("clueCoke")
			}

			assert.Equal(t, tt.expectRemoved, lc.Reconcile("clueCoke"))
			assert.Equal(t, tt.expectPhase, lc.Phase("clueCoke"))
			if tt.expectRemoved {
				assert.Contains(t, inv.removed, "coke")
			}
		})
	}
}

func TestArtSet_Decode(t *testing.T) {
	src := `
cluePhone:
  small: phone_32
  large: phone_64
clueCoke:
  small: {full: a, half: b, empty: c}
  large: {full: d, half: e, empty: f}
`
	var table ArtTable
	require.NoError(t, yaml.Unmarshal([]byte(src), &table))

	assert.False(t, table.Phased("cluePhone"))
	assert.True(t, table.Phased("clueCoke"))
	assert.False(t, table.Phased("unknown"))

	key, ok := table.Key("clueCoke", SizeSmall, casestate.PhaseHalf)
	require.True(t, ok)
	assert.Equal(t, "b", key)

	key, _ = table.Key("cluePhone", SizeLarge, casestate.PhaseEmpty)
	assert.Equal(t, "phone_64", key)

	data, err := json.Marshal(table)
	require.NoError(t, err)
	var back ArtTable
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, table, back)
}

func TestArtSet_RejectsPartialPhases(t *testing.T) {
	var set ArtSet
	err := yaml.Unmarshal([]byte(`{full: a, half: b}`), &set)
	assert.Error(t, err)
}
