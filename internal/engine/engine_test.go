package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/featureplan/internal/model"
	"github.com/roach88/featureplan/internal/store"
	"github.com/roach88/featureplan/internal/testutil"
)

func TestEngine_NewStartsEmpty(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, model.NewState(), f.eng.Snapshot())
	assert.Equal(t, int64(0), f.eng.Revision())
	assert.NoError(t, f.eng.PersistErr())
}

func TestEngine_NilPersister(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, nil, WithIDGenerator(NewFixedGenerator("p1")))

	id, err := e.CreateProject(ctx, "Solo", "")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	assert.NoError(t, e.PersistErr())
}

func TestEngine_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithIDGenerator(NewFixedGenerator("P1", "f1", "f2", "d1")))
	e := f.eng

	p, err := e.CreateProject(ctx, "P1", "demo")
	require.NoError(t, err)
	require.Equal(t, "P1", p)
	f1 := f.feature(t, p, "f1", model.CategoryEssential)
	f2 := f.feature(t, p, "f2", model.CategoryFuture)
	f.depend(t, f1, f2)

	require.NoError(t, e.MoveFeature(ctx, f1, model.CategoryNiceToHave, p, 0))
	got, ok := e.Feature(f1)
	require.True(t, ok)
	assert.Equal(t, model.CategoryNiceToHave, got.Category)
	assert.Equal(t, []string{"f1"}, e.FeatureOrders()["P1"])

	require.NoError(t, e.DeleteProject(ctx, p))
	s := e.Snapshot()
	assert.Empty(t, s.Features)
	assert.Empty(t, s.Dependencies)
	assert.NotContains(t, s.FeatureOrders, "P1")
	assert.Empty(t, s.Projects)

	assert.Equal(t, s, f.persisted(t))
}

func TestEngine_PersistsAfterEveryMutation(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "A")
	assert.Equal(t, f.eng.Snapshot(), f.persisted(t))

	f.feature(t, p, "x", model.CategoryFuture)
	assert.Equal(t, f.eng.Snapshot(), f.persisted(t))

	f.eng.UpdateNodePosition(context.Background(), "x", model.Position{X: 1, Y: 2})
	assert.Equal(t, f.eng.Snapshot(), f.persisted(t))
}

func TestEngine_ReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	f := newFixtureOn(t, kv)

	p := f.project(t, "A")
	a := f.feature(t, p, "a", model.CategoryEssential)
	b := f.feature(t, p, "b", model.CategoryFuture)
	f.depend(t, a, b)
	require.NoError(t, f.eng.MoveFeature(ctx, b, model.CategoryEssential, p, 5))
	require.NoError(t, f.eng.UpdateFeature(ctx, model.Feature{ID: a, Name: "a2", Category: model.CategoryEssential}))
	f.eng.UpdateNodePosition(ctx, a, model.Position{X: 3.25, Y: -8})
	f.eng.UpdateNodePosition(ctx, "orphan-node", model.Position{X: 1})

	reloaded := newFixtureOn(t, kv)
	assert.Equal(t, f.eng.Snapshot(), reloaded.eng.Snapshot())
}

func TestEngine_LoadCorruptSlotStartsEmpty(t *testing.T) {
	kv := store.NewMemoryKV()
	kv.Raw(store.DefaultSlot, []byte(`{"version":1,"state":`))

	f := newFixtureOn(t, kv)
	assert.Equal(t, model.NewState(), f.eng.Snapshot())
	assert.Contains(t, f.logs.String(), "discarding snapshot")
}

func TestEngine_LoadSanitizesDanglingRows(t *testing.T) {
	kv := store.NewMemoryKV()
	seed := newFixtureOn(t, kv)
	_ = seed.project(t, "A")

	broken := model.NewState()
	broken.Projects["p"] = model.Project{ID: "p", Name: "P", CreatedAt: testutil.Epoch}
	broken.Features["f"] = model.Feature{ID: "f", ProjectID: "p", Category: model.CategoryFuture, Priority: model.PriorityLow, History: []model.HistoryEntry{}, CreatedAt: testutil.Epoch}
	broken.Features["ghost"] = model.Feature{ID: "ghost", ProjectID: "missing", Category: model.CategoryFuture, Priority: model.PriorityLow}
	broken.Dependencies["f"] = []model.Dependency{{ID: "d", FeatureID: "f", DependsOnID: "ghost"}}
	broken.FeatureOrders["p"] = []string{"ghost", "f"}
	require.NoError(t, seed.adapter.Save(context.Background(), broken))

	f := newFixtureOn(t, kv)
	s := f.eng.Snapshot()
	assert.Empty(t, s.Check())
	assert.Contains(t, s.Features, "f")
	assert.NotContains(t, s.Features, "ghost")
	assert.Empty(t, s.Dependencies)
	assert.Equal(t, []string{"f"}, s.FeatureOrders["p"])
	assert.Contains(t, f.logs.String(), "dropped inconsistent rows")
}

func TestEngine_WithState(t *testing.T) {
	seed := model.NewState()
	seed.Projects["p"] = model.Project{ID: "p", Name: "Seeded"}

	f := newFixture(t, WithState(seed))
	p, ok := f.eng.Project("p")
	require.True(t, ok)
	assert.Equal(t, "Seeded", p.Name)
}

func TestEngine_PersistFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.kv.FailPut = errors.New("disk full")

	id := f.project(t, "A")
	_, ok := f.eng.Project(id)
	assert.True(t, ok, "in-memory state must not roll back")
	require.Error(t, f.eng.PersistErr())
	assert.ErrorIs(t, f.eng.PersistErr(), f.kv.FailPut)
	assert.Contains(t, f.logs.String(), "persisting state failed")

	f.kv.FailPut = nil
	f.project(t, "B")
	assert.NoError(t, f.eng.PersistErr())
	assert.Len(t, f.persisted(t).Projects, 2)
}

func TestEngine_Reset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, "A")
	f.feature(t, p, "x", model.CategoryEssential)

	var got []Change
	f.eng.Subscribe(func(c Change) { got = append(got, c) })
	f.eng.Reset(ctx)

	assert.Equal(t, model.NewState(), f.eng.Snapshot())
	_, ok, err := f.adapter.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "slot should be cleared")
	require.Len(t, got, 1)
	assert.Equal(t, model.AllTables, got[0].Tables)
}

func TestEngine_RevisionAdvancesOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, "A")
	assert.Equal(t, int64(1), f.eng.Revision())

	assert.Error(t, f.eng.DeleteFeature(ctx, "missing"))
	assert.Equal(t, int64(1), f.eng.Revision())

	f.eng.UpdateNodePosition(ctx, p, model.Position{X: 1})
	f.eng.UpdateNodePosition(ctx, p, model.Position{X: 1})
	assert.Equal(t, int64(2), f.eng.Revision())
}

func TestEngine_SnapshotIsNotMutatedByLaterOperations(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "A")
	before := f.eng.Snapshot()
	beforeCopy := before.Clone()

	x := f.feature(t, p, "x", model.CategoryEssential)
	y := f.feature(t, p, "y", model.CategoryEssential)
	f.depend(t, x, y)
	require.NoError(t, f.eng.DeleteProject(context.Background(), p))

	assert.Equal(t, beforeCopy, before)
}

func TestEngine_UntouchedTablesAreShared(t *testing.T) {
	f := newFixture(t)
	before := f.eng.Snapshot()
	f.project(t, "A")
	after := f.eng.Snapshot()

	assert.NotSame(t, before, after)
	assert.NotEqual(t, reflect.ValueOf(before.Projects).Pointer(), reflect.ValueOf(after.Projects).Pointer())
	assert.Equal(t, reflect.ValueOf(before.Features).Pointer(), reflect.ValueOf(after.Features).Pointer())
	assert.Equal(t, reflect.ValueOf(before.NodePositions).Pointer(), reflect.ValueOf(after.NodePositions).Pointer())
}

func TestEngine_SelectorsReturnCopies(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "A")

	projects := f.eng.Projects()
	delete(projects, p)
	_, ok := f.eng.Project(p)
	assert.True(t, ok)
}

func TestEngine_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, "A")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := f.eng.CreateFeature(ctx, p, FeatureInput{Name: "n"})
			assert.NoError(t, err)
			assert.NoError(t, f.eng.MoveFeature(ctx, id, model.CategoryFuture, p, 0))
		}()
	}
	wg.Wait()

	assert.Len(t, f.eng.ProjectFeatures(p), 20)
	assert.Len(t, f.eng.FeatureOrders()[p], 20)
	requireConsistent(t, f.eng)
	assert.Equal(t, f.eng.Snapshot(), f.persisted(t))
}
