package engine

import (
	"context"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/featureplan/internal/model"
	"github.com/roach88/featureplan/internal/store"
)

// randomWalk applies n pseudo-random operations and calls check after each.
// Rejected operations are expected; they must leave the state unchanged.
func randomWalk(t *testing.T, f *fixture, seed uint64, n int, check func(step int, op string)) {
	t.Helper()
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	pick := func(ids []string) string {
		if len(ids) == 0 || rng.IntN(10) == 0 {
			return "ghost"
		}
		return ids[rng.IntN(len(ids))]
	}
	keys := func(m map[string]model.Feature) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		slices.Sort(out)
		return out
	}
	projectKeys := func() []string {
		out := make([]string, 0)
		for k := range f.eng.Snapshot().Projects {
			out = append(out, k)
		}
		slices.Sort(out)
		return out
	}

	for step := 0; step < n; step++ {
		features := keys(f.eng.Snapshot().Features)
		projects := projectKeys()
		before := f.eng.Snapshot()

		var op string
		var err error
		switch rng.IntN(9) {
		case 0:
			op = "CreateProject"
			_, err = f.eng.CreateProject(ctx, "p", "")
		case 1:
			op = "DeleteProject"
			err = f.eng.DeleteProject(ctx, pick(projects))
		case 2, 3:
			op = "CreateFeature"
			_, err = f.eng.CreateFeature(ctx, pick(projects), FeatureInput{
				Name:     "f",
				Category: model.Categories[rng.IntN(len(model.Categories))],
			})
		case 4:
			op = "DeleteFeature"
			err = f.eng.DeleteFeature(ctx, pick(features))
		case 5, 6:
			op = "AddDependency"
			_, err = f.eng.AddDependency(ctx, model.Dependency{FeatureID: pick(features), DependsOnID: pick(features)})
		case 7:
			op = "MoveFeature"
			id := pick(features)
			projectID := pick(projects)
			if ft, ok := before.Features[id]; ok && rng.IntN(4) > 0 {
				projectID = ft.ProjectID
			}
			err = f.eng.MoveFeature(ctx, id, model.Categories[rng.IntN(3)], projectID, rng.IntN(6)-1)
		case 8:
			op = "UpdateNodePosition"
			f.eng.UpdateNodePosition(ctx, pick(features), model.Position{X: float64(rng.IntN(500)), Y: float64(rng.IntN(500))})
		}

		if err != nil {
			require.True(t, IsNotFound(err) || IsInvalid(err), "step %d %s: unexpected error %v", step, op, err)
			require.Same(t, before, f.eng.Snapshot(), "step %d %s: rejected op changed state", step, op)
		}
		check(step, op)
	}
}

// Every feature refers to an existing project and every edge to existing
// features, after every step.
func TestProperty_ReferentialIntegrity(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		f := newFixture(t)
		randomWalk(t, f, seed, 300, func(step int, op string) {
			s := f.eng.Snapshot()
			for id, ft := range s.Features {
				_, ok := s.Projects[ft.ProjectID]
				require.True(t, ok, "seed %d step %d %s: feature %s orphaned", seed, step, op, id)
			}
			for _, deps := range s.Dependencies {
				for _, d := range deps {
					require.Contains(t, s.Features, d.FeatureID, "seed %d step %d %s", seed, step, op)
					require.Contains(t, s.Features, d.DependsOnID, "seed %d step %d %s", seed, step, op)
					require.NotEqual(t, d.FeatureID, d.DependsOnID)
				}
			}
			require.Empty(t, s.Check(), "seed %d step %d %s", seed, step, op)
		})
	}
}

func TestProperty_CascadeCompleteness(t *testing.T) {
	ctx := context.Background()
	for seed := uint64(10); seed < 15; seed++ {
		f := newFixture(t)
		randomWalk(t, f, seed, 200, func(int, string) {})

		for id := range f.eng.Projects() {
			var doomed []string
			for _, ft := range f.eng.ProjectFeatures(id) {
				doomed = append(doomed, ft.ID)
			}
			require.NoError(t, f.eng.DeleteProject(ctx, id))

			s := f.eng.Snapshot()
			assert.NotContains(t, s.FeatureOrders, id)
			for _, fid := range doomed {
				assert.NotContains(t, s.Features, fid)
				assert.NotContains(t, s.NodePositions, fid)
				assert.NotContains(t, s.Dependencies, fid)
				for _, deps := range s.Dependencies {
					for _, d := range deps {
						assert.NotEqual(t, fid, d.DependsOnID)
					}
				}
			}
		}
		assert.Empty(t, f.eng.Snapshot().Features)
		assert.Empty(t, f.eng.Snapshot().Dependencies)
	}
}

func TestProperty_OrderListConsistency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, "A")
	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, f.feature(t, p, "f", model.CategoryEssential))
	}

	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 200; i++ {
		id := ids[rng.IntN(len(ids))]
		cat := model.Categories[rng.IntN(3)]
		require.NoError(t, f.eng.MoveFeature(ctx, id, cat, p, rng.IntN(10)-2))

		order := f.eng.FeatureOrders()[p]
		count := 0
		for _, x := range order {
			if x == id {
				count++
			}
		}
		require.Equal(t, 1, count, "move %d: %s listed %d times in %v", i, id, count, order)
		got, _ := f.eng.Feature(id)
		require.Equal(t, cat, got.Category)
		requireConsistent(t, f.eng)
	}
}

func TestProperty_PersistenceRoundTrip(t *testing.T) {
	for seed := uint64(20); seed < 25; seed++ {
		kv := store.NewMemoryKV()
		f := newFixtureOn(t, kv)
		randomWalk(t, f, seed, 250, func(step int, op string) {
			if step%25 != 0 || f.eng.Revision() == 0 {
				return
			}
			assert.Equal(t, f.eng.Snapshot(), f.persisted(t), "seed %d step %d %s", seed, step, op)
		})

		reopened := newFixtureOn(t, kv)
		assert.Equal(t, f.eng.Snapshot(), reopened.eng.Snapshot(), "seed %d", seed)
	}
}

func TestProperty_IdempotentDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, "A")
	x := f.feature(t, p, "x", model.CategoryEssential)

	require.NoError(t, f.eng.DeleteFeature(ctx, x))
	require.NoError(t, f.eng.DeleteProject(ctx, p))
	after := f.eng.Snapshot()

	for i := 0; i < 3; i++ {
		assert.True(t, IsNotFound(f.eng.DeleteFeature(ctx, x)))
		assert.True(t, IsNotFound(f.eng.DeleteProject(ctx, p)))
	}
	assert.Same(t, after, f.eng.Snapshot())
}
