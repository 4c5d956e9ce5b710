package engine

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/featureplan/internal/model"
	"github.com/roach88/featureplan/internal/store"
	"github.com/roach88/featureplan/internal/testutil"
)

// fixture bundles an engine with its in-memory slot and test clock.
type fixture struct {
	eng     *Engine
	kv      *store.MemoryKV
	adapter *store.Adapter
	clock   *testutil.DeterministicClock
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureOn(t, store.NewMemoryKV(), opts...)
}

func newFixtureOn(t *testing.T, kv *store.MemoryKV, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		kv:    kv,
		clock: testutil.NewDeterministicClock(),
		logs:  &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.adapter = store.NewAdapter(kv, "", store.WithLogger(logger))

	base := []Option{
		WithLogger(logger),
		WithNow(f.clock.Now),
		WithIDGenerator(testutil.NewSequentialIDs("id")),
	}
	f.eng = New(context.Background(), f.adapter, append(base, opts...)...)
	return f
}

// persisted loads what the engine last saved.
func (f *fixture) persisted(t *testing.T) *model.State {
	t.Helper()
	s, ok, err := f.adapter.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok, "nothing persisted")
	return s
}

func (f *fixture) project(t *testing.T, name string) string {
	t.Helper()
	id, err := f.eng.CreateProject(context.Background(), name, name+" purpose")
	require.NoError(t, err)
	return id
}

func (f *fixture) feature(t *testing.T, projectID, name string, c model.Category) string {
	t.Helper()
	id, err := f.eng.CreateFeature(context.Background(), projectID, FeatureInput{Name: name, Category: c})
	require.NoError(t, err)
	return id
}

func (f *fixture) depend(t *testing.T, featureID, dependsOnID string) string {
	t.Helper()
	id, err := f.eng.AddDependency(context.Background(), model.Dependency{FeatureID: featureID, DependsOnID: dependsOnID})
	require.NoError(t, err)
	return id
}

func requireConsistent(t *testing.T, e *Engine) {
	t.Helper()
	require.Empty(t, e.Snapshot().Check())
}
