package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/featureplan/internal/testutil"
)

// testEnv runs commands against one file-backed slot. Ids are "id-1",
// "id-2", ... across every command of the env, and timestamps advance one
// second per use from testutil.Epoch.
type testEnv struct {
	t    *testing.T
	opts *RootOptions
	dir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		t:   t,
		dir: dir,
		opts: &RootOptions{
			Format:      "text",
			Backend:     "file",
			DataDir:     filepath.Join(dir, "slots"),
			IDGenerator: testutil.NewSequentialIDs("id"),
			Now:         testutil.NewDeterministicClock().Now,
		},
	}
}

// run executes the command built by newCmd with args and returns stdout.
func (e *testEnv) run(newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	e.t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(e.opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// mustRun is run that requires success.
func (e *testEnv) mustRun(newCmd func(*RootOptions) *cobra.Command, args ...string) string {
	e.t.Helper()
	out, err := e.run(newCmd, args...)
	require.NoError(e.t, err, "output: %s", out)
	return out
}

// seed creates project "Demo" (id-1) with features Login (id-2, high) and
// Database (id-3).
func (e *testEnv) seed() {
	e.t.Helper()
	e.mustRun(NewProjectCommand, "create", "Demo", "--purpose", "demo purpose")
	e.mustRun(NewFeatureCommand, "create", "id-1", "Login", "--priority", "high")
	e.mustRun(NewFeatureCommand, "create", "id-1", "Database", "--description", "storage layer")
}

func TestProjectCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(NewProjectCommand, "create", "Demo", "--purpose", "demo purpose")
	assert.Equal(t, "Created project \"Demo\" (id-1)\n", out)

	out = env.mustRun(NewProjectCommand, "list")
	assert.Equal(t, "id-1  Demo (0 features)\n", out)

	out = env.mustRun(NewProjectCommand, "update", "id-1", "--name", "Renamed")
	assert.Equal(t, "Updated project \"Renamed\" (id-1)\n", out)

	out = env.mustRun(NewProjectCommand, "delete", "id-1")
	assert.Equal(t, "Deleted project id-1 with 0 feature(s)\n", out)

	_, err := env.run(NewProjectCommand, "delete", "id-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "not_found")

	out = env.mustRun(NewProjectCommand, "list")
	assert.Equal(t, "No projects.\n", out)
}

func TestProjectUpdateKeepsUnsetFields(t *testing.T) {
	env := newTestEnv(t)
	env.opts.Format = "json"
	env.mustRun(NewProjectCommand, "create", "Demo", "--purpose", "demo purpose")

	out := env.mustRun(NewProjectCommand, "update", "id-1", "--description", "")
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "Demo", resp.Data["name"])
	assert.Equal(t, "demo purpose", resp.Data["purpose"])
	assert.NotContains(t, resp.Data, "description")
}

func TestFeatureCommands(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out := env.mustRun(NewFeatureCommand, "move", "id-3", "future", "--index", "0")
	assert.Equal(t, "Moved \"Database\" to Future Ideas\n  id-3  Database [medium]\n", out)

	out = env.mustRun(NewFeatureCommand, "list", "id-1")
	assert.Equal(t, "Essential Features:\n  id-2  Login [high]\n\nFuture Ideas:\n  id-3  Database [medium]\n", out)

	out = env.mustRun(NewFeatureCommand, "list", "id-1", "--category", "future")
	assert.Equal(t, "Future Ideas:\n  id-3  Database [medium]\n", out)

	out = env.mustRun(NewFeatureCommand, "list", "id-1", "--filter", `priority == "high"`)
	assert.Equal(t, "Essential Features:\n  id-2  Login [high]\n", out)

	_, err := env.run(NewFeatureCommand, "list", "id-1", "--filter", "priority ==")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run(NewFeatureCommand, "list", "missing")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestFeatureHistoryAndRestore(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out := env.mustRun(NewFeatureCommand, "history", "id-2")
	assert.Equal(t, "\"Login\" has no history\n", out)

	out = env.mustRun(NewFeatureCommand, "update", "id-2", "--name", "Sign in", "--notes", "oauth")
	assert.Equal(t, "Updated feature \"Sign in\" (1 history entries)\n", out)

	out = env.mustRun(NewFeatureCommand, "history", "id-2")
	assert.Equal(t, "id-4  2026-01-01 00:00:04  \"Login\" [essential, high]\n", out)

	out = env.mustRun(NewFeatureCommand, "restore", "id-2", "id-4")
	assert.Equal(t, "Restored \"Login\" [essential, high]\n", out)

	_, err := env.run(NewFeatureCommand, "restore", "id-2", "nope")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestFeatureCommands_Rejections(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	tests := []struct {
		name string
		args []string
	}{
		{"create in unknown project", []string{"create", "missing", "X"}},
		{"create with bad category", []string{"create", "id-1", "X", "--category", "someday"}},
		{"update unknown", []string{"update", "missing", "--name", "X"}},
		{"move unknown", []string{"move", "missing", "future"}},
		{"move to bad category", []string{"move", "id-2", "someday"}},
		{"delete unknown", []string{"delete", "missing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(NewFeatureCommand, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
		})
	}
}

func TestFeatureCreateJSON(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(NewProjectCommand, "create", "Demo")
	env.opts.Format = "json"

	out := env.mustRun(NewFeatureCommand, "create", "id-1", "Login", "--category", "nice-to-have")
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "id-2", data["id"])
	assert.Equal(t, "nice-to-have", data["category"])
	assert.Equal(t, "medium", data["priority"])
	assert.Equal(t, []any{}, data["history"])
}

func TestFeatureRejectionJSON(t *testing.T) {
	env := newTestEnv(t)
	env.opts.Format = "json"

	out, err := env.run(NewFeatureCommand, "delete", "missing")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
	assert.Equal(t, "feature does not exist", resp.Error.Message)
}

func TestDepCommands(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out := env.mustRun(NewDepCommand, "add", "id-2", "id-3")
	assert.Equal(t, "Added dependency id-4 (id-2 depends on id-3)\n", out)

	out = env.mustRun(NewGraphCommand, "id-1")
	assert.Contains(t, out, "  Login -> Database\n")
	assert.Contains(t, out, "build order: Database, Login")

	out = env.mustRun(NewDepCommand, "add", "id-3", "id-2")
	assert.Contains(t, out, "warning: dependency cycle:")

	out = env.mustRun(NewDepCommand, "list", "id-2")
	assert.Equal(t, "Login depends on:\n  id-3  Database\nLogin is needed by:\n  id-3  Database\n", out)

	out = env.mustRun(NewGraphCommand, "id-1")
	assert.NotContains(t, out, "build order")

	env.mustRun(NewDepCommand, "remove", "id-3", "id-2")
	_, err := env.run(NewDepCommand, "remove", "id-3", "id-2")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = env.run(NewDepCommand, "add", "id-2", "id-2")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// Deleting a feature removes the edges that mention it.
	env.mustRun(NewFeatureCommand, "delete", "id-3")
	out = env.mustRun(NewDepCommand, "list", "id-2")
	assert.Equal(t, "Login depends on: nothing\nLogin is needed by: nothing\n", out)
}

func TestGraphJSON(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	env.mustRun(NewPositionCommand, "id-2", "10", "20.5")
	env.opts.Format = "json"

	out := env.mustRun(NewGraphCommand, "id-1", "--search", "storage")
	var resp struct {
		Data GraphResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	require.Len(t, resp.Data.Nodes, 2)
	login, database := resp.Data.Nodes[0], resp.Data.Nodes[1]
	assert.True(t, login.Placed)
	assert.Equal(t, 20.5, login.Position.Y)
	assert.False(t, login.Match)
	assert.False(t, database.Placed)
	assert.True(t, database.Match)
	assert.Equal(t, []string{"id-2", "id-3"}, resp.Data.BuildOrder)
	assert.Empty(t, resp.Data.Cycles)
}

func TestPositionCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(NewPositionCommand, "n1", "10", "2.5")
	assert.Equal(t, "Moved node n1 to (10, 2.5)\n", out)

	_, err := env.run(NewPositionCommand, "n1", "left", "0")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	for _, coords := range [][]string{{"NaN", "0"}, {"0", "Inf"}, {"+Inf", "NaN"}} {
		_, err := env.run(NewPositionCommand, "n1", coords[0], coords[1])
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "coordinates must be finite")
	}

	out = env.mustRun(NewSnapshotCommand)
	var snap SnapshotEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 2.5, snap.State.NodePositions["n1"].Y)
}

func TestExportCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	outDir := filepath.Join(env.dir, "docs")

	out := env.mustRun(NewExportCommand, "id-1", "--dir", outDir)
	path := filepath.Join(outDir, "demo-features.md")
	assert.Equal(t, "Exported \"Demo\" to "+path+"\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Demo\n\ndemo purpose\n")

	out = env.mustRun(NewExportCommand, "id-1", "--stdout")
	assert.Equal(t, string(data), out)

	_, err = env.run(NewExportCommand, "missing")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestImportAndPlanCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(NewImportCommand, filepath.Join("..", "harness", "testdata", "plans", "launch.cue"))
	assert.Equal(t, "Imported 1 project(s), 3 feature(s), 2 dependencies\n", out)

	out = env.mustRun(NewFeatureCommand, "list", "id-1")
	assert.Contains(t, out, "Essential Features:\n  id-2  Database [medium]\n  id-3  Login [medium]")
	assert.Contains(t, out, "Future Ideas:\n  id-4  themes [medium]")

	planPath := filepath.Join(env.dir, "launch.cue")
	env.mustRun(NewPlanCommand, "id-1", "-o", planPath)

	// The encoded plan imports as a copy.
	out = env.mustRun(NewImportCommand, planPath)
	assert.Equal(t, "Imported 1 project(s), 3 feature(s), 2 dependencies\n", out)

	_, err := env.run(NewImportCommand, filepath.Join(env.dir, "missing.cue"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run(NewPlanCommand, "missing")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSnapshotCheckAndReset(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out := env.mustRun(NewCheckCommand)
	assert.Equal(t, "OK: 1 project(s), 2 feature(s), 0 dependencies\n", out)

	out = env.mustRun(NewSnapshotCommand)
	var snap SnapshotEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 1, snap.Version)
	assert.Len(t, snap.State.Features, 2)

	_, err := env.run(NewResetCommand)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out = env.mustRun(NewResetCommand, "--yes")
	assert.Equal(t, "All tables cleared\n", out)
	assert.Equal(t, "No projects.\n", env.mustRun(NewProjectCommand, "list"))
}

func TestSQLiteBackend(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			env := newTestEnv(t)
			env.opts.Backend = "sqlite"
			env.opts.Driver = driver
			env.opts.Database = filepath.Join(env.dir, "plan.db")

			env.seed()
			out := env.mustRun(NewProjectCommand, "list")
			assert.Equal(t, "id-1  Demo (2 features)\n", out)
		})
	}
}

func TestMemoryBackendDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	env.opts.Backend = "memory"

	env.mustRun(NewProjectCommand, "create", "Demo")
	assert.Equal(t, "No projects.\n", env.mustRun(NewProjectCommand, "list"))
}
