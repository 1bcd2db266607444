package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
	"github.com/roach88/chipflow/internal/store"
)

type traceResponse struct {
	Status string      `json:"status"`
	Data   TraceResult `json:"data"`
	Error  *CLIError   `json:"error"`
}

func TestTraceLatestRunText(t *testing.T) {
	dbPath := recordExampleRun(t)

	out, _, err := execute(t, "trace", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "(example)")
	assert.Contains(t, out, "observed: bot 2")
	assert.Contains(t, out, "bot 2: low 2 -> bot 1, high 5 -> bot 0")
	assert.Contains(t, out, "bot 1: low 2 -> output 1, high 3 -> bot 0")
	assert.Contains(t, out, "bot 0: low 3 -> output 2, high 5 -> output 0")
	assert.Contains(t, out, "output 0: 5")
}

func TestTraceJSON(t *testing.T) {
	dbPath := recordExampleRun(t)

	out, _, err := execute(t, "trace", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "example", resp.Data.Name)
	require.Len(t, resp.Data.Firings, 3)
	assert.Equal(t, engine.Firing{
		Seq:        1,
		Unit:       2,
		Low:        2,
		High:       5,
		LowTarget:  ir.Unit(1),
		HighTarget: ir.Unit(0),
	}, resp.Data.Firings[0])
	assert.Len(t, resp.Data.Sinks, 3)

	hash, err := ir.NetworkHash(mustParseExample(t))
	require.NoError(t, err)
	assert.Equal(t, hash, resp.Data.NetworkHash)
}

func TestTraceFilterByBot(t *testing.T) {
	dbPath := recordExampleRun(t)

	out, _, err := execute(t, "trace", "--db", dbPath, "--bot", "0", "--format", "json")
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Firings, 1)
	assert.Equal(t, ir.UnitID(0), resp.Data.Firings[0].Unit)
	assert.Equal(t, int64(3), resp.Data.Firings[0].Seq)
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := recordExampleRun(t)

	out, _, err := execute(t, "trace", "--db", dbPath, "--run", "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "run not found: no-such-run")
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "trace", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no runs recorded")
}

func TestTraceMissingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	out, _, err := execute(t, "trace", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
	assert.NoFileExists(t, dbPath)
}

func TestTraceRequiresDatabase(t *testing.T) {
	out, _, err := execute(t, "trace")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--db is required")
}

func TestFilterFirings(t *testing.T) {
	firings := []engine.Firing{{Seq: 1, Unit: 2}, {Seq: 2, Unit: 1}, {Seq: 3, Unit: 2}}

	assert.Len(t, filterFirings(firings, -1), 3)
	got := filterFirings(firings, 2)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[1].Seq)
	assert.Empty(t, filterFirings(firings, 9))
}

func mustParseExample(t *testing.T) []ir.Instruction {
	t.Helper()
	net, err := LoadNetwork(writeFile(t, t.TempDir(), "example.txt", exampleNetwork))
	require.NoError(t, err)
	return net.Instructions
}
