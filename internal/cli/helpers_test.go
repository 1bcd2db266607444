package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/chipflow/internal/testutil"
)

const exampleNetwork = testutil.ExampleText

// overflowNetwork delivers a third chip to bot 1 during bot 0's firing.
const overflowNetwork = `value 10 goes to bot 1
value 20 goes to bot 1
bot 0 gives low to bot 1 and high to output 0
value 1 goes to bot 0
value 2 goes to bot 0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// recordExampleRun runs the example network with --db and returns the database path.
func recordExampleRun(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	netPath := writeFile(t, dir, "example.txt", exampleNetwork)
	dbPath := filepath.Join(dir, "runs.db")

	_, _, err := execute(t, "run", netPath, "--watch", "2,5", "--db", dbPath)
	require.NoError(t, err)
	return dbPath
}
