package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chipflow/internal/ir"
)

func TestLoadNetworkText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "example.txt", exampleNetwork)

	net, err := LoadNetwork(path)
	require.NoError(t, err)
	assert.Equal(t, "example", net.Name)
	assert.Len(t, net.Instructions, 6)
	assert.Nil(t, net.Watch)
}

func TestLoadNetworkErrorCodes(t *testing.T) {
	dir := t.TempDir()
	badText := writeFile(t, dir, "bad.txt", "value 1 goes to bot 0\n\nvalue 2 goes to robot 0\n")
	badCUE := writeFile(t, dir, "bad.cue", "network: {\n\tinstructions: [{value: -1, bot: 0}]\n}\n")

	tests := []struct {
		name     string
		path     string
		wantCode string
		wantLine int // -1: any known line
		wantExit int
	}{
		{"missing", filepath.Join(dir, "missing.txt"), ErrCodeNotFound, 0, ExitCommandError},
		{"text", badText, ErrCodeParse, 3, ExitFailure},
		{"cue", badCUE, ErrCodeCompile, -1, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadNetwork(tt.path)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.wantCode, loadErr.Code)
			if tt.wantLine < 0 {
				assert.Positive(t, loadErr.Line)
			} else {
				assert.Equal(t, tt.wantLine, loadErr.Line)
			}
			assert.Equal(t, tt.wantExit, loadErr.ExitCode())
		})
	}
}

func TestLoadErrorUnwraps(t *testing.T) {
	_, err := LoadNetwork(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadErrorString(t *testing.T) {
	assert.Equal(t, "E003: line 4: bad", (&LoadError{Code: ErrCodeParse, Message: "bad", Line: 4}).Error())
	assert.Equal(t, "E002: gone", (&LoadError{Code: ErrCodeNotFound, Message: "gone"}).Error())
}

func TestReportLoadErrorJSONDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	err := reportLoadError(f, &LoadError{Code: ErrCodeParse, Message: "bad line", Line: 2})
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), `"line": 2`)
	assert.Contains(t, buf.String(), `"code": "E003"`)
}

func TestParseUintList(t *testing.T) {
	got, err := parseUintList(" 0, 1 ,2")
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2}, got)

	got, err = parseUintList("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseUintList("1,-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid number "-2"`)
}

func TestParseWatchFlag(t *testing.T) {
	w, err := parseWatchFlag("61,17")
	require.NoError(t, err)
	assert.Equal(t, ir.NewWatchPair(17, 61), *w)

	_, err = parseWatchFlag("1,2,3")
	require.Error(t, err)

	_, err = parseWatchFlag("1,9223372036854775808")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the maximum")
}
