package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokepad/internal/compiler"
)

func executeCompile(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompile_ValidSequences(t *testing.T) {
	out, err := executeCompile(t, "text", "../compiler/testdata/sequences")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 3 sequence(s)")
	assert.Contains(t, out, "hatch_walk: loop, 5 step(s), 0 segment(s)")
	assert.Contains(t, out, "quick_date: date")
}

func TestCompile_JSONAndOutputFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "sequences.json")
	out, err := executeCompile(t, "json", "../compiler/testdata/sequences", "-o", outFile)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)

	var written struct {
		Sequences []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"sequences"`
	}
	require.NoError(t, json.Unmarshal(data, &written))
	require.Len(t, written.Sequences, 3)

	var names []string
	for _, s := range written.Sequences {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"hatch_walk", "release_box", "quick_date"}, names)
}

func TestCompile_CollectsAllErrors(t *testing.T) {
	out, err := executeCompile(t, "text", "../compiler/testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 error(s)")

	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, compiler.ErrCodeCommand+": broken:")
	assert.Contains(t, out, compiler.ErrCodeLayout+": no_segments:")
	assert.Contains(t, out, "bad.cue:")
}

func TestCompile_ErrorsJSON(t *testing.T) {
	out, err := executeCompile(t, "json", "../compiler/testdata/invalid")
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Error  CLIError   `json:"error"`
		Data   []CLIError `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data, 2)

	var codes []string
	for _, e := range resp.Data {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{compiler.ErrCodeCommand, compiler.ErrCodeLayout}, codes)
}

func TestCompile_LoadErrors(t *testing.T) {
	emptyDir := t.TempDir()

	tests := []struct {
		name     string
		dir      string
		wantCode string
	}{
		{"missing dir", "/nonexistent/sequences", compiler.ErrCodeNotFound},
		{"no cue files", emptyDir, compiler.ErrCodeNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCompile(t, "text", tt.dir)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestCompile_MissingArgs(t *testing.T) {
	_, err := executeCompile(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
