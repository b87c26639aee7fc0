package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenarioYAML = `name: smoke
description: one short paragraph stays on one page
steps:
  - op: append
    text: "hello"
assertions:
  - type: page_count
    count: 1
  - type: no_overflow
`

const failingScenarioYAML = `name: wrong_count
description: expects a page count the layout does not reach
steps:
  - op: append
    text: "hello"
assertions:
  - type: page_count
    count: 3
`

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPlay_PassingScenario(t *testing.T) {
	path := writeScenarioFile(t, passingScenarioYAML)

	buf := &bytes.Buffer{}
	cmd := NewPlayCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "pages: 1")
	assert.Contains(t, output, `block 1: "hello"`)
	assert.Contains(t, output, "PASS smoke (1 steps)")
}

func TestPlay_FailingScenarioExitsOne(t *testing.T) {
	path := writeScenarioFile(t, failingScenarioYAML)

	buf := &bytes.Buffer{}
	cmd := NewPlayCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "FAIL wrong_count (1 steps)")
	assert.Contains(t, output, "Assertion failed: page_count")
}

func TestPlay_JSONCarriesReportAndErrors(t *testing.T) {
	path := writeScenarioFile(t, failingScenarioYAML)

	buf := &bytes.Buffer{}
	cmd := NewPlayCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   PlayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "wrong_count", resp.Data.Name)
	assert.False(t, resp.Data.Pass)
	assert.Equal(t, 1, resp.Data.Steps)
	require.Len(t, resp.Data.Errors, 1)
	assert.Contains(t, resp.Data.Report, "pages: 1")
}

func TestPlay_MissingScenarioIsCommandError(t *testing.T) {
	cmd := NewPlayCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/scenario.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "load scenario")
}

func TestPlay_InvalidScenarioIsCommandError(t *testing.T) {
	path := writeScenarioFile(t, "name: broken\nsteps:\n  - op: explode\n")

	cmd := NewPlayCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
