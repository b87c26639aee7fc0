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

func writeTemplateFile(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.cue")
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))
	return path
}

func TestTemplateValidate_ValidFile(t *testing.T) {
	path := writeTemplateFile(t, `
		template: {
			name:   "report"
			paper:  "Letter"
			footer: ["{page} / {pages}"]
		}
	`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTemplateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `✓ Template "report" valid`)
}

func TestTemplateValidate_ValidFileJSON(t *testing.T) {
	path := writeTemplateFile(t, `template: name: "minimal"`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTemplateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTemplateValidate_SchemaRejectionIsFailure(t *testing.T) {
	// Valid CUE, but the schema requires a name.
	path := writeTemplateFile(t, `template: footer: ["{page}"]`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTemplateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Template invalid")
	assert.Contains(t, buf.String(), "name")
}

func TestTemplateValidate_MissingFileIsCommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTemplateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "/nonexistent/template.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "not found")
}

func TestTemplateShow_DefaultWithoutArgument(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTemplateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "name:        default")
	assert.Contains(t, output, "A4 (595 x 842 pt)")
	assert.Contains(t, output, "orientation: portrait")
	assert.Contains(t, output, "footer:      {page} / {pages}")
}

func TestTemplateShow_ResolvesFileJSON(t *testing.T) {
	path := writeTemplateFile(t, `
		template: {
			name:  "card"
			paper: { width: 300, height: 420 }
			sections: [
				{ id: "annex", orientation: "landscape" },
			]
		}
	`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTemplateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   TemplateView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "card", resp.Data.Name)
	assert.Equal(t, float64(300), resp.Data.Paper.Width)
	assert.Equal(t, float64(72), resp.Data.Margins.Top, "omitted margins resolve to the default")
	require.Len(t, resp.Data.Sections, 1)
	assert.Equal(t, "annex", resp.Data.Sections[0].ID)
}

func TestTemplateShow_UnloadableFileIsCommandError(t *testing.T) {
	cmd := NewTemplateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "/nonexistent/template.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "load template")
}
