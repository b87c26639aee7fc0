package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario drops scenario YAML into a temp dir and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: split_check
description: "Two appends and a caret move"
steps:
  - op: append
    text: "x\nx\nx\nx"
  - op: select
    block: 1
    offset: 3
  - op: enter
assertions:
  - type: page_count
    count: 1
  - type: page_blocks
    page: 1
    texts: ["x\nx", "\nx\nx"]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "split_check", scenario.Name)
	assert.Equal(t, "Two appends and a caret move", scenario.Description)
	assert.Empty(t, scenario.Template)
	require.Len(t, scenario.Steps, 3)
	assert.Equal(t, OpAppend, scenario.Steps[0].Op)
	assert.Equal(t, "x\nx\nx\nx", scenario.Steps[0].Text)
	assert.Equal(t, 1, scenario.Steps[1].Block)
	assert.Equal(t, 3, scenario.Steps[1].Offset)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertPageCount, scenario.Assertions[0].Type)
	assert.Equal(t, []string{"x\nx", "\nx\nx"}, scenario.Assertions[1].Texts)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "has a stray field"
flows:
  - op: append
steps:
  - op: append
assertions:
  - type: no_overflow
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario YAML")
}

func TestLoadScenario_RequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "no name"
steps:
  - op: append
assertions:
  - type: no_overflow
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: bare
steps:
  - op: append
assertions:
  - type: no_overflow
`,
			wantErr: "description is required",
		},
		{
			name: "no steps",
			content: `
name: bare
description: "no steps"
assertions:
  - type: no_overflow
`,
			wantErr: "steps list is required",
		},
		{
			name: "no assertions",
			content: `
name: bare
description: "no assertions"
steps:
  - op: append
`,
			wantErr: "assertions list is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadScenario_StepValidation(t *testing.T) {
	cases := []struct {
		name    string
		step    string
		wantErr string
	}{
		{"unknown op", `  - op: explode`, `unknown op "explode"`},
		{"type requires text", `  - op: type`, "text is required for type"},
		{"select requires block", `  - op: select
    offset: 2`, "block is required for select"},
		{"set_orientation requires page", `  - op: set_orientation
    orientation: landscape`, "page is required for set_orientation"},
		{"set_orientation validates value", `  - op: set_orientation
    page: 1
    orientation: sideways`, "orientation must be portrait or landscape"},
		{"remove_page requires page", `  - op: remove_page`, "page is required for remove_page"},
		{"check_page requires page", `  - op: check_page`, "page is required for check_page"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content := `
name: step_check
description: "step validation"
steps:
` + tc.step + `
assertions:
  - type: no_overflow
`
			_, err := LoadScenario(writeScenario(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadScenario_AssertionValidation(t *testing.T) {
	cases := []struct {
		name      string
		assertion string
		wantErr   string
	}{
		{"unknown type", `  - type: trace_contains`, `unknown assertion type "trace_contains"`},
		{"page_count needs count", `  - type: page_count`, "count must be at least 1"},
		{"page_blocks needs page", `  - type: page_blocks
    texts: []`, "page is required for page_blocks"},
		{"page_blocks needs texts", `  - type: page_blocks
    page: 1`, "texts is required for page_blocks"},
		{"page_orientation validates value", `  - type: page_orientation
    page: 1
    orientation: upside`, "orientation must be portrait or landscape"},
		{"selection_on_page needs page", `  - type: selection_on_page`, "page is required for selection_on_page"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content := `
name: assertion_check
description: "assertion validation"
steps:
  - op: append
assertions:
` + tc.assertion + `
`
			_, err := LoadScenario(writeScenario(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadScenario_TemplatePathResolvedAgainstFile(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "card.cue")
	require.NoError(t, os.WriteFile(tmplPath, []byte(`template: name: "card"`), 0644))

	path := filepath.Join(dir, "scenario.yaml")
	content := `
name: relative_template
description: "template path next to the scenario file"
template: card.cue
steps:
  - op: append
assertions:
  - type: no_overflow
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, tmplPath, scenario.Template)
}

func TestLoadScenario_BuiltinTemplateKeptVerbatim(t *testing.T) {
	path := writeScenario(t, `
name: builtin_template
description: "built-in names are not treated as paths"
template: footered
steps:
  - op: append
assertions:
  - type: no_overflow
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "footered", scenario.Template)
}

func TestLoadScenario_TemplateFileMustExist(t *testing.T) {
	path := writeScenario(t, `
name: ghost_template
description: "references a missing template file"
template: ghost.cue
steps:
  - op: append
assertions:
  - type: no_overflow
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template file not found")
}

func TestLoadScenario_TemplateMustBeCueOrBuiltin(t *testing.T) {
	path := writeScenario(t, `
name: odd_template
description: "references a non-cue template"
template: layout.json
steps:
  - op: append
assertions:
  - type: no_overflow
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither a built-in name nor a .cue file")
}
