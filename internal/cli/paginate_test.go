package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTextFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPaginate_TextReport(t *testing.T) {
	path := writeTextFile(t, "hello world\n\nsecond paragraph\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPaginateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "pages: 1")
	assert.Contains(t, output, `block 1: "hello world"`)
	assert.Contains(t, output, `block 2: "second paragraph"`)
	assert.Contains(t, output, `footer: "1 / 1"`)
}

func TestPaginate_JSONLayout(t *testing.T) {
	path := writeTextFile(t, "hello world\n\nsecond paragraph\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewPaginateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   PaginateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Pages)
	assert.Equal(t, 2, resp.Data.Paragraphs)
	require.Len(t, resp.Data.Layout, 1)
	assert.Equal(t, []string{"hello world", "second paragraph"}, resp.Data.Layout[0].Blocks)
	assert.Equal(t, []string{"1 / 1"}, resp.Data.Layout[0].Footer)
	assert.Greater(t, resp.Data.Layout[0].ContentMax, 0.0)
}

func TestPaginate_TemplateFlagOverflowsOntoSecondPage(t *testing.T) {
	tmplPath := writeTemplateFile(t, `
		template: {
			name:    "card"
			paper:   { width: 300, height: 420 }
			margins: { top: 0, right: 0, bottom: 0, left: 0 }
			footer:  ["p.{page}"]
		}
	`)

	// Two 15-line paragraphs; the second one crosses the card's
	// content budget and migrates.
	para := strings.TrimSuffix(strings.Repeat("x\n", 15), "\n")
	path := writeTextFile(t, para+"\n\n"+para)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPaginateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--template", tmplPath})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "pages: 2")
	assert.Contains(t, output, `footer: "p.1"`)
	assert.Contains(t, output, `footer: "p.2"`)
}

func TestPaginate_MissingInputFile(t *testing.T) {
	cmd := NewPaginateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/input.txt"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "read input file")
}

func TestPaginate_BadTemplateIsCommandError(t *testing.T) {
	path := writeTextFile(t, "hello")

	cmd := NewPaginateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--template", "/nonexistent/template.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "load template")
}

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "blank line separates",
			input: "one\n\ntwo",
			want:  []string{"one", "two"},
		},
		{
			name:  "inner newline survives",
			input: "line a\nline b\n\nnext",
			want:  []string{"line a\nline b", "next"},
		},
		{
			name:  "crlf normalized",
			input: "one\r\n\r\ntwo\r\n",
			want:  []string{"one", "two"},
		},
		{
			name:  "runs of blank lines collapse",
			input: "one\n\n\n\ntwo",
			want:  []string{"one", "two"},
		},
		{
			name:  "whitespace only input",
			input: "\n\n\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitParagraphs(tt.input))
		})
	}
}
