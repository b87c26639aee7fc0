package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quire/internal/harness"
	"quire/internal/session"
	"quire/internal/template"
)

// PaginateOptions holds flags for the paginate command.
type PaginateOptions struct {
	*RootOptions
	Template string
}

// PageView is one page of a paginate report.
type PageView struct {
	Number      int      `json:"number"`
	Orientation string   `json:"orientation"`
	Section     string   `json:"section,omitempty"`
	Header      []string `json:"header,omitempty"`
	Blocks      []string `json:"blocks"`
	Footer      []string `json:"footer,omitempty"`
	ContentUsed float64  `json:"content_used"`
	ContentMax  float64  `json:"content_max"`
}

// PaginateResult is the paginate command's JSON payload.
type PaginateResult struct {
	Pages      int        `json:"pages"`
	Paragraphs int        `json:"paragraphs"`
	Layout     []PageView `json:"layout"`
}

// NewPaginateCommand creates the paginate command.
func NewPaginateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaginateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "paginate <file>",
		Short: "Flow a plain-text file into pages",
		Long: `Flow a plain-text file into pages and print the settled layout.

Blank lines separate paragraphs; each paragraph becomes one block and
the engine migrates whatever crosses a page boundary. Headers, footers
and page numbers come from the template.

Example:
  quire paginate chapter.txt
  quire paginate chapter.txt --template letterhead.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaginate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Template, "template", "", "path to a .cue template (default: built-in A4)")

	return cmd
}

func runPaginate(opts *PaginateOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read input file", err)
	}
	paragraphs := splitParagraphs(string(data))

	tmpl := template.Default()
	if opts.Template != "" {
		tmpl, err = template.Load(opts.Template)
		if err != nil {
			return WrapExitError(ExitCommandError, "load template", err)
		}
	}

	sess, err := session.Open(session.Config{
		Template: tmpl,
		Debounce: 2 * time.Millisecond,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "open session", err)
	}
	defer sess.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	// Paragraphs land on the first page; every settle lets the engine
	// migrate the overflow forward before the next one arrives.
	first := sess.PageIDs()[0]
	for i := range paragraphs {
		if _, err := sess.AppendBlock(first, paragraphs[i]); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("append paragraph %d", i+1), err)
		}
		if err := sess.WaitForIdle(ctx); err != nil {
			return WrapExitError(ExitFailure, "settle layout", err)
		}
	}
	if err := sess.WaitForIdle(ctx); err != nil {
		return WrapExitError(ExitFailure, "settle layout", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		}
		return formatter.Success(PaginateResult{
			Pages:      sess.PageCount(),
			Paragraphs: len(paragraphs),
			Layout:     buildLayout(sess),
		})
	}

	fmt.Fprint(cmd.OutOrStdout(), harness.RenderReport(sess))
	return nil
}

// splitParagraphs breaks input text on blank lines. Newlines inside a
// paragraph survive as in-block line breaks.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.Trim(chunk, "\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		out = append(out, chunk)
	}
	return out
}

// buildLayout snapshots the settled pages for JSON output.
func buildLayout(sess *session.Session) []PageView {
	oracle := sess.Oracle()
	pages := sess.Pages()
	views := make([]PageView, len(pages))
	for i := range pages {
		view := PageView{
			Number:      i + 1,
			Orientation: string(pages[i].Orientation),
			Section:     pages[i].SectionID,
			Header:      pages[i].Header,
			Blocks:      make([]string, len(pages[i].Blocks)),
			Footer:      pages[i].Footer,
		}
		for j := range pages[i].Blocks {
			view.Blocks[j] = pages[i].Blocks[j].Text
		}
		if bottom, err := oracle.ContentBottom(pages[i].ID); err == nil {
			view.ContentUsed = bottom
		}
		if zone, err := oracle.ZoneMetrics(pages[i].ID); err == nil {
			view.ContentMax = zone.Available
		}
		views[i] = view
	}
	return views
}
