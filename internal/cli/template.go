package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"quire/internal/doc"
	"quire/internal/template"
)

// TemplateView is the JSON projection of a resolved template.
type TemplateView struct {
	Name        string          `json:"name"`
	Paper       doc.PaperSize   `json:"paper"`
	Orientation doc.Orientation `json:"orientation"`
	Margins     doc.Margins     `json:"margins"`
	Header      []string        `json:"header,omitempty"`
	Footer      []string        `json:"footer,omitempty"`
	Sections    []SectionView   `json:"sections,omitempty"`
}

// SectionView is the JSON projection of a section override.
type SectionView struct {
	ID          string          `json:"id"`
	Orientation doc.Orientation `json:"orientation"`
}

// TemplateValidation holds template validation results.
type TemplateValidation struct {
	Valid    bool          `json:"valid"`
	Template *TemplateView `json:"template,omitempty"`
}

// NewTemplateCommand creates the template command group.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect and validate page templates",
	}

	cmd.AddCommand(newTemplateValidateCommand(rootOpts))
	cmd.AddCommand(newTemplateShowCommand(rootOpts))

	return cmd
}

func newTemplateValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.cue>",
		Short: "Check a template file against the schema",
		Long: `Check a CUE template file against the built-in schema without
mounting a session.

Exit codes:
  0 - template valid
  1 - template rejected by the schema
  2 - command error (missing file)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runTemplateValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("template file not found: %s", path)
		_ = formatter.Error("E_NOT_FOUND", msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	tmpl, err := template.Load(path)
	if err != nil {
		if opts.Format == "json" {
			response := CLIResponse{
				Status: "error",
				Data:   TemplateValidation{Valid: false},
				Error: &CLIError{
					Code:    "E_TEMPLATE_INVALID",
					Message: err.Error(),
				},
			}
			encoder := json.NewEncoder(formatter.Writer)
			encoder.SetIndent("", "  ")
			if encErr := encoder.Encode(response); encErr != nil {
				return encErr
			}
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Template invalid")
			fmt.Fprintln(formatter.Writer)
			fmt.Fprintf(formatter.Writer, "  %v\n", err)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("template %s invalid", path))
	}

	if opts.Format == "json" {
		view := templateView(tmpl)
		return formatter.Success(TemplateValidation{Valid: true, Template: &view})
	}

	fmt.Fprintf(formatter.Writer, "✓ Template %q valid\n", tmpl.Name)
	return nil
}

func newTemplateShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [file.cue]",
		Short: "Print a resolved template",
		Long: `Print a template with paper, margins, zone lines and section
overrides resolved. Without a file argument the built-in default
template is shown.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateShow(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runTemplateShow(opts *RootOptions, args []string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	var tmpl template.Template
	if len(args) == 0 {
		tmpl = template.Default()
	} else {
		var err error
		tmpl, err = template.Load(args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "load template", err)
		}
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		}
		return formatter.Success(templateView(tmpl))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "name:        %s\n", tmpl.Name)
	fmt.Fprintf(w, "paper:       %s (%g x %g pt)\n", tmpl.Paper.Name, tmpl.Paper.Width, tmpl.Paper.Height)
	fmt.Fprintf(w, "orientation: %s\n", tmpl.Orientation)
	fmt.Fprintf(w, "margins:     top=%g right=%g bottom=%g left=%g\n",
		tmpl.Margins.Top, tmpl.Margins.Right, tmpl.Margins.Bottom, tmpl.Margins.Left)
	if len(tmpl.Header) > 0 {
		fmt.Fprintf(w, "header:      %s\n", strings.Join(tmpl.Header, " | "))
	}
	if len(tmpl.Footer) > 0 {
		fmt.Fprintf(w, "footer:      %s\n", strings.Join(tmpl.Footer, " | "))
	}
	for _, sec := range tmpl.Sections {
		fmt.Fprintf(w, "section:     %s orientation=%s\n", sec.ID, sec.Orientation)
	}
	return nil
}

func templateView(tmpl template.Template) TemplateView {
	view := TemplateView{
		Name:        tmpl.Name,
		Paper:       tmpl.Paper,
		Orientation: tmpl.Orientation,
		Margins:     tmpl.Margins,
		Header:      tmpl.Header,
		Footer:      tmpl.Footer,
	}
	for _, sec := range tmpl.Sections {
		view.Sections = append(view.Sections, SectionView{ID: sec.ID, Orientation: sec.Orientation})
	}
	return view
}
