package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"quire/internal/doc"
	"quire/internal/geometry"
	"quire/internal/session"
	"quire/internal/template"
	"quire/internal/testutil"
)

// scenarioFont is the fixed monospace measurement model scenarios run
// under: every text line is 100 points tall and every character cell 10
// points wide, so block heights are mental arithmetic.
var scenarioFont = geometry.FontMetrics{LineHeight: 100, CharWidth: 10}

const (
	// scenarioDebounce keeps the update machinery real but fast; a
	// settle after a step costs milliseconds, not the production
	// hundred.
	scenarioDebounce = 2 * time.Millisecond

	// settleTimeout bounds one whole scenario run. A scenario that
	// cannot settle inside it has a stuck queue, not a slow machine.
	settleTimeout = 10 * time.Second
)

// runner executes one scenario against one session.
type runner struct {
	sess   *session.Session
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh session with sequential ids, the
// scenario font and a tiny debounce window. The harness settles the
// session after every step, so the same scenario always walks the same
// sequence of settled layouts. A step failure aborts the run with an
// error; assertion failures are collected into the result instead.
func Run(scenario *Scenario) (*Result, error) {
	tmpl, err := scenarioTemplate(scenario.Template)
	if err != nil {
		return nil, fmt.Errorf("resolve scenario template: %w", err)
	}

	sess, err := session.Open(session.Config{
		Template: tmpl,
		Font:     scenarioFont,
		Debounce: scenarioDebounce,
		IDs:      testutil.NewSequenceIDs("id"),
	})
	if err != nil {
		return nil, fmt.Errorf("open scenario session: %w", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	h := &runner{
		sess:   sess,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // suppress step logs in tests
	}

	result := NewResult()
	if err := sess.WaitForIdle(ctx); err != nil {
		return nil, fmt.Errorf("settle mount: %w", err)
	}
	for i := range scenario.Steps {
		if err := h.executeStep(ctx, i, &scenario.Steps[i]); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, scenario.Steps[i].Op, err)
		}
		if err := sess.WaitForIdle(ctx); err != nil {
			return nil, fmt.Errorf("settle after step %d (%s): %w", i, scenario.Steps[i].Op, err)
		}
		result.Steps++
	}

	result.Report = RenderReport(sess)
	for _, msg := range EvaluateAssertions(sess, scenario.Assertions, result.Report) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step against the session.
func (h *runner) executeStep(ctx context.Context, index int, st *Step) error {
	var err error
	switch st.Op {
	case OpAppend:
		err = h.append(st)
	case OpType:
		err = h.sess.Type(st.Text)
	case OpEnter:
		_, err = h.sess.Enter()
	case OpSelect:
		err = h.selectBlock(st)
	case OpSetOrientation:
		err = h.withPage(st.Page, func(pageID string) error {
			return h.sess.SetOrientation(pageID, doc.Orientation(st.Orientation))
		})
	case OpSetSection:
		err = h.withPage(st.Page, func(pageID string) error {
			return h.sess.SetSection(pageID, st.Section)
		})
	case OpRemovePage:
		err = h.withPage(st.Page, h.sess.RemovePage)
	case OpCheckPage:
		err = h.withPage(st.Page, func(pageID string) error {
			h.sess.CheckPage(pageID)
			return nil
		})
	case OpSettle:
		err = h.sess.WaitForIdle(ctx)
	default:
		err = fmt.Errorf("unknown op %q", st.Op)
	}
	if err != nil {
		return err
	}

	h.logger.Info("step executed",
		"index", index,
		"op", st.Op,
		"pages", h.sess.PageCount(),
	)
	return nil
}

func (h *runner) append(st *Step) error {
	return h.withPage(st.Page, func(pageID string) error {
		_, err := h.sess.AppendBlock(pageID, st.Text)
		return err
	})
}

func (h *runner) selectBlock(st *Step) error {
	return h.withPage(st.Page, func(pageID string) error {
		page, err := h.sess.Page(pageID)
		if err != nil {
			return err
		}
		if st.Block > len(page.Blocks) {
			return fmt.Errorf("block %d does not exist (page has %d)", st.Block, len(page.Blocks))
		}
		return h.sess.Select(page.Blocks[st.Block-1].ID, st.Offset)
	})
}

// withPage resolves a one-based page position to its id and runs fn.
// Zero means page 1.
func (h *runner) withPage(n int, fn func(pageID string) error) error {
	if n == 0 {
		n = 1
	}
	ids := h.sess.PageIDs()
	if n > len(ids) {
		return fmt.Errorf("page %d does not exist (document has %d)", n, len(ids))
	}
	return fn(ids[n-1])
}

// isBuiltinTemplate reports whether name is one of the built-in
// scenario geometries.
func isBuiltinTemplate(name string) bool {
	switch name {
	case "", "narrow", "footered", "sectioned", "default":
		return true
	}
	return false
}

// scenarioTemplate resolves a scenario's template field: a built-in
// geometry by name, or a .cue template file by path.
func scenarioTemplate(name string) (template.Template, error) {
	switch name {
	case "", "narrow":
		return narrowTemplate(), nil
	case "footered":
		t := narrowTemplate()
		t.Name = "footered"
		t.Footer = []string{"{page} / {pages}"}
		return t, nil
	case "sectioned":
		t := narrowTemplate()
		t.Name = "sectioned"
		t.Sections = []template.Section{{ID: "annex", Orientation: doc.Landscape}}
		return t, nil
	case "default":
		return template.Default(), nil
	}
	return template.Load(name)
}

// narrowTemplate is a 200x1000 point sheet with no margins: twenty
// columns wide and ten lines tall under the scenario font.
func narrowTemplate() template.Template {
	return template.Template{
		Name:        "narrow",
		Paper:       doc.PaperSize{Name: "scenario", Width: 200, Height: 1000},
		Orientation: doc.Portrait,
	}
}
