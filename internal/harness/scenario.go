package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"quire/internal/doc"
)

// Scenario defines a conformance test scenario: a named sequence of
// editing steps and the assertions the settled layout must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed
	// by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Template selects the page geometry: a built-in name (narrow,
	// footered, sectioned, default) or a path to a .cue template file.
	// Relative paths are resolved against the scenario file's
	// directory. Empty means narrow.
	Template string `yaml:"template,omitempty"`

	// Steps is the editing sequence, executed in order against a fresh
	// session. The harness settles after every step.
	Steps []Step `yaml:"steps"`

	// Assertions validate the settled layout after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one editing operation. Op selects the operation; the other
// fields carry its arguments.
type Step struct {
	// Op is the operation name (see the Op constants).
	Op string `yaml:"op"`

	// Text is the content for append and type.
	Text string `yaml:"text,omitempty"`

	// Page addresses a page by one-based position in document order.
	// Zero means page 1.
	Page int `yaml:"page,omitempty"`

	// Block addresses a content block by one-based position on the
	// page (select).
	Block int `yaml:"block,omitempty"`

	// Offset is the caret rune offset within the block (select).
	Offset int `yaml:"offset,omitempty"`

	// Orientation is portrait or landscape (set_orientation).
	Orientation string `yaml:"orientation,omitempty"`

	// Section is a template section id (set_section).
	Section string `yaml:"section,omitempty"`
}

// Step operation constants.
const (
	OpAppend         = "append"
	OpType           = "type"
	OpEnter          = "enter"
	OpSelect         = "select"
	OpSetOrientation = "set_orientation"
	OpSetSection     = "set_section"
	OpRemovePage     = "remove_page"
	OpCheckPage      = "check_page"
	OpSettle         = "settle"
)

// Assertion validates one property of the settled layout. Type selects
// the check; the other fields carry its arguments.
type Assertion struct {
	// Type is the assertion name (see the Assert constants).
	Type string `yaml:"type"`

	// Count is the expected page count (page_count).
	Count int `yaml:"count,omitempty"`

	// Page addresses a page by one-based position (page_blocks,
	// page_orientation, selection_on_page).
	Page int `yaml:"page,omitempty"`

	// Texts are the expected block texts in content-zone order
	// (page_blocks). Use [] for a page with no blocks.
	Texts []string `yaml:"texts,omitempty"`

	// Orientation is the expected orientation (page_orientation).
	Orientation string `yaml:"orientation,omitempty"`
}

// Assertion type constants.
const (
	AssertPageCount         = "page_count"
	AssertPageBlocks        = "page_blocks"
	AssertPageOrientation   = "page_orientation"
	AssertNoOverflow        = "no_overflow"
	AssertIndicesContiguous = "indices_contiguous"
	AssertStoreAgrees       = "store_agrees"
	AssertSelectionOnPage   = "selection_on_page"
)

// LoadScenario reads and parses a scenario YAML file. A template path
// in the scenario is resolved relative to the scenario file's
// directory. Returns an error if the file is missing, malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject unknown fields, catches typos
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	// Template file references are relative to the scenario, not the
	// process working directory.
	if t := scenario.Template; t != "" && !isBuiltinTemplate(t) && !filepath.IsAbs(t) {
		scenario.Template = filepath.Join(filepath.Dir(path), t)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if t := s.Template; t != "" && !isBuiltinTemplate(t) {
		if !strings.HasSuffix(t, ".cue") {
			return fmt.Errorf("template %q is neither a built-in name nor a .cue file", t)
		}
		if _, err := os.Stat(t); os.IsNotExist(err) {
			return fmt.Errorf("template file not found: %s", t)
		}
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, st *Step) error {
	if st.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}
	if st.Page < 0 {
		return fmt.Errorf("steps[%d]: page must be positive", index)
	}

	switch st.Op {
	case OpAppend, OpEnter, OpSettle:
		// Text may be empty and page defaults to 1.
	case OpType:
		if st.Text == "" {
			return fmt.Errorf("steps[%d]: text is required for type", index)
		}
	case OpSelect:
		if st.Block < 1 {
			return fmt.Errorf("steps[%d]: block is required for select", index)
		}
		if st.Offset < 0 {
			return fmt.Errorf("steps[%d]: offset must not be negative", index)
		}
	case OpSetOrientation:
		if st.Page < 1 {
			return fmt.Errorf("steps[%d]: page is required for set_orientation", index)
		}
		if !doc.Orientation(st.Orientation).Valid() {
			return fmt.Errorf("steps[%d]: orientation must be portrait or landscape, got %q", index, st.Orientation)
		}
	case OpSetSection:
		if st.Page < 1 {
			return fmt.Errorf("steps[%d]: page is required for set_section", index)
		}
	case OpRemovePage:
		if st.Page < 1 {
			return fmt.Errorf("steps[%d]: page is required for remove_page", index)
		}
	case OpCheckPage:
		if st.Page < 1 {
			return fmt.Errorf("steps[%d]: page is required for check_page", index)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPageCount:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be at least 1 for page_count", index)
		}
	case AssertPageBlocks:
		if a.Page < 1 {
			return fmt.Errorf("assertions[%d]: page is required for page_blocks", index)
		}
		if a.Texts == nil {
			return fmt.Errorf("assertions[%d]: texts is required for page_blocks (use [] for an empty page)", index)
		}
	case AssertPageOrientation:
		if a.Page < 1 {
			return fmt.Errorf("assertions[%d]: page is required for page_orientation", index)
		}
		if !doc.Orientation(a.Orientation).Valid() {
			return fmt.Errorf("assertions[%d]: orientation must be portrait or landscape, got %q", index, a.Orientation)
		}
	case AssertSelectionOnPage:
		if a.Page < 1 {
			return fmt.Errorf("assertions[%d]: page is required for selection_on_page", index)
		}
	case AssertNoOverflow, AssertIndicesContiguous, AssertStoreAgrees:
		// No arguments.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
