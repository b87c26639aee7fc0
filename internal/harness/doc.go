// Package harness provides conformance testing for the quire layout
// engine.
//
// The harness loads YAML scenarios, drives a real editing session
// through them step by step, and validates the settled layout with
// declarative assertions and golden report files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	template: narrow
//	steps:
//	  - op: append
//	    text: "first paragraph"
//	  - op: enter
//	  - op: set_orientation
//	    page: 1
//	    orientation: landscape
//	  - op: settle
//	assertions:
//	  - type: page_count
//	    count: 2
//	  - type: page_blocks
//	    page: 2
//	    texts: ["first paragraph"]
//
// The template field names a built-in geometry (narrow, footered,
// sectioned, default) or a path to a .cue template file, resolved
// relative to the scenario file.
//
// # Steps
//
//   - append: add a block with the given text to a page's content zone
//   - type: insert text at the caret
//   - enter: split the caret block and apply the proactive break check
//   - select: place the caret on a block at a rune offset
//   - set_orientation: flip a page between portrait and landscape
//   - set_section: assign a page to a template section
//   - remove_page: delete a page
//   - check_page: force an immediate overflow check
//   - settle: wait for the update queue to drain
//
// Pages and blocks are addressed by one-based position in document
// order; an omitted page means page 1. The harness settles the session
// after every step, so page positions always name the settled layout
// and the same scenario produces the same ids, the same migrations and
// the same report on every run.
//
// # Assertion Types
//
//   - page_count: the document has exactly N pages
//   - page_blocks: a page's content zone holds exactly these texts, in order
//   - page_orientation: a page reports the given orientation
//   - no_overflow: every page's content fits its zone within tolerance
//   - indices_contiguous: store-recorded page indexes equal 0..n-1 in
//     document order
//   - store_agrees: tree and metadata store agree on every page
//   - selection_on_page: the caret sits on a block of the given page
//
// # Determinism
//
// Every run builds a fresh session with sequential ids, a fixed
// monospace font model (line height 100, character width 10 points) and
// a tiny debounce window. Identical scenarios therefore produce
// identical layout reports, which RunWithGolden compares against
// testdata/golden/{name}.golden via goldie. Regenerate goldens with:
//
//	go test ./internal/harness -update
package harness
