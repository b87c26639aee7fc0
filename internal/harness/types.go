package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success. True when every assertion held.
	Pass bool `json:"pass"`

	// Steps is the number of steps executed.
	Steps int `json:"steps"`

	// Errors lists the assertion failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Report is the rendered layout report of the settled document,
	// used for golden comparison and failure context.
	Report string `json:"report"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
