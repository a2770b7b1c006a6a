package scenario

// Case is one test case within a scenario.
type Case struct {
	Subject string `yaml:"subject,omitempty"`
	Message string `yaml:"message"`
	Expect  string `yaml:"expect"` // pass | escalate | block
}

// Scenario is a named collection of verdict test cases.
type Scenario struct {
	Name    string `yaml:"name"`
	Catalog string `yaml:"catalog,omitempty"`
	Cases   []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
