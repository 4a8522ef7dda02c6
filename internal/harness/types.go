package harness

// OutcomeOK is the trace outcome of a successful step.
const OutcomeOK = "OK"

// TraceEvent records one executed step.
type TraceEvent struct {
	Step     int      `json:"step"`
	Function string   `json:"function"`
	Caller   string   `json:"caller"`
	Args     []string `json:"args"`
	TxID     string   `json:"tx_id,omitempty"`

	// Outcome is OutcomeOK or the failure kind.
	Outcome string `json:"outcome"`

	Payload string `json:"payload,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order, setup included.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	Errors []string `json:"errors,omitempty"`

	// StateDigest is the world-state digest after the last step.
	StateDigest string `json:"state_digest"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	event.Step = len(r.Trace) + 1
	if event.Args == nil {
		event.Args = []string{}
	}
	r.Trace = append(r.Trace, event)
}
