package harness

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// TraceEvent is one audit record as it appears in a trace.
// Invocation events carry Kind, Action, Sender and Args; completion events
// carry Outcome and, for successes, Result.
type TraceEvent struct {
	Type    string         `json:"type"`
	Seq     int64          `json:"seq"`
	Kind    string         `json:"kind,omitempty"`
	Action  string         `json:"action,omitempty"`
	Sender  string         `json:"sender,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome,omitempty"`
	Result  map[string]any `json:"result,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation, final check and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the audit log in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed check.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
