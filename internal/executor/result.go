package executor

// Status tags a Result as success or error. The two are mutually exclusive
// in meaning: an error Result carries a human-readable diagnostic in Output,
// never command stdout.
type Status string

const (
	// StatusSuccess means the child process exited zero; Output holds its
	// (possibly truncated) stdout.
	StatusSuccess Status = "success"
	// StatusError means the invocation failed in a way that is the child
	// process's fault: non-zero exit, timeout, or an authentication
	// failure. Output holds the diagnostic.
	StatusError Status = "error"
)

// Result is the structured outcome of every execution path.
type Result struct {
	Status Status `json:"status"`
	Output string `json:"output"`
}

// HelpResult carries AWS CLI help text. Errors while retrieving help are
// folded into HelpText rather than surfaced as errors; help is best-effort.
type HelpResult struct {
	HelpText string `json:"help_text"`
}

// ExecutionError reports an engine-internal malfunction: the process could
// not be spawned, or orchestration failed before a process-level outcome was
// available. It is distinct from Result so the gateway can tell "your
// command failed" apart from "the engine itself broke". Child-process
// failures are never reported this way.
type ExecutionError struct {
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
