package security

// ValidationError reports a command that failed validation before any
// process was spawned. All validation outcomes — structural problems,
// security denials, and pipeline stage rejections — share this type so the
// gateway handles them uniformly; the message text distinguishes them
// ("must start with", "restricted for security reasons", "not allowed").
type ValidationError struct {
	Message string

	// denial is true when the error came from the security rule tables
	// rather than structural checks. Only these are relaxed in
	// permissive mode.
	denial bool
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsSecurityDenial reports whether the error is a rule-table denial as
// opposed to a structural or pipeline-stage failure.
func (e *ValidationError) IsSecurityDenial() bool {
	return e.denial
}

func structuralError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func denialError(msg string) *ValidationError {
	return &ValidationError{Message: msg, denial: true}
}
