package security

import (
	"fmt"
	"strings"

	"github.com/awsgate/awsgate/internal/log"
	"github.com/awsgate/awsgate/internal/shellsplit"
)

// CLIName is the only program the gateway will execute as the primary
// command of an invocation.
const CLIName = "aws"

// allowedUnixCommands lists the auxiliary utilities permitted in pipeline
// stages after the first. The privileged CLI itself is deliberately absent:
// a dangerous primary command must not be disguised as a later stage.
var allowedUnixCommands = map[string]struct{}{
	// File operations
	"cat": {}, "ls": {}, "cd": {}, "pwd": {}, "cp": {}, "mv": {},
	"mkdir": {}, "touch": {}, "chmod": {}, "chown": {},
	// Text processing
	"grep": {}, "sed": {}, "awk": {}, "cut": {}, "sort": {}, "uniq": {},
	"wc": {}, "head": {}, "tail": {}, "tr": {}, "find": {},
	// System information
	"ps": {}, "top": {}, "df": {}, "du": {}, "uname": {}, "whoami": {},
	"date": {}, "which": {}, "echo": {},
	// Networking
	"ping": {}, "netstat": {}, "curl": {}, "wget": {}, "dig": {}, "nslookup": {},
	// Other utilities
	"man": {}, "less": {}, "tar": {}, "gzip": {}, "gunzip": {},
	"zip": {}, "unzip": {}, "xargs": {}, "jq": {}, "tee": {},
}

// IsAllowedUnixCommand reports whether program may appear as a non-primary
// pipeline stage.
func IsAllowedUnixCommand(program string) bool {
	_, ok := allowedUnixCommands[program]
	return ok
}

// Validator classifies commands against the current policy snapshot. It is
// safe for concurrent use; all state lives in the Loader's snapshot.
type Validator struct {
	loader *Loader
	mode   Mode
	logger log.Logger
}

// NewValidator creates a Validator. mode decides whether security denials
// block (strict) or are logged and allowed (permissive).
func NewValidator(loader *Loader, mode Mode, logger log.Logger) *Validator {
	return &Validator{loader: loader, mode: mode, logger: logger}
}

// Mode returns the operating mode the validator was built with.
func (v *Validator) Mode() Mode {
	return v.mode
}

// ValidateCommand validates a single (non-piped) AWS CLI command. A nil
// return means the command may execute. The returned error is always a
// *ValidationError; no process is spawned on any validation path.
func (v *Validator) ValidateCommand(command string) error {
	verr := v.classify(command)
	if verr == nil {
		return nil
	}

	// Permissive mode relaxes security denials only. Structural failures
	// (wrong program, missing service) still block: a malformed command
	// is broken in any mode. The warning line is the audit trail for the
	// override.
	if verr.IsSecurityDenial() && v.mode == ModePermissive {
		v.logger.Warn("security denial overridden by permissive mode",
			"command", command,
			"reason", verr.Message)
		return nil
	}

	return verr
}

// ValidatePipeline validates a command that may contain pipes. Stage 0 is
// validated as a full AWS CLI command; every later stage must start with an
// allowed Unix utility. Empty stages (consecutive or trailing pipes) are
// rejected before any allow-list check.
func (v *Validator) ValidatePipeline(command string) error {
	if !shellsplit.IsPipeline(command) {
		return v.ValidateCommand(command)
	}

	stages := shellsplit.SplitPipeline(command)
	if len(stages) == 0 {
		return structuralError("Empty command")
	}

	for i, stage := range stages {
		if strings.TrimSpace(stage) == "" {
			return structuralError(fmt.Sprintf("Empty command at position %d in pipeline", i))
		}

		if i == 0 {
			if err := v.ValidateCommand(stage); err != nil {
				return err
			}
			continue
		}

		tokens := shellsplit.Split(stage)
		if len(tokens) == 0 {
			return structuralError(fmt.Sprintf("Empty command at position %d in pipeline", i))
		}
		if !IsAllowedUnixCommand(tokens[0]) {
			return structuralError(fmt.Sprintf("Command '%s' is not allowed in pipelines. Only basic Unix utilities are permitted after a pipe.", tokens[0]))
		}
	}

	return nil
}

// classify runs the rule engine against a single command string. The order
// is fixed: structural checks, regex rules (general then per-service),
// dangerous prefixes, safe-pattern overrides. The first decisive rule wins.
func (v *Validator) classify(command string) *ValidationError {
	trimmed := strings.TrimSpace(command)

	tokens := shellsplit.Split(trimmed)
	if len(tokens) == 0 {
		return structuralError("Empty command")
	}
	if !strings.EqualFold(tokens[0], CLIName) {
		return structuralError(fmt.Sprintf("Commands must start with '%s'", CLIName))
	}
	if len(tokens) < 2 {
		return structuralError("Command must include an AWS service (e.g. aws s3 ls)")
	}
	service := strings.ToLower(tokens[1])

	// Prefix tables match against the normalized token join, not the raw
	// string: the executor runs the tokenized argv, so extra whitespace
	// between tokens must not change the classification.
	normalized := strings.Join(tokens, " ")

	policy := v.loader.Policy()

	// Regex rules take precedence over the prefix tables: they encode
	// context-sensitive prohibitions that no safe pattern may override.
	// Rules see both the raw text and the normalized form, so neither
	// quoting nor extra whitespace hides a match.
	for _, category := range []string{GeneralRuleCategory, service} {
		for i := range policy.Rules[category] {
			rule := &policy.Rules[category][i]
			if rule.matches(trimmed) || rule.matches(normalized) {
				return denialError(rule.ErrorMessage)
			}
		}
	}

	dangerous := policy.DangerousCommands[service]
	if len(dangerous) == 0 {
		return nil
	}

	matched := false
	for _, prefix := range dangerous {
		if strings.HasPrefix(normalized, prefix) {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}

	for _, safe := range policy.SafePatterns[service] {
		if strings.HasPrefix(normalized, safe) {
			return nil
		}
	}

	return denialError(fmt.Sprintf("Command '%s' is restricted for security reasons", trimmed))
}
