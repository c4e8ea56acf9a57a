package security

import (
	"strings"
	"testing"

	"github.com/awsgate/awsgate/internal/log"
)

// testLoader builds a Loader holding the given policy without touching the
// filesystem.
func testLoader(t *testing.T, policy *Policy) *Loader {
	t.Helper()
	l := &Loader{logger: log.NewNop()}
	policy.compile(log.NewNop())
	l.policy.Store(policy)
	return l
}

func defaultTestValidator(t *testing.T, mode Mode) *Validator {
	t.Helper()
	return NewValidator(testLoader(t, defaultPolicy()), mode, log.NewNop())
}

func TestValidateCommandStructural(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantMsg string
	}{
		{"empty command", "", "Empty command"},
		{"blank command", "   ", "Empty command"},
		{"wrong program", "ls -la", "must start with 'aws'"},
		{"missing service", "aws", "must include an AWS service"},
	}

	// Structural failures block in every mode.
	for _, mode := range []Mode{ModeStrict, ModePermissive} {
		v := defaultTestValidator(t, mode)
		for _, tt := range tests {
			t.Run(string(mode)+"/"+tt.name, func(t *testing.T) {
				err := v.ValidateCommand(tt.command)
				if err == nil {
					t.Fatalf("ValidateCommand(%q) = nil, want structural error", tt.command)
				}
				verr, ok := err.(*ValidationError)
				if !ok {
					t.Fatalf("error type = %T, want *ValidationError", err)
				}
				if verr.IsSecurityDenial() {
					t.Errorf("structural failure flagged as security denial")
				}
				if !strings.Contains(verr.Message, tt.wantMsg) {
					t.Errorf("message %q does not contain %q", verr.Message, tt.wantMsg)
				}
			})
		}
	}
}

func TestValidateCommandDangerousAndSafe(t *testing.T) {
	policy := &Policy{
		DangerousCommands: map[string][]string{
			"iam": {"aws iam create-user"},
		},
		SafePatterns: map[string][]string{
			"iam": {"aws iam create-user --help"},
		},
		Rules: map[string][]Rule{},
	}
	v := NewValidator(testLoader(t, policy), ModeStrict, log.NewNop())

	t.Run("dangerous prefix denied", func(t *testing.T) {
		err := v.ValidateCommand("aws iam create-user --user-name test")
		if err == nil {
			t.Fatal("expected denial")
		}
		if !strings.Contains(err.Error(), "restricted for security reasons") {
			t.Errorf("message %q missing restriction wording", err.Error())
		}
		if !err.(*ValidationError).IsSecurityDenial() {
			t.Error("denial not flagged as security denial")
		}
	})

	t.Run("safe pattern overrides dangerous prefix", func(t *testing.T) {
		if err := v.ValidateCommand("aws iam create-user --help"); err != nil {
			t.Errorf("expected override to allow, got %v", err)
		}
	})

	t.Run("service without dangerous prefixes allowed", func(t *testing.T) {
		if err := v.ValidateCommand("aws sts get-caller-identity"); err != nil {
			t.Errorf("expected allow, got %v", err)
		}
	})

	t.Run("read-only command on restricted service allowed", func(t *testing.T) {
		if err := v.ValidateCommand("aws iam list-users"); err != nil {
			t.Errorf("expected allow, got %v", err)
		}
	})
}

func TestValidateCommandWhitespaceNormalization(t *testing.T) {
	v := defaultTestValidator(t, ModeStrict)

	// Extra whitespace between tokens must not change the classification:
	// the executor runs the tokenized argv, which is identical for all of
	// these spellings.
	denied := []string{
		"aws iam  create-user --user-name x",
		"aws  iam create-user --user-name x",
		"aws iam\tcreate-user --user-name x",
		"aws   iam   create-user   --user-name   x",
	}
	for _, command := range denied {
		err := v.ValidateCommand(command)
		if err == nil {
			t.Errorf("ValidateCommand(%q) = nil, want denial", command)
			continue
		}
		if !strings.Contains(err.Error(), "restricted for security reasons") {
			t.Errorf("ValidateCommand(%q) = %v, want restriction message", command, err)
		}
	}

	// Safe patterns normalize the same way.
	allowed := []string{
		"aws iam  list-users",
		"aws  ec2  describe-instances",
	}
	for _, command := range allowed {
		if err := v.ValidateCommand(command); err != nil {
			t.Errorf("ValidateCommand(%q) = %v, want allow", command, err)
		}
	}

	// Quoting an argument must not hide it from a regex rule.
	if err := v.ValidateCommand(`aws s3 ls --profile "root"`); err == nil {
		t.Error(`quoted sensitive profile slipped past the regex rules`)
	}
}

func TestValidateCommandRegexRules(t *testing.T) {
	policy := &Policy{
		DangerousCommands: map[string][]string{},
		SafePatterns: map[string][]string{
			// A safe pattern must not override a regex rule.
			"s3": {"aws s3 ls"},
		},
		Rules: map[string][]Rule{
			GeneralRuleCategory: {
				{
					Pattern:      `--profile\s+(root|admin)\b`,
					ErrorMessage: "Using sensitive profiles is not permitted",
					Regex:        true,
				},
			},
			"s3": {
				{
					Pattern:      "--force",
					ErrorMessage: "Forced S3 operations are not permitted",
				},
			},
		},
	}
	v := NewValidator(testLoader(t, policy), ModeStrict, log.NewNop())

	tests := []struct {
		name    string
		command string
		wantErr string
	}{
		{"general regex rule", "aws s3 ls --profile root", "sensitive profiles"},
		{"regex beats safe pattern", "aws s3 ls --profile admin", "sensitive profiles"},
		{"service literal rule", "aws s3 rm s3://bucket --force", "Forced S3 operations"},
		{"clean command allowed", "aws s3 ls --profile dev", ""},
		{"rule of other service ignored", "aws ec2 describe-instances --force", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCommand(tt.command)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected allow, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want message containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommandPermissiveMode(t *testing.T) {
	v := defaultTestValidator(t, ModePermissive)

	// Security denials are relaxed to warnings.
	if err := v.ValidateCommand("aws iam create-user --user-name test"); err != nil {
		t.Errorf("permissive mode should allow denied command, got %v", err)
	}

	// Structural failures still block.
	if err := v.ValidateCommand("rm -rf /"); err == nil {
		t.Error("permissive mode should still reject non-aws command")
	}
}

func TestValidatePipeline(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr string
	}{
		{"single command delegates", "aws s3 ls", ""},
		{"allowed utility stage", "aws s3 ls | grep bucket", ""},
		{"chained utilities", "aws ec2 describe-instances | grep running | wc -l", ""},
		{"sudo not allowed", "aws s3 ls | sudo", "not allowed"},
		{"aws not allowed as later stage", "aws s3 ls | aws iam create-user", "not allowed"},
		{"empty stage between pipes", "aws s3 ls || grep x", "Empty command at position 1"},
		{"trailing pipe", "aws s3 ls |", "Empty command at position 1"},
		{"first stage validated fully", "ls | grep x", "must start with 'aws'"},
		{"dangerous first stage denied", "aws iam create-user --user-name x | grep x", "restricted for security reasons"},
	}

	v := defaultTestValidator(t, ModeStrict)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePipeline(tt.command)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected allow, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want message containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePipelinePermissiveKeepsStageChecks(t *testing.T) {
	v := defaultTestValidator(t, ModePermissive)

	// The stage allow-list is not a security denial; permissive mode must
	// not relax it.
	if err := v.ValidatePipeline("aws s3 ls | sudo"); err == nil {
		t.Error("permissive mode should still reject disallowed pipeline stage")
	}

	// A denied primary stage is relaxed, the rest of the pipeline still
	// has to be well-formed.
	if err := v.ValidatePipeline("aws iam create-user --user-name x | grep x"); err != nil {
		t.Errorf("permissive mode should allow denied primary stage, got %v", err)
	}
}
