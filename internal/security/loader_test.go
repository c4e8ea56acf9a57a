package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/awsgate/awsgate/internal/log"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoaderDefaults(t *testing.T) {
	l := NewLoader("", log.NewNop())
	p := l.Policy()
	if p == nil {
		t.Fatal("Policy() = nil after initial load")
	}
	if len(p.DangerousCommands["iam"]) == 0 {
		t.Error("built-in iam dangerous commands missing")
	}
	if len(p.SafePatterns["s3"]) == 0 {
		t.Error("built-in s3 safe patterns missing")
	}
	if len(p.Rules[GeneralRuleCategory]) == 0 {
		t.Error("built-in general rules missing")
	}
}

func TestLoaderMissingFileFallsBack(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.yaml"), log.NewNop())
	p := l.Policy()
	if p == nil {
		t.Fatal("Policy() = nil")
	}
	// Defaults still apply.
	if len(p.DangerousCommands["iam"]) == 0 {
		t.Error("defaults missing after failed file load")
	}
}

func TestLoaderMalformedFileFallsBack(t *testing.T) {
	path := writePolicyFile(t, "dangerous_commands: [not, a, map")
	l := NewLoader(path, log.NewNop())
	p := l.Policy()
	if p == nil {
		t.Fatal("Policy() = nil")
	}
	if len(p.DangerousCommands["iam"]) == 0 {
		t.Error("defaults missing after malformed file load")
	}
}

func TestLoaderMergesFileEntries(t *testing.T) {
	path := writePolicyFile(t, `
dangerous_commands:
  lambda:
    - "aws lambda delete-function"
  iam:
    - "aws iam delete-role"
safe_patterns:
  lambda:
    - "aws lambda list-"
rules:
  lambda:
    - pattern: "--function-name\\s+prod-"
      description: "protects production functions"
      error_message: "Production Lambda functions may not be modified"
      regex: true
`)
	l := NewLoader(path, log.NewNop())
	p := l.Policy()

	if got := p.DangerousCommands["lambda"]; len(got) != 1 || got[0] != "aws lambda delete-function" {
		t.Errorf("lambda dangerous commands = %#v", got)
	}

	// File entries extend the defaults for an existing service.
	defaults := len(defaultPolicy().DangerousCommands["iam"])
	if got := len(p.DangerousCommands["iam"]); got != defaults+1 {
		t.Errorf("iam dangerous commands = %d entries, want %d", got, defaults+1)
	}

	if got := p.SafePatterns["lambda"]; len(got) != 1 {
		t.Errorf("lambda safe patterns = %#v", got)
	}

	rules := p.Rules["lambda"]
	if len(rules) != 1 {
		t.Fatalf("lambda rules = %#v", rules)
	}
	if rules[0].compiled == nil {
		t.Error("merged regex rule not compiled")
	}

	// The merged tables drive validation.
	v := NewValidator(l, ModeStrict, log.NewNop())
	if err := v.ValidateCommand("aws lambda delete-function --function-name f"); err == nil {
		t.Error("merged dangerous command not denied")
	}
	if err := v.ValidateCommand("aws lambda list-functions"); err != nil {
		t.Errorf("merged safe pattern denied: %v", err)
	}
	if err := v.ValidateCommand("aws lambda update-function-code --function-name prod-api"); err == nil {
		t.Error("merged regex rule not applied")
	}
}

func TestLoaderDropsInvalidRegex(t *testing.T) {
	path := writePolicyFile(t, `
rules:
  general:
    - pattern: "([unclosed"
      error_message: "never applies"
      regex: true
`)
	l := NewLoader(path, log.NewNop())

	defaults := len(defaultPolicy().Rules[GeneralRuleCategory])
	if got := len(l.Policy().Rules[GeneralRuleCategory]); got != defaults {
		t.Errorf("general rules = %d, want %d (invalid rule dropped)", got, defaults)
	}
}

func TestLoaderReloadSwapsSnapshot(t *testing.T) {
	path := writePolicyFile(t, `
dangerous_commands:
  sns:
    - "aws sns delete-topic"
`)
	l := NewLoader(path, log.NewNop())
	before := l.Policy()
	if len(before.DangerousCommands["sns"]) != 1 {
		t.Fatalf("sns dangerous commands = %#v", before.DangerousCommands["sns"])
	}

	if err := os.WriteFile(path, []byte(`
dangerous_commands:
  sns:
    - "aws sns delete-topic"
    - "aws sns remove-permission"
`), 0o600); err != nil {
		t.Fatal(err)
	}

	l.Reload()
	after := l.Policy()
	if after == before {
		t.Error("Reload did not install a new snapshot")
	}
	if len(after.DangerousCommands["sns"]) != 2 {
		t.Errorf("sns dangerous commands after reload = %#v", after.DangerousCommands["sns"])
	}
}
