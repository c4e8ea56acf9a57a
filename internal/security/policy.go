// Package security classifies AWS CLI commands as allowed or denied before
// the execution engine ever sees them.
//
// Three rule tables drive classification, evaluated in a fixed order:
//
//  1. Regex rules — context-sensitive prohibitions that prefix matching
//     cannot express (sensitive profiles, world-open ingress). A "general"
//     category always applies; a per-service category applies additionally.
//  2. Dangerous prefixes — literal command-start strings per service that
//     require an override to run.
//  3. Safe patterns — literal command-start strings that override a
//     dangerous match (read-only verbs, help invocations).
//
// The tables ship with built-in defaults and may be extended from a YAML
// policy file; see Loader. The validator composes the tables with the
// tokenizer to validate single commands and pipelines.
package security

import (
	"regexp"
	"strings"

	"github.com/awsgate/awsgate/internal/log"
)

// Mode controls whether a security denial actually blocks execution.
type Mode string

const (
	// ModeStrict blocks every denied command. Default.
	ModeStrict Mode = "strict"
	// ModePermissive logs denied commands and lets them run. Structural
	// failures and pipeline stage rejections still block.
	ModePermissive Mode = "permissive"
)

// Rule is a single validation rule. Regex rules are compiled once at load
// time; literal rules match by substring.
type Rule struct {
	Pattern      string `mapstructure:"pattern"`
	Description  string `mapstructure:"description"`
	ErrorMessage string `mapstructure:"error_message"`
	Regex        bool   `mapstructure:"regex"`

	compiled *regexp.Regexp
}

// matches reports whether the rule applies to the command. A regex rule
// whose pattern failed to compile never matches; those are dropped with a
// warning at load time, so compiled is always set here when Regex is true.
func (r *Rule) matches(command string) bool {
	if r.Regex {
		return r.compiled != nil && r.compiled.MatchString(command)
	}
	return r.Pattern != "" && strings.Contains(command, r.Pattern)
}

// Policy is an immutable snapshot of the three rule tables. Readers obtain
// a snapshot from Loader.Policy and never mutate it; Reload installs a new
// snapshot atomically.
type Policy struct {
	// DangerousCommands maps an AWS service to command prefixes that are
	// denied unless a safe pattern overrides them.
	DangerousCommands map[string][]string `mapstructure:"dangerous_commands"`

	// SafePatterns maps an AWS service to command prefixes that override
	// a dangerous match.
	SafePatterns map[string][]string `mapstructure:"safe_patterns"`

	// Rules maps a category ("general" or a service name) to regex and
	// literal rules.
	Rules map[string][]Rule `mapstructure:"rules"`
}

// GeneralRuleCategory is the rule category applied to every command
// regardless of service.
const GeneralRuleCategory = "general"

// compile compiles every regex rule in the policy, dropping rules whose
// patterns do not compile. The load procedure fails fast on bad rules
// instead of crashing per classification call.
func (p *Policy) compile(logger log.Logger) {
	for category, rules := range p.Rules {
		kept := rules[:0]
		for _, rule := range rules {
			if rule.Regex {
				re, err := regexp.Compile(rule.Pattern)
				if err != nil {
					logger.Warn("dropping security rule with invalid pattern",
						"category", category,
						"pattern", rule.Pattern,
						"error", err)
					continue
				}
				rule.compiled = re
			}
			kept = append(kept, rule)
		}
		p.Rules[category] = kept
	}
}

// defaultPolicy returns the built-in rule tables. The content is policy,
// not mechanism: deployments tighten or relax it through the policy file.
func defaultPolicy() *Policy {
	return &Policy{
		DangerousCommands: map[string][]string{
			"iam": {
				"aws iam create-user",
				"aws iam create-access-key",
				"aws iam attach-user-policy",
				"aws iam attach-role-policy",
				"aws iam put-user-policy",
				"aws iam create-login-profile",
				"aws iam update-login-profile",
				"aws iam deactivate-mfa-device",
			},
			"ec2": {
				"aws ec2 terminate-instances",
				"aws ec2 delete-vpc",
				"aws ec2 delete-security-group",
			},
			"s3": {
				"aws s3 rb",
				"aws s3api delete-bucket",
				"aws s3api put-bucket-policy",
				"aws s3api put-bucket-acl",
			},
			"rds": {
				"aws rds delete-db-instance",
				"aws rds delete-db-cluster",
			},
			"dynamodb": {
				"aws dynamodb delete-table",
			},
			"cloudtrail": {
				"aws cloudtrail delete-trail",
				"aws cloudtrail stop-logging",
			},
			"kms": {
				"aws kms schedule-key-deletion",
				"aws kms disable-key",
			},
		},
		SafePatterns: map[string][]string{
			"iam": {
				"aws iam get-",
				"aws iam list-",
				"aws iam generate-credential-report",
			},
			"ec2": {
				"aws ec2 describe-",
				"aws ec2 get-",
			},
			"s3": {
				"aws s3 ls",
				"aws s3api get-",
				"aws s3api list-",
				"aws s3api head-",
			},
			"rds": {
				"aws rds describe-",
			},
			"dynamodb": {
				"aws dynamodb describe-",
				"aws dynamodb list-",
			},
			"cloudtrail": {
				"aws cloudtrail describe-",
				"aws cloudtrail get-",
				"aws cloudtrail list-",
				"aws cloudtrail lookup-events",
			},
			"kms": {
				"aws kms describe-",
				"aws kms list-",
			},
		},
		Rules: map[string][]Rule{
			GeneralRuleCategory: {
				{
					Pattern:      `--profile\s+(root|admin|administrator)\b`,
					Description:  "prevents use of sensitive account profiles",
					ErrorMessage: "Using sensitive profiles (root, admin, administrator) is not permitted",
					Regex:        true,
				},
			},
			"ec2": {
				{
					Pattern:      `aws\s+ec2\s+authorize-security-group-ingress.*--cidr\s+0\.0\.0\.0/0.*--port\s+(?:22|23|3306|3389|5432|6379|27017)\b`,
					Description:  "prevents opening sensitive ports to the world",
					ErrorMessage: "Opening non-web ports to 0.0.0.0/0 is not permitted",
					Regex:        true,
				},
			},
			"s3": {
				{
					Pattern:      `aws\s+s3api\s+put-bucket-acl.*--acl\s+public-(read|read-write)`,
					Description:  "prevents making buckets world readable",
					ErrorMessage: "Setting public bucket ACLs is not permitted",
					Regex:        true,
				},
				{
					Pattern:      `aws\s+s3api\s+put-public-access-block.*--public-access-block-configuration\s+.*false`,
					Description:  "prevents disabling public access blocks",
					ErrorMessage: "Disabling S3 public access blocks is not permitted",
					Regex:        true,
				},
			},
		},
	}
}
