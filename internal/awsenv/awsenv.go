// Package awsenv reports on the AWS environment the gateway runs in:
// configured profiles, known regions, credential state, and account
// identity. It backs the aws://config/* MCP resources.
//
// Account identity is retrieved by running the AWS CLI through the
// execution engine rather than an SDK, so the same validation and bounding
// applies to these lookups as to client commands.
package awsenv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/awsgate/awsgate/internal/executor"
	"github.com/awsgate/awsgate/internal/log"
)

// Region describes one AWS region.
type Region struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Current     bool   `json:"is_current"`
}

// Environment describes the active AWS configuration.
type Environment struct {
	Profile           string `json:"aws_profile"`
	Region            string `json:"aws_region"`
	HasCredentials    bool   `json:"has_credentials"`
	CredentialsSource string `json:"credentials_source"`
}

// Account describes the AWS account the current credentials resolve to.
// Fields are empty when the lookup fails; the gateway serves what it can.
type Account struct {
	AccountID    string `json:"account_id"`
	AccountAlias string `json:"account_alias"`
}

// Env answers environment queries. Zero-value awsDir means ~/.aws.
type Env struct {
	exec   *executor.Executor
	logger log.Logger
	awsDir string
}

// New creates an Env backed by the given executor for account lookups.
func New(exec *executor.Executor, logger log.Logger) *Env {
	return &Env{exec: exec, logger: logger}
}

// Profiles lists profile names found in the AWS config and credentials
// files. "default" is always present and always first.
func (e *Env) Profiles() []string {
	profiles := map[string]struct{}{}

	for _, file := range []string{"config", "credentials"} {
		path := filepath.Join(e.dir(), file)
		for _, section := range iniSections(path, e.logger) {
			// Config-file sections are "profile xyz"; credentials-file
			// sections are bare names.
			name := strings.TrimSpace(strings.TrimPrefix(section, "profile "))
			if name != "" && name != "default" {
				profiles[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(profiles)+1)
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{"default"}, names...)
}

// Regions returns the known region table with the current region flagged.
func (e *Env) Regions() []Region {
	current := currentRegion()
	regions := make([]Region, 0, len(regionDescriptions))
	for name, description := range regionDescriptions {
		regions = append(regions, Region{
			Name:        name,
			Description: description,
			Current:     name == current,
		})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
	return regions
}

// Current reports the active profile, region, and credential state.
func (e *Env) Current() Environment {
	env := Environment{
		Profile:           currentProfile(),
		Region:            currentRegion(),
		CredentialsSource: "none",
	}

	switch {
	case os.Getenv("AWS_ACCESS_KEY_ID") != "" && os.Getenv("AWS_SECRET_ACCESS_KEY") != "":
		env.HasCredentials = true
		env.CredentialsSource = "environment"
	case e.profileHasCredentials(env.Profile):
		env.HasCredentials = true
		env.CredentialsSource = "profile"
	}

	return env
}

// Account resolves account id and alias via STS and IAM CLI calls. Both
// lookups are best-effort; failures are logged and leave fields empty.
func (e *Env) Account(ctx context.Context) Account {
	var account Account
	if e.exec == nil {
		return account
	}

	if result, err := e.exec.Execute(ctx, "aws sts get-caller-identity --output json", 0); err == nil && result.Status == executor.StatusSuccess {
		var identity struct {
			Account string `json:"Account"`
		}
		if jsonErr := json.Unmarshal([]byte(result.Output), &identity); jsonErr == nil {
			account.AccountID = identity.Account
		}
	} else {
		e.logger.Debug("account id lookup failed", "error", err)
	}

	if account.AccountID == "" {
		return account
	}

	if result, err := e.exec.Execute(ctx, "aws iam list-account-aliases --output json", 0); err == nil && result.Status == executor.StatusSuccess {
		var aliases struct {
			AccountAliases []string `json:"AccountAliases"`
		}
		if jsonErr := json.Unmarshal([]byte(result.Output), &aliases); jsonErr == nil && len(aliases.AccountAliases) > 0 {
			account.AccountAlias = aliases.AccountAliases[0]
		}
	} else {
		e.logger.Debug("account alias lookup failed", "error", err)
	}

	return account
}

func (e *Env) dir() string {
	if e.awsDir != "" {
		return e.awsDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws")
}

// profileHasCredentials reports whether the credentials file has a section
// for the profile.
func (e *Env) profileHasCredentials(profile string) bool {
	path := filepath.Join(e.dir(), "credentials")
	for _, section := range iniSections(path, e.logger) {
		if strings.EqualFold(section, profile) {
			return true
		}
	}
	return false
}

// iniSections returns the section names of an INI file, or nil when the
// file is absent or unreadable.
func iniSections(path string, logger log.Logger) []string {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		logger.Warn("unreadable AWS config file", "path", path, "error", err)
		return nil
	}

	var sections []string
	for key, value := range v.AllSettings() {
		// INI sections come back as nested maps; scalar keys belong to
		// the unnamed default section.
		if _, ok := value.(map[string]any); ok {
			sections = append(sections, key)
		}
	}
	return sections
}

func currentProfile() string {
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		return profile
	}
	return "default"
}

func currentRegion() string {
	if region := os.Getenv("AWS_REGION"); region != "" {
		return region
	}
	if region := os.Getenv("AWS_DEFAULT_REGION"); region != "" {
		return region
	}
	return "us-east-1"
}
