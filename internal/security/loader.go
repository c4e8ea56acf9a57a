package security

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/viper"

	"github.com/awsgate/awsgate/internal/log"
)

// Loader owns the process-wide policy snapshot. It loads the built-in
// defaults, optionally extends them from a YAML policy file, and installs
// the result behind an atomic pointer so concurrent readers never observe a
// half-updated table. Reload re-runs the same procedure and swaps the
// snapshot.
//
// A missing or malformed policy file is never fatal: the defaults apply and
// a warning is logged. That keeps the gateway serving even when operators
// ship a broken policy, at the cost of running with the shipped tables.
type Loader struct {
	path   string
	logger log.Logger
	policy atomic.Pointer[Policy]
}

// NewLoader creates a Loader and performs the initial load. path may be
// empty, in which case only the built-in defaults are used.
func NewLoader(path string, logger log.Logger) *Loader {
	l := &Loader{path: path, logger: logger}
	l.Reload()
	return l
}

// Policy returns the current immutable snapshot.
func (l *Loader) Policy() *Policy {
	return l.policy.Load()
}

// Reload re-runs the load procedure and atomically installs the new
// snapshot. It never fails; file problems fall back to defaults.
func (l *Loader) Reload() {
	policy := defaultPolicy()

	if l.path != "" {
		if err := mergeFromFile(policy, l.path); err != nil {
			l.logger.Warn("failed to load security policy file, using built-in defaults",
				"path", l.path,
				"error", err)
			policy = defaultPolicy()
		} else {
			l.logger.Info("loaded security policy file", "path", l.path)
		}
	}

	policy.compile(l.logger)
	l.policy.Store(policy)
}

// mergeFromFile reads the YAML policy file at path and appends its entries
// to the default tables. File entries extend the defaults rather than
// replacing them, so a policy file can only add restrictions or overrides.
func mergeFromFile(policy *Policy, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat policy file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading policy file: %w", err)
	}

	var file Policy
	if err := v.Unmarshal(&file); err != nil {
		return fmt.Errorf("parsing policy file: %w", err)
	}

	for service, prefixes := range file.DangerousCommands {
		policy.DangerousCommands[service] = append(policy.DangerousCommands[service], prefixes...)
	}
	for service, prefixes := range file.SafePatterns {
		policy.SafePatterns[service] = append(policy.SafePatterns[service], prefixes...)
	}
	for category, rules := range file.Rules {
		policy.Rules[category] = append(policy.Rules[category], rules...)
	}

	return nil
}
