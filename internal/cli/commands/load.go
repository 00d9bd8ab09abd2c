package commands

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/backport/internal/backport/rules"
	"github.com/conduit-lang/backport/internal/cli/config"
	"github.com/conduit-lang/backport/internal/logging"
)

// loadRuleSet reads the rule files and puts the --replace-type rules in
// front, so that they win over rules from files.
func loadRuleSet(files, replaceTypes []string) (*rules.Set, error) {
	set, err := rules.LoadFiles(files)
	if err != nil {
		return nil, err
	}

	var flagRules []rules.TypeRule
	for _, value := range replaceTypes {
		rule, err := rules.ParseTypeFlag(value)
		if err != nil {
			return nil, fmt.Errorf("invalid --replace-type: %w", err)
		}
		flagRules = append(flagRules, rule)
	}
	set.Types = append(flagRules, set.Types...)
	return set, nil
}

// newLogger builds the logger from the --verbose flag and the log section
// of the configuration.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	opts := logging.Options{Verbose: verbose}
	if cfg != nil {
		opts.Verbose = opts.Verbose || cfg.Log.Verbose
		opts.JSON = cfg.Log.JSON
	}
	return logging.New(opts)
}

// withConfig returns the configured values followed by the flag values
func withConfig(configured, flags []string) []string {
	return append(append([]string(nil), configured...), flags...)
}
