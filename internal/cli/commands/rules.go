package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/backport/internal/backport/pattern"
	"github.com/conduit-lang/backport/internal/backport/replace"
	"github.com/conduit-lang/backport/internal/backport/rules"
	"github.com/conduit-lang/backport/internal/classpool"
	"github.com/conduit-lang/backport/internal/cli/config"
	"github.com/conduit-lang/backport/internal/cli/ui"
	"github.com/conduit-lang/backport/internal/diagnostics"
)

var (
	rulesLibs         []string
	rulesFiles        []string
	rulesReplaceTypes []string
	rulesJSON         bool
)

// NewRulesCommand creates the rules command
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect replacement rules",
	}
	cmd.AddCommand(NewRulesCheckCommand())
	return cmd
}

// ruleStatus is one line of the check result
type ruleStatus struct {
	Kind        string                  `json:"kind"`
	Rule        string                  `json:"rule"`
	Valid       bool                    `json:"valid"`
	Diagnostic  *diagnostics.Diagnostic `json:"diagnostic,omitempty"`
	Suggestions []string                `json:"suggestions,omitempty"`
}

// NewRulesCheckCommand creates the rules check command
func NewRulesCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [program]...",
		Short: "Compile the rules and show which ones would be dropped",
		Long: `Compile every rule against the library and optional program classes.

A rule is dropped when its pattern or template does not compile, or when
its replacement names a class that exists neither in the program nor in
the library. The command fails if any rule would be dropped.`,
		Example: `  # Check the rules of backport.yml against the backport library
  backport rules check --lib threetenbp.jar

  # Check a single rule file, including program classes as targets
  backport rules check build/classes --rules rules.yml --lib rt.jar`,
		RunE: runRulesCheck,
	}

	cmd.Flags().StringSliceVar(&rulesLibs, "lib", nil, "Library classes: directory, jar or class file (repeatable)")
	cmd.Flags().StringSliceVar(&rulesFiles, "rules", nil, "Rule file (repeatable)")
	cmd.Flags().StringArrayVar(&rulesReplaceTypes, "replace-type", nil, "Type rule as match=replace (repeatable)")
	cmd.Flags().BoolVar(&rulesJSON, "json", false, "Print the result as JSON")

	return cmd
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	set, err := loadRuleSet(withConfig(cfg.Rules, rulesFiles), rulesReplaceTypes)
	if err != nil {
		return err
	}

	classes, _, err := classpool.Load(withConfig(withConfig(cfg.Libraries, rulesLibs), args)...)
	if err != nil {
		return fmt.Errorf("failed to load classes: %w", err)
	}

	statuses := checkRules(set, classes)

	dropped := 0
	for _, s := range statuses {
		if !s.Valid {
			dropped++
		}
	}

	if rulesJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		printRuleStatuses(cmd, statuses)
	}

	if dropped > 0 {
		return fmt.Errorf("%d of %d rule(s) would be dropped", dropped, len(statuses))
	}
	return nil
}

// checkRules compiles each rule on its own so that every diagnostic can be
// paired with the rule that caused it.
func checkRules(set *rules.Set, classes *classpool.ClassPool) []ruleStatus {
	var names []string
	for _, c := range classes.Classes() {
		names = append(names, c.Name())
	}

	var out []ruleStatus
	check := func(kind, rule, target string, types []rules.TypeRule, methods []rules.MethodRule) {
		collector := diagnostics.NewCollector()
		replace.New(types, methods, classes, collector)

		status := ruleStatus{Kind: kind, Rule: rule, Valid: collector.Len() == 0}
		if !status.Valid {
			d := collector.Diagnostics()[0]
			status.Diagnostic = &d
			if d.Code == diagnostics.ConfigInvalidTarget && target != "" && !pattern.HasWildcards(target) {
				status.Suggestions = ui.SuggestClasses(target, names)
			}
		}
		out = append(out, status)
	}

	for _, r := range set.Types {
		check("type", r.String(), r.Replace, []rules.TypeRule{r}, nil)
	}
	for _, r := range set.Methods {
		check("method", r.String(), r.ReplacementClass, nil, []rules.MethodRule{r})
	}
	return out
}

func printRuleStatuses(cmd *cobra.Command, statuses []ruleStatus) {
	out := cmd.OutOrStdout()
	if len(statuses) == 0 {
		ui.WriteError(out, ui.ErrorOptions{
			Level:   ui.ErrorLevelInfo,
			Problem: "No rules configured",
			NoColor: noColor,
		})
		return
	}

	table := ui.NewTable(out, []string{"KIND", "RULE", "STATUS"}, &ui.TableOptions{NoColor: noColor})
	for _, s := range statuses {
		state := "ok"
		if !s.Valid {
			state = "dropped (" + s.Diagnostic.Code + ")"
		}
		table.AddRow(s.Kind, s.Rule, state)
	}
	table.Render()

	for _, s := range statuses {
		if s.Valid {
			continue
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, ui.RuleError(s.Rule, s.Diagnostic.Message, s.Suggestions, noColor))
	}
}
