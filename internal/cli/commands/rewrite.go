package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/backport/internal/backport/descriptor"
	"github.com/conduit-lang/backport/internal/backport/replace"
	"github.com/conduit-lang/backport/internal/classfile"
	"github.com/conduit-lang/backport/internal/classpool"
	"github.com/conduit-lang/backport/internal/cli/config"
	"github.com/conduit-lang/backport/internal/diagnostics"
)

var (
	rewriteLibs         []string
	rewriteRules        []string
	rewriteReplaceTypes []string
	rewriteSignature    bool
)

// NewRewriteCommand creates the rewrite command
func NewRewriteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewrite <descriptor>...",
		Short: "Apply the type rules to descriptors or signatures",
		Long: `Print each argument with the type rules applied.

Arguments are class names, field or method descriptors, or generic
signatures with --signature. Without --lib every literal replacement
class is assumed to exist.`,
		Example: `  backport rewrite --replace-type 'java/time/**=org/threeten/bp/<1>' '(Ljava/time/Instant;)V'

  backport rewrite --signature --rules rules.yml 'Ljava/util/List<Ljava/time/LocalDate;>;'`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRewrite,
	}

	cmd.Flags().StringSliceVar(&rewriteLibs, "lib", nil, "Library classes used to validate literal targets (repeatable)")
	cmd.Flags().StringSliceVar(&rewriteRules, "rules", nil, "Rule file (repeatable)")
	cmd.Flags().StringArrayVar(&rewriteReplaceTypes, "replace-type", nil, "Type rule as match=replace (repeatable)")
	cmd.Flags().BoolVar(&rewriteSignature, "signature", false, "Treat arguments as generic signatures")

	return cmd
}

// anyClass accepts every class name
type anyClass struct{}

func (anyClass) Lookup(string) (*classfile.Class, bool) { return nil, true }

func runRewrite(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	set, err := loadRuleSet(withConfig(cfg.Rules, rewriteRules), rewriteReplaceTypes)
	if err != nil {
		return err
	}

	var classes replace.ClassLookup = anyClass{}
	if libs := withConfig(cfg.Libraries, rewriteLibs); len(libs) > 0 {
		pool, _, err := classpool.Load(libs...)
		if err != nil {
			return fmt.Errorf("failed to load libraries: %w", err)
		}
		classes = pool
	}

	printer := diagnostics.NewPrinter(cmd.ErrOrStderr(), diagnostics.PrinterOptions{NoColor: noColor})
	registry := replace.New(set.Types, nil, classes, printer)
	rewriter := descriptor.NewRewriter(registry)

	for _, arg := range args {
		switch {
		case rewriteSignature:
			fmt.Fprintln(cmd.OutOrStdout(), rewriter.RewriteSignature(arg))
		case isDescriptor(arg):
			fmt.Fprintln(cmd.OutOrStdout(), rewriter.RewriteDescriptor(arg))
		default:
			fmt.Fprintln(cmd.OutOrStdout(), rewriter.RewriteClassName(arg))
		}
	}
	return nil
}

// isDescriptor tells descriptors from internal class names
func isDescriptor(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '(', '[':
		return true
	case 'L':
		return s[len(s)-1] == ';'
	}
	return len(s) == 1
}
