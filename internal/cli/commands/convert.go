package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/backport/internal/backport/runner"
	"github.com/conduit-lang/backport/internal/cli/config"
	"github.com/conduit-lang/backport/internal/cli/ui"
	"github.com/conduit-lang/backport/internal/diagnostics"
	"github.com/conduit-lang/backport/internal/watch"
)

var (
	convertLibs         []string
	convertRules        []string
	convertOutput       string
	convertJobs         int
	convertJSON         bool
	convertIncremental  bool
	convertDontWarn     []string
	convertReplaceTypes []string
	convertNoCheck      bool
	convertWatch        bool
)

// NewConvertCommand creates the convert command
func NewConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <input>...",
		Short: "Rewrite the classes of directories and jars",
		Long: `Convert every class found in the inputs and write the result to the output.

Inputs are class directories, jar or zip files, or single class files.
Other files are copied unchanged. The conversion:
  1. Loads the library classes given with --lib
  2. Compiles the replacement rules, dropping rules whose target is missing
  3. Rewrites class, field and method references of every input class
  4. Reports references that exist neither in the inputs nor the library

Settings not given on the command line are read from backport.yml.`,
		Example: `  # Backport java.time to the ThreeTen backport
  backport convert build/classes -o build/backported \
    --lib threetenbp.jar --replace-type 'java/time/**=org/threeten/bp/<1>'

  # Use a rule file and check references against an older runtime
  backport convert app.jar -o app-backported.jar --rules rules.yml --lib rt.jar

  # Only reconvert changed classes and print a JSON report
  backport convert build/classes -o build/out --incremental --json

  # Reconvert whenever the compiler writes new classes
  backport convert build/classes -o build/out --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: runConvert,
	}

	cmd.Flags().StringSliceVar(&convertLibs, "lib", nil, "Library classes: directory, jar or class file (repeatable)")
	cmd.Flags().StringSliceVar(&convertRules, "rules", nil, "Rule file (repeatable)")
	cmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output directory or jar (default: build/backport)")
	cmd.Flags().IntVarP(&convertJobs, "jobs", "j", 0, "Classes converted in parallel (default: number of CPUs)")
	cmd.Flags().BoolVar(&convertJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&convertIncremental, "incremental", false, "Skip classes unchanged since the last run")
	cmd.Flags().StringSliceVar(&convertDontWarn, "dont-warn", nil, "Class pattern whose missing references are not reported (repeatable)")
	cmd.Flags().StringArrayVar(&convertReplaceTypes, "replace-type", nil, "Type rule as match=replace (repeatable)")
	cmd.Flags().BoolVar(&convertNoCheck, "no-check-missing", false, "Do not report missing references")
	cmd.Flags().BoolVarP(&convertWatch, "watch", "w", false, "Convert again when inputs change (implies --incremental)")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.WriteError(cmd.ErrOrStderr(), ui.ErrorOptions{
			Context: "configuration error",
			Problem: err.Error(),
			NoColor: noColor,
		})
		return err
	}

	set, err := loadRuleSet(withConfig(cfg.Rules, convertRules), convertReplaceTypes)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	opts := runner.Options{
		Inputs:       args,
		Libraries:    withConfig(cfg.Libraries, convertLibs),
		Output:       cfg.Output,
		Jobs:         cfg.Jobs,
		Rules:        set,
		DontWarn:     withConfig(cfg.DontWarn, convertDontWarn),
		Incremental:  cfg.Incremental || convertIncremental || convertWatch,
		CheckMissing: cfg.CheckMissing && !convertNoCheck,
		Logger:       logger,
	}
	if convertOutput != "" {
		opts.Output = convertOutput
	}
	if cmd.Flags().Changed("jobs") {
		opts.Jobs = convertJobs
	}
	if opts.Jobs < 0 {
		return fmt.Errorf("--jobs must not be negative, got: %d", opts.Jobs)
	}

	if err := convertOnce(cmd, opts); err != nil {
		return err
	}
	if !convertWatch {
		return nil
	}
	return watchInputs(cmd, opts)
}

func convertOnce(cmd *cobra.Command, opts runner.Options) error {
	var bar *ui.ProgressBar
	if !convertJSON {
		opts.Warnings = diagnostics.NewPrinter(cmd.ErrOrStderr(), diagnostics.PrinterOptions{NoColor: noColor})
		if isTerminal(cmd.ErrOrStderr()) && !verbose {
			bar = ui.NewProgressBar(cmd.ErrOrStderr(), ui.ProgressBarOptions{Message: "converting", NoColor: noColor})
			opts.Progress = bar.Set
		}
	}

	opts.Logger.Debug("starting conversion",
		zap.Strings("inputs", opts.Inputs),
		zap.Strings("libraries", opts.Libraries),
		zap.String("output", opts.Output),
		zap.Int("type_rules", len(opts.Rules.Types)),
		zap.Int("method_rules", len(opts.Rules.Methods)))

	report, err := runner.Run(cmd.Context(), opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if convertJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printReport(cmd, report, opts.Output)
	return nil
}

// watchInputs converts again after every batch of input changes until the
// command context is cancelled.
func watchInputs(cmd *cobra.Command, opts runner.Options) error {
	infoColor := color.New(color.FgCyan)
	errorColor := color.New(color.FgRed, color.Bold)

	fw, err := watch.NewFileWatcher(watch.Options{
		Paths:      opts.Inputs,
		Extensions: []string{".class", ".jar", ".zip"},
		Logger:     opts.Logger,
	}, func(files []string) {
		infoColor.Fprintf(cmd.ErrOrStderr(), "%d file(s) changed, converting\n", len(files))
		if err := convertOnce(cmd, opts); err != nil {
			errorColor.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
	if err != nil {
		return err
	}

	infoColor.Fprintln(cmd.ErrOrStderr(), "Watching inputs for changes (Ctrl+C to stop)")
	return fw.Run(cmd.Context())
}

func printReport(cmd *cobra.Command, report *runner.Report, output string) {
	out := cmd.OutOrStdout()

	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("Run", report.RunID)
	kv.AddRow("Classes", strconv.Itoa(report.Classes))
	kv.AddRow("Modified", strconv.Itoa(report.Modified))
	if report.Cached > 0 {
		kv.AddRow("Cached", fmt.Sprintf("%d (%.0f%%)", report.Cached, report.CacheHitRate()))
	}
	kv.AddRow("Copied", strconv.Itoa(report.Copied))
	kv.AddRow("Rules", fmt.Sprintf("%d type, %d method, %d dropped", report.TypeRules, report.MethodRules, report.DroppedRules))
	kv.AddRow("Warnings", fmt.Sprintf("%d (%d suppressed)", report.Warnings, report.Suppressed))
	kv.Render()

	if len(report.Malformed) > 0 {
		warningColor := color.New(color.FgYellow)
		warningColor.Fprintf(out, "Copied %d unreadable class file(s) unchanged\n", len(report.Malformed))
	}

	ui.WriteSuccess(out, fmt.Sprintf("Converted to %s in %s", output, report.Duration.Round(time.Millisecond)), noColor)
}

func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
