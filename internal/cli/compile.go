package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/delorenj/holyfields/internal/component"
	"github.com/delorenj/holyfields/internal/config"
	apperrors "github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/logging"
	"github.com/delorenj/holyfields/internal/pipeline"
	"github.com/delorenj/holyfields/internal/progress"
)

var (
	compileTargets    []string
	compileWorkers    int
	compileVersions   string
	compileReport     string
	compileSkipVerify bool
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile schemas into typed bindings for every target",
	Long: `Compile runs the full pipeline: discover and load schema documents,
resolve references, apply composition, build the intermediate
representation, emit bindings per target, and verify cross-target
agreement with synthesized payloads.`,
	Example: `  # Compile with defaults from config
  holyfields compile

  # Python and TypeScript only, 8 workers
  holyfields compile --targets python,typescript --workers 8

  # Skip the verification stage
  holyfields compile --skip-verify`,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringSliceVar(&compileTargets, "targets", nil, "Targets to emit (default: all registered)")
	compileCmd.Flags().IntVar(&compileWorkers, "workers", 0, "Per-stage parallelism (overrides config)")
	compileCmd.Flags().StringVar(&compileVersions, "versions", "", "Component versions manifest (overrides config)")
	compileCmd.Flags().StringVar(&compileReport, "report", "", "Write the verification report JSON to this path")
	compileCmd.Flags().BoolVar(&compileSkipVerify, "skip-verify", false, "Skip cross-target verification")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return executeCompile(ctx, cmd, true)
}

// executeCompile runs the pipeline for both compile and check; check
// passes emitArtifacts=false to validate without writing output.
func executeCompile(ctx context.Context, cmd *cobra.Command, emitArtifacts bool) error {
	cfg, err := loadConfiguration()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewExitError(ExitInvalidArguments)
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	versions, err := component.LoadVersions(cfg.VersionsFile)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return NewExitError(ExitInvalidArguments)
	}

	opts := pipeline.Options{
		SchemaDir: cfg.SchemaDir,
		Targets:   cfg.Targets,
		Workers:   cfg.Workers,
		Versions:  versions,
		Verify:    !compileSkipVerify,
	}
	if emitArtifacts {
		opts.OutDir = cfg.OutDir
	}

	var display pipeline.Display
	if cfg.ShowProgress && !flagQuiet {
		display = progress.NewProgressDisplay(progress.DetectTerminalCapabilities())
	}

	result, err := pipeline.New(opts, log, display).Run(ctx)
	if result != nil && result.Report != nil && cfg.ReportPath != "" {
		if werr := writeReport(cfg.ReportPath, result); werr != nil {
			log.Warn("could not write verification report", zap.Error(werr))
		}
	}
	if err != nil {
		return reportFailure(cmd, err)
	}

	printSuccess(cmd, result, emitArtifacts)
	return nil
}

// loadConfiguration loads config and applies flag overrides.
func loadConfiguration() (*config.Configuration, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagSchemas != "" {
		cfg.SchemaDir = flagSchemas
	}
	if flagOut != "" {
		cfg.OutDir = flagOut
	}
	if len(compileTargets) > 0 {
		cfg.Targets = compileTargets
	}
	if compileWorkers > 0 {
		cfg.Workers = compileWorkers
	}
	if compileVersions != "" {
		cfg.VersionsFile = compileVersions
	}
	if compileReport != "" {
		cfg.ReportPath = compileReport
	}
	if flagDebug {
		cfg.Debug = true
	}
	return cfg, nil
}

func writeReport(path string, result *pipeline.Result) error {
	data, err := result.Report.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// reportFailure prints the error and maps it to an exit code.
func reportFailure(cmd *cobra.Command, err error) error {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", red("✗"), err)

	if pe, ok := err.(*apperrors.PipelineError); ok {
		if pe.Kind == apperrors.KindVerificationMismatch {
			return NewExitError(ExitMismatch)
		}
	}
	return NewExitError(ExitCompileFailed)
}

func printSuccess(cmd *cobra.Command, result *pipeline.Result, emitted bool) {
	green := color.New(color.FgGreen).SprintFunc()

	files := 0
	targets := make([]string, 0, len(result.Outputs))
	for _, out := range result.Outputs {
		files += len(out.Files)
		targets = append(targets, out.Target)
	}

	action := "validated"
	if emitted {
		action = "compiled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d entities into %d files for %s\n",
		green("✓"), action, len(result.Module.Entities), files, strings.Join(targets, ", "))

	if result.Report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), result.Report.Summary())
	}
}
