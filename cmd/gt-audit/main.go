package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ARTIFACTIQ/gt-audit/internal/app"
	"github.com/ARTIFACTIQ/gt-audit/internal/audit"
	"github.com/ARTIFACTIQ/gt-audit/internal/config"
	"github.com/ARTIFACTIQ/gt-audit/internal/dataset"
	"github.com/ARTIFACTIQ/gt-audit/internal/detect"
	"github.com/ARTIFACTIQ/gt-audit/internal/report"
	"github.com/ARTIFACTIQ/gt-audit/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gt-audit",
	Short: "gt-audit - Ground truth auditing for object detection datasets",
	Long: `gt-audit cross-checks YOLO-format ground-truth labels against model
predictions and flags likely annotation errors: wrong classes, unlabeled
objects, labels nothing supports, and badly drawn boxes.`,
}

var (
	flagConfigFile string
	flagLogLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "Path to a gt-audit.toml configuration file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

// exitCode is what main exits with after deferred cleanup has run.
var exitCode int

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate the autocompletion script for the specified shell",
	Long: `Generate the autocompletion script for gt-audit for the specified shell.
See each command's help for details on how to use the generated script.
	`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		switch args[0] {
		case "bash":
			err = cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			err = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			err = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			err = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating completion script: %v\n", err)
			os.Exit(1)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate DATASET",
	Short: "Audit a dataset's labels against model predictions",
	Long: `Audit a YOLO-format dataset against per-image prediction files.

Each image's ground-truth labels are matched to the predictions for that
image by IoU; unmatched and mismatched boxes become issues, graded by
severity. The summary prints to stdout, and --output writes a full report
(.html extension selects HTML, anything else JSON).

Examples:
  gt-audit validate ./dataset --predictions ./preds
  gt-audit validate ./dataset -p ./preds -o report.html --sample 500
  gt-audit validate ./dataset -p ./preds --fail-on-high 0 --fail-on-medium 10`,
	Args: cobra.ExactArgs(1),
}

var (
	validatePredictions  string
	validateConfidence   float64
	validateIoU          float64
	validateLocIoU       float64
	validateOutput       string
	validateCharts       string
	validateSample       int
	validateSeed         int64
	validateFailOnHigh   int
	validateFailOnMedium int
	validateWorkers      int
	validateNoHistory    bool
)

func init() {
	validateCmd.Flags().StringVarP(&validatePredictions, "predictions", "p", "", "Directory of per-image prediction files (required)")
	validateCmd.Flags().Float64VarP(&validateConfidence, "confidence", "c", config.DefaultConfidenceThreshold, "Minimum confidence for a prediction to count")
	validateCmd.Flags().Float64Var(&validateIoU, "iou", config.DefaultIoUThreshold, "Minimum IoU for a prediction to match a label")
	validateCmd.Flags().Float64Var(&validateLocIoU, "localization-iou", 0, "Flag matched same-class pairs below this IoU (0 disables)")
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "", "Report file; .html selects HTML, anything else JSON")
	validateCmd.Flags().StringVar(&validateCharts, "charts", "", "Write severity and issue-type charts to this HTML file")
	validateCmd.Flags().IntVar(&validateSample, "sample", 0, "Audit a random sample of N images (0 = all)")
	validateCmd.Flags().Int64Var(&validateSeed, "seed", config.DefaultSampleSeed, "Sampling seed")
	validateCmd.Flags().IntVar(&validateFailOnHigh, "fail-on-high", 0, "Exit 1 when high severity issues exceed N")
	validateCmd.Flags().IntVar(&validateFailOnMedium, "fail-on-medium", 0, "Exit 1 when medium severity issues exceed N")
	validateCmd.Flags().IntVarP(&validateWorkers, "workers", "j", 0, "Worker goroutines (0 = all CPUs)")
	validateCmd.Flags().BoolVar(&validateNoHistory, "no-history", false, "Skip recording this run in the history store")
	_ = validateCmd.MarkFlagRequired("predictions")
}

// recordSource joins ground-truth labels and prediction files into the
// per-image records the audit engine consumes.
type recordSource struct {
	ds  *dataset.Dataset
	src detect.Source
}

func (s recordSource) Record(imageID string) (audit.ImageRecord, error) {
	gt, err := s.ds.Annotations(imageID)
	if err != nil {
		return audit.ImageRecord{}, err
	}
	dets, err := s.src.Detections(imageID)
	if err != nil {
		return audit.ImageRecord{}, err
	}
	return audit.ImageRecord{
		ImageID:     imageID,
		GroundTruth: gt,
		Detections:  dets,
	}, nil
}

func runValidateCmd(a *app.App, cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := a.Core.Config

	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║               gt-audit - Ground Truth Validator          ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Printf("📂 Loading dataset: %s\n", args[0])
	ds, err := dataset.Open(args[0], a.Core.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		exitCode = 1
		return
	}

	images := ds.Images()
	fmt.Printf("   Classes: %d\n", len(ds.ClassNames))
	fmt.Printf("   Images: %d\n", len(images))
	if cfg.SampleSize > 0 && cfg.SampleSize < len(images) {
		fmt.Printf("   Sampled: %d images (seed=%d)\n", cfg.SampleSize, cfg.SampleSeed)
	}

	fmt.Println()
	fmt.Printf("🔍 Loading predictions: %s\n", validatePredictions)
	if _, err := os.Stat(validatePredictions); err != nil {
		fmt.Fprintf(os.Stderr, "❌ cannot read predictions directory %s: %v\n", validatePredictions, err)
		exitCode = 1
		return
	}
	source := detect.NewFiles(validatePredictions, ds.ClassNames)

	resolver, err := cfg.Resolver()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		exitCode = 1
		return
	}

	runner := audit.NewRunner(recordSource{ds: ds, src: source}, resolver, a.Core.Logger, audit.Options{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		IoUThreshold:        cfg.IoUThreshold,
		LocalizationIoU:     cfg.LocalizationIoUThreshold,
		Workers:             cfg.Workers,
		SampleSize:          cfg.SampleSize,
		SampleSeed:          cfg.SampleSeed,
		Severities:          cfg.SeverityTable(),
		FailOnHigh:          cfg.FailOnHigh,
		FailOnMedium:        cfg.FailOnMedium,
	})

	toAudit := len(images)
	if cfg.SampleSize > 0 && cfg.SampleSize < toAudit {
		toAudit = cfg.SampleSize
	}
	fmt.Println()
	fmt.Printf("🔬 Auditing %d images...\n", toAudit)

	ctx, stop := signal.NotifyContext(a.ContextWithLogger(a.Ctx), os.Interrupt)
	defer stop()

	summary, verdict, err := runner.Run(ctx, images, len(images))
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "❌ audit failed: %v\n", err)
		exitCode = 1
		return
	}
	if errors.Is(err, context.Canceled) {
		fmt.Println()
		fmt.Println("⚠ Audit interrupted, results below are partial")
	}

	verdictStr := ""
	if cfg.FailOnHigh != nil || cfg.FailOnMedium != nil {
		verdictStr = "pass"
		if !verdict.Pass {
			verdictStr = "fail"
		}
	}

	result := report.NewResult(args[0], source.Name(), report.Thresholds{
		Confidence:      cfg.ConfidenceThreshold,
		IoU:             cfg.IoUThreshold,
		LocalizationIoU: cfg.LocalizationIoUThreshold,
	}, summary, verdictStr)

	report.PrintConsole(os.Stdout, result, time.Since(start))

	if validateOutput != "" {
		if err := writeReportFile(validateOutput, result); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			exitCode = 1
			return
		}
	}
	if validateCharts != "" {
		if err := writeChartsFile(validateCharts, result); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			exitCode = 1
			return
		}
	}

	if a.Core.History != nil {
		if err := a.Core.History.Record(result); err != nil {
			a.Core.Logger.Warn("Failed to record run in history", zap.Error(err))
		}
	}

	if !verdict.Pass {
		for _, reason := range verdict.Reasons {
			fmt.Fprintf(os.Stderr, "❌ FAIL: %s\n", reason)
		}
		exitCode = 1
	} else if cfg.FailOnHigh != nil || cfg.FailOnMedium != nil {
		fmt.Println("✅ PASS: Issue counts within thresholds")
	}
}

func writeReportFile(path string, result *report.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create report file %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".html") {
		if err := report.WriteHTML(f, result); err != nil {
			return err
		}
		fmt.Printf("📄 HTML report saved: %s\n", path)
		return nil
	}
	if err := report.WriteJSON(f, result); err != nil {
		return err
	}
	fmt.Printf("📄 JSON report saved: %s\n", path)
	return nil
}

func writeChartsFile(path string, result *report.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create charts file %s: %w", path, err)
	}
	defer f.Close()

	if err := report.WriteCharts(f, result); err != nil {
		return err
	}
	fmt.Printf("📊 Charts saved: %s\n", path)
	return nil
}

var infoCmd = &cobra.Command{
	Use:   "info DATASET",
	Short: "Show dataset structure and class names",
	Args:  cobra.ExactArgs(1),
}

func runInfoCmd(a *app.App, cmd *cobra.Command, args []string) {
	ds, err := dataset.Open(args[0], a.Core.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		exitCode = 1
		return
	}

	fmt.Printf("Dataset: %s\n", args[0])
	fmt.Printf("Images: %d\n", ds.ImageCount())
	fmt.Printf("Classes: %d\n", len(ds.ClassNames))
	fmt.Println()
	fmt.Println("Class names:")

	ids := make([]int, 0, len(ds.ClassNames))
	for id := range ds.ClassNames {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Printf("  %d: %s\n", id, ds.ClassNames[id])
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent audit runs",
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to show")
}

func runHistoryCmd(a *app.App, cmd *cobra.Command, args []string) {
	if a.Core.History == nil {
		fmt.Println("Run history is disabled.")
		return
	}

	runs, err := a.Core.History.Recent(historyLimit)
	if err != nil {
		a.Core.Logger.Error("Failed to read run history", zap.Error(err))
		fmt.Fprintf(os.Stderr, "❌ Error reading history: %v\n", err)
		exitCode = 1
		return
	}
	if len(runs) == 0 {
		fmt.Println("No audit runs recorded yet.")
		return
	}

	fmt.Printf("Recent audit runs (showing %d):\n\n", len(runs))
	for i, run := range runs {
		fmt.Printf("[%d] %s\n", i+1, run.DatasetPath)
		fmt.Printf("    Issues: %d (%d high, %d medium, %d low)\n", run.TotalIssues, run.HighCount, run.MediumCount, run.LowCount)
		fmt.Printf("    Audited: %d of %d images | Source: %s\n", run.ImagesAudited, run.TotalImages, run.Source)
		if run.Verdict != "" {
			fmt.Printf("    Verdict: %s\n", run.Verdict)
		}
		fmt.Printf("    Date: %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
}

var versionCheck bool

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check GitHub for a newer release")
}

func runVersionCmd(a *app.App, cmd *cobra.Command, args []string) {
	fmt.Printf("gt-audit v%s\n", version.Version)

	if versionCheck {
		latest, err := version.CheckForUpdates()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Update check failed: %v\n", err)
			return
		}
		if latest == "" {
			fmt.Println("You are on the latest version.")
			return
		}
		fmt.Printf("Update available: v%s (https://github.com/ARTIFACTIQ/gt-audit/releases)\n", latest)
	}
}

// applyFlags layers command-line overrides onto the loaded configuration.
// Only flags the user actually set are applied; commands without a given
// flag leave the config value alone.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("confidence") {
		cfg.ConfidenceThreshold = validateConfidence
	}
	if flags.Changed("iou") {
		cfg.IoUThreshold = validateIoU
	}
	if flags.Changed("localization-iou") {
		cfg.LocalizationIoUThreshold = validateLocIoU
	}
	if flags.Changed("sample") {
		cfg.SampleSize = validateSample
	}
	if flags.Changed("seed") {
		cfg.SampleSeed = validateSeed
	}
	if flags.Changed("fail-on-high") {
		v := validateFailOnHigh
		cfg.FailOnHigh = &v
	}
	if flags.Changed("fail-on-medium") {
		v := validateFailOnMedium
		cfg.FailOnMedium = &v
	}
	if flags.Changed("workers") {
		cfg.Workers = validateWorkers
	}
	if validateNoHistory {
		cfg.HistoryEnabled = false
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
}

// newAppRunner creates a Cobra Run function that loads configuration,
// applies flag overrides, and hands a ready App to runFunc.
func newAppRunner(runFunc func(*app.App, *cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(flagConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			exitCode = 1
			return
		}
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			exitCode = 1
			return
		}

		a, err := app.NewApp(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
			exitCode = 1
			return
		}
		defer a.Close()

		runFunc(a, cmd, args)
	}
}

func main() {
	validateCmd.Run = newAppRunner(runValidateCmd)
	infoCmd.Run = newAppRunner(runInfoCmd)
	historyCmd.Run = newAppRunner(runHistoryCmd)
	versionCmd.Run = newAppRunner(runVersionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
