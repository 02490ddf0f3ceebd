package audit

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ARTIFACTIQ/gt-audit/internal/classes"
)

// RecordSource produces the per-image audit input. Implementations read
// label and prediction files; the engine itself never touches a file or a
// model. A failed load is a per-image problem, reported back as an error
// for that image only.
type RecordSource interface {
	Record(imageID string) (ImageRecord, error)
}

// Options configure a single audit run.
type Options struct {
	ConfidenceThreshold float64
	IoUThreshold        float64

	// LocalizationIoU is the optional higher bar below which a matched
	// same-class pair is still flagged. Zero disables the check.
	LocalizationIoU float64

	// Workers is the per-image parallelism. Zero means NumCPU.
	Workers int

	SampleSize int
	SampleSeed int64

	Severities SeverityTable

	// Nil gate thresholds never trip.
	FailOnHigh   *int
	FailOnMedium *int
}

// Runner drives the audit: sample, load, validate, match, classify, fold.
// Matching and classification are pure and run across a worker pool; one
// consumer goroutine owns the summary, so no lock guards the hot path.
type Runner struct {
	source   RecordSource
	resolver *classes.Resolver
	logger   *zap.Logger
	opts     Options
}

// NewRunner wires a runner. A nil logger is replaced with a no-op one.
func NewRunner(source RecordSource, resolver *classes.Resolver, logger *zap.Logger, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Severities == nil {
		opts.Severities = DefaultSeverities()
	}
	return &Runner{
		source:   source,
		resolver: resolver,
		logger:   logger,
		opts:     opts,
	}
}

// imageOutcome is what a worker hands the aggregation owner. Exactly one
// of result or skip is meaningful.
type imageOutcome struct {
	id     string
	result ImageResult
	skip   error
}

// Run audits the sampled subset of imageIDs and returns the finalized
// summary plus the gate verdict. totalImages is the dataset size before
// sampling. Per-image failures are skips, not run failures; cancellation
// stops submission and surfaces ctx's error, with folds applied so far
// still counted in the returned summary.
func (r *Runner) Run(ctx context.Context, imageIDs []string, totalImages int) (*Summary, Verdict, error) {
	start := time.Now()
	selected := Sample(imageIDs, r.opts.SampleSize, r.opts.SampleSeed)

	workers := r.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(selected) && len(selected) > 0 {
		workers = len(selected)
	}

	r.logger.Info("audit run starting",
		zap.Int("total_images", totalImages),
		zap.Int("selected", len(selected)),
		zap.Int("workers", workers),
		zap.Float64("confidence_threshold", r.opts.ConfidenceThreshold),
		zap.Float64("iou_threshold", r.opts.IoUThreshold))

	summary := NewSummary(totalImages)

	g, gCtx := errgroup.WithContext(ctx)
	jobs := make(chan string)
	results := make(chan imageOutcome)

	g.Go(func() error {
		defer close(jobs)
		for _, id := range selected {
			select {
			case jobs <- id:
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for id := range jobs {
				out := r.auditImage(id)
				select {
				case results <- out:
				case <-gCtx.Done():
					return gCtx.Err()
				}
			}
			return nil
		})
	}

	// Close results once every producer is done, so the fold loop below
	// terminates. The fold loop is the only writer to summary.
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(results)
	}()

	for out := range results {
		if out.skip != nil {
			r.logger.Warn("image skipped",
				zap.String("image", out.id),
				zap.Error(out.skip))
			summary.Skip(out.id)
			continue
		}
		r.logger.Debug("image audited",
			zap.String("image", out.id),
			zap.Int("gt", out.result.GTCount),
			zap.Int("detections", out.result.DetectionCount),
			zap.Int("issues", len(out.result.Issues)))
		summary.Fold(out.result)
	}

	summary.Finalize()
	verdict := Gate(summary, r.opts.FailOnHigh, r.opts.FailOnMedium)

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return summary, verdict, err
	}

	r.logger.Info("audit run finished",
		zap.Int("images_audited", summary.ImagesAudited),
		zap.Int("skipped", len(summary.SkippedImages)),
		zap.Int("total_issues", summary.TotalIssues),
		zap.Bool("pass", verdict.Pass),
		zap.Duration("elapsed", time.Since(start)))

	return summary, verdict, ctx.Err()
}

// auditImage runs the pure per-image pipeline. Load and validation
// problems become skips; Match and Classify cannot fail.
func (r *Runner) auditImage(id string) imageOutcome {
	rec, err := r.source.Record(id)
	if err != nil {
		return imageOutcome{id: id, skip: err}
	}
	if err := rec.Validate(); err != nil {
		return imageOutcome{id: id, skip: err}
	}

	corr := Match(rec.GroundTruth, rec.Detections, r.opts.ConfidenceThreshold, r.opts.IoUThreshold)
	issues := Classify(rec.ImageID, rec.GroundTruth, rec.Detections, corr, r.resolver, r.opts.Severities, r.opts.LocalizationIoU)

	return imageOutcome{
		id: id,
		result: ImageResult{
			ImageID:        rec.ImageID,
			GTCount:        len(rec.GroundTruth),
			DetectionCount: len(rec.Detections),
			Issues:         issues,
		},
	}
}
