package operations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"wbbcli/internal/config"
	"wbbcli/internal/dataprocessing"
	apperrors "wbbcli/internal/errors"
	"wbbcli/internal/exporter"
	"wbbcli/internal/files"
	"wbbcli/pkg/contracts/domain"
)

// Pipeline converts every recording of an input tree into a resampled
// artifact in an output directory. A Pipeline holds no per-run state and may
// be reused, but Run itself is synchronous and single-threaded.
type Pipeline struct {
	cfg       config.ProcessingConfig
	resampler *dataprocessing.SWARII
	policy    dataprocessing.TrimPolicy
	encoder   exporter.Encoder
	sink      ProgressSink
	logger    *slog.Logger
	tracer    *PipelineTracer
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSink sets the progress sink. A nil sink discards progress.
func WithSink(sink ProgressSink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer enables tracing and metrics
func WithTracer(tracer *PipelineTracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// NewPipeline validates cfg and builds the resampler, trim policy and encoder
// it describes.
func NewPipeline(cfg config.ProcessingConfig, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resampler, err := dataprocessing.NewSWARII(cfg.WindowSize, cfg.DesiredFrequency)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.TrimPolicy()
	if err != nil {
		return nil, err
	}
	encoder, err := cfg.Encoder()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		resampler: resampler,
		policy:    policy,
		encoder:   encoder,
		sink:      NopSink{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the processing parameters the pipeline was built with
func (p *Pipeline) Config() config.ProcessingConfig {
	return p.cfg
}

// Run processes inputDir into outputDir. Per-file failures are recorded in the
// summary and never stop the run. The returned error is non-nil only when the
// tree cannot be traversed, ctx is cancelled, or the error log cannot be
// written; the summary is returned in every case.
func (p *Pipeline) Run(ctx context.Context, inputDir, outputDir string) (summary *domain.RunSummary, err error) {
	summary = &domain.RunSummary{
		InputDir:  inputDir,
		OutputDir: outputDir,
		StartedAt: time.Now(),
	}

	ctx, endRun := p.tracer.StartRun(ctx, inputDir, outputDir)
	defer func() {
		summary.FinishedAt = time.Now()
		endRun(summary, err)
	}()

	walker := files.NewWalker(inputDir, p.cfg.MaxDepth)
	if files.Contains(inputDir, outputDir) {
		if files.Contains(outputDir, inputDir) {
			return summary, apperrors.NewAppValidationError("output directory must differ from input directory").
				WithContext("path", outputDir)
		}
		walker.Exclude(outputDir)
	}
	manager := files.NewManager(outputDir)
	base := filepath.Base(filepath.Clean(inputDir))

	p.logger.InfoContext(ctx, "Pipeline run started",
		slog.String("input_dir", inputDir),
		slog.String("output_dir", outputDir),
		slog.Float64("window_size", p.cfg.WindowSize),
		slog.Float64("desired_frequency", p.cfg.DesiredFrequency),
		slog.Int("max_depth", p.cfg.MaxDepth),
		slog.String("trim", p.policy.Mode.String()),
		slog.String("format", p.encoder.Name()))

	p.report(SeverityInfo, "Cutting method chosen: %s", p.policy.Mode)
	p.report(SeverityInfo, "X seconds: %v, Y seconds: %v", p.policy.X, p.policy.Y)
	p.report(SeverityInfo, "Starting processing:")

	var failures ErrorList
	walkErr := walker.Walk(func(fi files.FileInfo) error {
		if fi.IsDir {
			p.report(SeverityInfo, "Walking | Current -> %s", logPath(base, fi.RelPath))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Add(p.processFile(ctx, manager, fi, base, &failures))
		return nil
	})

	if logErr := p.writeErrorLog(manager, summary); logErr != nil && walkErr == nil {
		walkErr = logErr
	}

	p.logger.InfoContext(ctx, "Pipeline run finished",
		slog.Int("written", summary.Count(domain.OutcomeWritten)),
		slog.Int("skipped", summary.Count(domain.OutcomeSkipped)),
		slog.Int("failed", summary.Count(domain.OutcomeFailed)),
		slog.Int("parse_failures", len(failures.ByStep(StepParse))),
		slog.Int("resample_failures", len(failures.ByStep(StepResample))),
		slog.Int("write_failures", len(failures.ByStep(StepWrite))),
		slog.Duration("duration", time.Since(summary.StartedAt)))

	if walkErr != nil {
		p.report(SeverityError, "Processing stopped: %v", walkErr)
		return summary, walkErr
	}
	p.report(SeverityInfo, "Processing completed!")
	return summary, nil
}

// processFile handles one input file and always yields an outcome
func (p *Pipeline) processFile(ctx context.Context, manager *files.Manager, fi files.FileInfo, base string, failures *ErrorList) (outcome domain.Outcome) {
	display := logPath(base, fi.RelPath)
	outputPath := manager.OutputPath(fi.RelPath, p.encoder.Extension())

	ctx, endFile := p.tracer.StartFile(ctx, display)
	defer func() { endFile(outcome) }()

	if manager.FileExists(outputPath) {
		p.report(SeverityInfo, "Skipping %s, already processed.", display)
		return domain.Skipped(fi.Path, outputPath)
	}

	p.report(SeverityInfo, "Working on %s", display)

	outcome, err := p.convert(ctx, manager, fi, display, outputPath)
	if err != nil {
		failures.Add(err)
		p.report(SeverityError, "Error processing file: %s", fi.Path)
		p.report(SeverityError, "Exception: %v", err.Cause)
		p.logger.WarnContext(ctx, "File processing failed",
			slog.String("path", fi.Path),
			slog.String("step", string(err.Step)),
			slog.String("error", err.Cause.Error()))
		return domain.Failed(fi.Path, err.Cause.Error())
	}
	return outcome
}

func (p *Pipeline) convert(ctx context.Context, manager *files.Manager, fi files.FileInfo, display, outputPath string) (domain.Outcome, *FileError) {
	rec, err := dataprocessing.ParseFile(fi.Path)
	if err != nil {
		return domain.Outcome{}, newFileError(fi.Path, StepParse, err)
	}

	stats := dataprocessing.Stats(rec)
	p.logger.DebugContext(ctx, "Recording parsed",
		slog.String("path", fi.Path),
		slog.Int("samples", stats.Samples),
		slog.Float64("duration", stats.Duration),
		slog.Float64("max_delta", stats.MaxDelta))

	series, err := p.resampler.Resample(rec)
	if err != nil {
		return domain.Outcome{}, newFileError(fi.Path, StepResample, err)
	}

	p.report(SeverityInfo, "Cutting method: %s", p.policy.Mode)
	p.reportRange("Original time range", series)

	trimmed := dataprocessing.Trim(series, p.policy)
	switch p.policy.Mode {
	case dataprocessing.TrimHeadTail:
		p.report(SeverityInfo, "Cutting first %.2f seconds and last %.2f seconds", p.policy.X, p.policy.Y)
	case dataprocessing.TrimHeadWindow:
		p.report(SeverityInfo, "Cutting first %.2f seconds and taking %.2f seconds after", p.policy.X, p.policy.Y)
	}
	p.reportRange("New time range", trimmed)

	err = manager.WriteAtomic(outputPath, func(w io.WriteSeeker) error {
		return p.encoder.Encode(w, trimmed)
	})
	if err != nil {
		return domain.Outcome{}, newFileError(fi.Path, StepWrite, err)
	}

	if notice, ok := trimmed.Underflow(); ok {
		p.report(SeverityWarn, "Processed %s", display)
		p.report(SeverityWarn, "Empty windows: %d", notice.EmptyWindows)
		p.report(SeverityWarn, "Skipped time due to lack of data: %v", notice.SkippedTime)
	} else {
		p.report(SeverityInfo, "Processed %s", display)
	}
	p.report(SeverityInfo, "Saved to %s", outputPath)

	outcome := domain.Written(fi.Path, outputPath)
	outcome.EmptyWindows = trimmed.EmptyWindows
	outcome.SkippedTime = trimmed.SkippedTime
	outcome.Points = trimmed.Len()
	return outcome, nil
}

// reportRange emits the time range of series; an empty series still produces
// a header-only artifact, so it is a warning rather than a failure.
func (p *Pipeline) reportRange(label string, series *domain.ResampledSeries) {
	first, last, ok := series.Span()
	if !ok {
		p.report(SeverityWarn, "%s: empty", label)
		return
	}
	p.report(SeverityInfo, "%s: %.2f to %.2f", label, first, last)
}

// writeErrorLog lists the failed inputs in the error log. Nothing is written
// when the run had no failures.
func (p *Pipeline) writeErrorLog(manager *files.Manager, summary *domain.RunSummary) error {
	failed := summary.FailedInputs()
	if len(failed) == 0 {
		return nil
	}

	path := filepath.Join(manager.BaseDir(), p.cfg.ErrorLog)
	if err := manager.WriteLines(path, config.ErrorLogHeader, failed); err != nil {
		return err
	}
	summary.ErrorLogPath = path
	p.logger.Info("Error log written", slog.String("path", path), slog.Int("files", len(failed)))
	return nil
}

func (p *Pipeline) report(severity Severity, format string, args ...interface{}) {
	p.sink.Report(fmt.Sprintf(format, args...), severity)
}

// logPath is the display form of a path: the input root's base name joined
// with the slash-separated relative path.
func logPath(base, rel string) string {
	if rel == "." || rel == "" {
		return base
	}
	return base + "/" + filepath.ToSlash(rel)
}
