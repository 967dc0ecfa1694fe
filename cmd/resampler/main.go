// Command resampler resamples every balance-board recording below an input
// directory once and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wbbcli/internal/config"
	"wbbcli/internal/infrastructure"
	"wbbcli/internal/operations"
	"wbbcli/pkg/contracts/domain"
)

const (
	exitOK    = 0
	exitError = 1
)

// options are the parsed command line
type options struct {
	inputDir  string
	outputDir string
	cfg       *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "resampler: %v\n", err)
		}
		return exitError
	}

	// the console belongs to progress lines
	if opts.cfg.Logging.Output == "both" {
		opts.cfg.Logging.Output = "file"
	}
	logger, err := infrastructure.InitializeLogger(opts.cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "resampler: failed to initialize logger: %v\n", err)
		return exitError
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(opts.cfg.Telemetry), logger)
	if err != nil {
		fmt.Fprintf(stderr, "resampler: %v\n", err)
		return exitError
	}
	defer providers.Shutdown(context.Background())

	tracer, err := operations.NewPipelineTracer(providers)
	if err != nil {
		fmt.Fprintf(stderr, "resampler: %v\n", err)
		return exitError
	}

	return execute(ctx, opts, tracer, logger, stdout, stderr)
}

// execute runs the pipeline once and prints the summary
func execute(ctx context.Context, opts *options, tracer *operations.PipelineTracer, logger *slog.Logger, stdout, stderr io.Writer) int {
	console := newConsoleSink(stdout)
	pipeline, err := operations.NewPipeline(opts.cfg.Processing,
		operations.WithSink(operations.MultiSink{console, operations.NewSlogSink(ctx, logger)}),
		operations.WithLogger(logger),
		operations.WithTracer(tracer))
	if err != nil {
		fmt.Fprintf(stderr, "resampler: %v\n", err)
		return exitError
	}

	summary, err := pipeline.Run(ctx, opts.inputDir, opts.outputDir)
	if err != nil {
		logger.ErrorContext(ctx, "Run failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "resampler: %v\n", err)
		return exitError
	}

	printSummary(stdout, summary)
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("resampler", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		inDir      = fs.String("in", "", "input directory holding the recordings (required)")
		outDir     = fs.String("out", "", "output directory for resampled files (required)")
		configPath = fs.String("config", "", "YAML config file (default: config.yaml or configs/config.yaml if present)")
		window     = fs.Float64("window", config.DefaultWindowSize, "SWARII window size in seconds")
		freq       = fs.Float64("freq", config.DefaultDesiredFrequency, "output frequency in Hz")
		depth      = fs.Int("depth", config.DefaultMaxDepth, "maximum directory depth below -in")
		trim       = fs.String("trim", config.DefaultTrimMode, "trim mode: none, head-tail or head-window")
		trimX      = fs.Float64("x", 0, "first trim parameter in seconds")
		trimY      = fs.Float64("y", 0, "second trim parameter in seconds")
		format     = fs.String("format", config.DefaultFormat, "output format: csv, xlsx or edf")
		errorLog   = fs.String("errors", config.DefaultErrorLog, "name of the error log written to -out")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *inDir == "" || *outDir == "" {
		return nil, errors.New("both -in and -out are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	// flags given explicitly win over the file and the environment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "window":
			cfg.Processing.WindowSize = *window
		case "freq":
			cfg.Processing.DesiredFrequency = *freq
		case "depth":
			cfg.Processing.MaxDepth = *depth
		case "trim":
			cfg.Processing.Trim.Mode = *trim
		case "x":
			cfg.Processing.Trim.X = *trimX
		case "y":
			cfg.Processing.Trim.Y = *trimY
		case "format":
			cfg.Processing.Format = *format
		case "errors":
			cfg.Processing.ErrorLog = *errorLog
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &options{inputDir: *inDir, outputDir: *outDir, cfg: cfg}, nil
}

func printSummary(w io.Writer, summary *domain.RunSummary) {
	fmt.Fprintf(w, "\nWritten: %d  Skipped: %d  Failed: %d  (%s)\n",
		summary.Count(domain.OutcomeWritten),
		summary.Count(domain.OutcomeSkipped),
		summary.Count(domain.OutcomeFailed),
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))

	if len(summary.FailedInputs()) > 0 {
		fmt.Fprintf(w, "Failed files are listed in %s\n", summary.ErrorLogPath)
	}
}
