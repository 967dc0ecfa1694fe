// Package operations runs batch resampling over a directory tree of
// balance-board recordings.
//
// Core Components:
//
// Pipeline: Walks the input tree up to the configured depth, parses each
// recording, resamples it with SWARII, applies the trim policy and writes
// the encoded series below the output directory. Existing outputs are
// skipped, per-file failures are isolated and listed in an error log.
//
// ProgressSink: Receives the human-readable progress messages of a run with
// an info, warn or error severity. ChannelSink, SlogSink and MultiSink cover
// the console, log file and WebSocket consumers.
//
// PipelineTracer: Wraps a run and each file in OpenTelemetry spans and feeds
// the resampling business metrics.
//
// MemoryRunStore: Keeps the runs started by the HTTP host.
//
// Example usage:
//
//	p, err := operations.NewPipeline(cfg.Processing,
//		operations.WithSink(operations.NewSlogSink(ctx, logger)),
//		operations.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	summary, err := p.Run(ctx, "recordings", "resampled")
package operations
