package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"wbbcli/internal/config"
	apperrors "wbbcli/internal/errors"
	"wbbcli/internal/infrastructure"
	"wbbcli/internal/operations"
	ws "wbbcli/internal/websocket"
	"wbbcli/pkg/contracts/domain"
)

// RunRetention is how long finished runs stay listed
const RunRetention = 24 * time.Hour

// EventBroadcaster pushes run events to connected clients
type EventBroadcaster interface {
	Broadcast(eventType, runID string, data interface{})
}

// RunRequest is the body of a run submission
type RunRequest struct {
	InputDir   string               `json:"input_dir" validate:"required,rundir"`
	OutputDir  string               `json:"output_dir" validate:"required,rundir,nefield=InputDir"`
	Processing *ProcessingOverrides `json:"processing,omitempty"`
}

// ProcessingOverrides replaces individual fields of the default processing
// configuration. Nil fields keep the default.
type ProcessingOverrides struct {
	WindowSize       *float64 `json:"window_size,omitempty" validate:"omitempty,gt=0"`
	DesiredFrequency *float64 `json:"desired_frequency,omitempty" validate:"omitempty,gt=0"`
	MaxDepth         *int     `json:"max_depth,omitempty" validate:"omitempty,gte=0"`
	TrimMode         *string  `json:"trim_mode,omitempty"`
	TrimX            *float64 `json:"trim_x,omitempty" validate:"omitempty,gte=0"`
	TrimY            *float64 `json:"trim_y,omitempty" validate:"omitempty,gte=0"`
	Format           *string  `json:"format,omitempty" validate:"omitempty,oneof=csv xlsx edf"`
}

// Apply returns base with the non-nil overrides applied
func (o *ProcessingOverrides) Apply(base config.ProcessingConfig) config.ProcessingConfig {
	if o == nil {
		return base
	}
	if o.WindowSize != nil {
		base.WindowSize = *o.WindowSize
	}
	if o.DesiredFrequency != nil {
		base.DesiredFrequency = *o.DesiredFrequency
	}
	if o.MaxDepth != nil {
		base.MaxDepth = *o.MaxDepth
	}
	if o.TrimMode != nil {
		base.Trim.Mode = *o.TrimMode
	}
	if o.TrimX != nil {
		base.Trim.X = *o.TrimX
	}
	if o.TrimY != nil {
		base.Trim.Y = *o.TrimY
	}
	if o.Format != nil {
		base.Format = *o.Format
	}
	return base
}

// ProgressPayload is the data of a run:progress event
type ProgressPayload struct {
	Message  string              `json:"message"`
	Severity operations.Severity `json:"severity"`
}

// CompletePayload is the data of a run:complete event
type CompletePayload struct {
	Status       operations.RunStatus `json:"status"`
	Written      int                  `json:"written"`
	Skipped      int                  `json:"skipped"`
	Failed       int                  `json:"failed"`
	ErrorLogPath string               `json:"error_log_path,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// RunService hosts pipeline runs for the HTTP API. At most one run executes
// at a time.
type RunService struct {
	defaults config.ProcessingConfig
	store    *operations.MemoryRunStore
	hub      EventBroadcaster
	tracer   *operations.PipelineTracer
	logger   *slog.Logger

	sem     *semaphore.Weighted
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRunService creates a run service. hub and tracer may be nil.
func NewRunService(defaults config.ProcessingConfig, store *operations.MemoryRunStore, hub EventBroadcaster, tracer *operations.PipelineTracer, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if store == nil {
		store = operations.NewMemoryRunStore()
	}
	baseCtx, stop := context.WithCancel(context.Background())

	return &RunService{
		defaults: defaults,
		store:    store,
		hub:      hub,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "run_service"),
		sem:      semaphore.NewWeighted(1),
		baseCtx:  baseCtx,
		stop:     stop,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start validates req and launches the run in the background. It returns
// apperrors.ErrRunInProgress when another run is executing.
func (s *RunService) Start(ctx context.Context, req RunRequest) (*operations.Run, error) {
	cfg := req.Processing.Apply(s.defaults)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if info, err := os.Stat(req.InputDir); err != nil || !info.IsDir() {
		return nil, apperrors.NewAppValidationError("input directory does not exist").
			WithContext("input_dir", req.InputDir)
	}

	if !s.sem.TryAcquire(1) {
		return nil, apperrors.ErrRunInProgress
	}

	run := operations.Run{
		ID:         infrastructure.NewRunID(),
		Status:     operations.RunStatusRunning,
		InputDir:   req.InputDir,
		OutputDir:  req.OutputDir,
		Processing: cfg,
		CreatedAt:  time.Now(),
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		runCtx = infrastructure.WithTraceID(runCtx, traceID)
	}
	runCtx = infrastructure.WithRunID(runCtx, run.ID)

	pipeline, err := operations.NewPipeline(cfg,
		operations.WithSink(s.progressSink(runCtx, run.ID)),
		operations.WithLogger(s.logger.With(slog.String("run_id", run.ID))),
		operations.WithTracer(s.tracer))
	if err != nil {
		cancel()
		s.sem.Release(1)
		return nil, err
	}

	if removed := s.store.CleanupFinished(RunRetention); removed > 0 {
		s.logger.DebugContext(ctx, "Expired runs removed", slog.Int("count", removed))
	}
	stored := run
	if err := s.store.Create(&stored); err != nil {
		cancel()
		s.sem.Release(1)
		return nil, err
	}

	s.mu.Lock()
	s.cancels[run.ID] = cancel
	s.mu.Unlock()

	s.logger.InfoContext(runCtx, "Run started",
		slog.String("run_id", run.ID),
		slog.String("input_dir", run.InputDir),
		slog.String("output_dir", run.OutputDir))
	s.broadcast(ws.TypeRunStarted, run.ID, run)

	s.wg.Add(1)
	go s.execute(runCtx, pipeline, run)

	result := run
	return &result, nil
}

func (s *RunService) execute(ctx context.Context, pipeline *operations.Pipeline, run operations.Run) {
	defer s.wg.Done()

	summary, err := pipeline.Run(ctx, run.InputDir, run.OutputDir)

	finished := time.Now()
	run.FinishedAt = &finished
	run.Summary = summary
	switch {
	case err == nil:
		run.Status = operations.RunStatusCompleted
	case errors.Is(err, context.Canceled):
		run.Status = operations.RunStatusCancelled
		run.Error = err.Error()
	default:
		run.Status = operations.RunStatusFailed
		run.Error = err.Error()
	}

	if updateErr := s.store.Update(&run); updateErr != nil {
		s.logger.ErrorContext(ctx, "Failed to record run result",
			slog.String("run_id", run.ID),
			slog.String("error", updateErr.Error()))
	}

	s.mu.Lock()
	if cancel, ok := s.cancels[run.ID]; ok {
		cancel()
		delete(s.cancels, run.ID)
	}
	s.mu.Unlock()
	s.sem.Release(1)

	s.logger.InfoContext(ctx, "Run finished",
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)),
		slog.Duration("duration", finished.Sub(run.CreatedAt)))
	s.broadcast(ws.TypeRunComplete, run.ID, completePayload(run))
}

func completePayload(run operations.Run) CompletePayload {
	payload := CompletePayload{Status: run.Status, Error: run.Error}
	if run.Summary != nil {
		payload.Written = run.Summary.Count(domain.OutcomeWritten)
		payload.Skipped = run.Summary.Count(domain.OutcomeSkipped)
		payload.Failed = run.Summary.Count(domain.OutcomeFailed)
		payload.ErrorLogPath = run.Summary.ErrorLogPath
	}
	return payload
}

// progressSink fans progress out to the hub and the run log
func (s *RunService) progressSink(ctx context.Context, runID string) operations.ProgressSink {
	hubSink := operations.SinkFunc(func(message string, severity operations.Severity) {
		s.broadcast(ws.TypeRunProgress, runID, ProgressPayload{Message: message, Severity: severity})
	})
	return operations.MultiSink{hubSink, operations.NewSlogSink(ctx, s.logger)}
}

func (s *RunService) broadcast(eventType, runID string, data interface{}) {
	if s.hub != nil {
		s.hub.Broadcast(eventType, runID, data)
	}
}

// Get returns the run with the given id
func (s *RunService) Get(ctx context.Context, id string) (*operations.Run, error) {
	return s.store.Get(id)
}

// List returns runs newest first
func (s *RunService) List(ctx context.Context, filter operations.RunFilter) []*operations.Run {
	return s.store.List(filter)
}

// Cancel stops a running run. The run finishes with the cancelled status once
// the pipeline observes the cancellation.
func (s *RunService) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()

	if !ok {
		if _, err := s.store.Get(id); err != nil {
			return err
		}
		return apperrors.NewAppValidationError("run is not running").WithContext("run_id", id)
	}

	cancel()
	s.logger.InfoContext(ctx, "Run cancellation requested", slog.String("run_id", id))
	return nil
}

// Shutdown cancels running runs and waits for them to finish or ctx to end
func (s *RunService) Shutdown(ctx context.Context) error {
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
