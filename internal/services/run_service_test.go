package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wbbcli/internal/config"
	apperrors "wbbcli/internal/errors"
	"wbbcli/internal/operations"
	"wbbcli/internal/operations/testutil"
	ws "wbbcli/internal/websocket"
)

// MockBroadcaster is a mock for the EventBroadcaster interface
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(eventType, runID string, data interface{}) {
	m.Called(eventType, runID, data)
}

// recordingHub collects progress messages and signals completion
type recordingHub struct {
	*MockBroadcaster
	mu       sync.Mutex
	messages []string
	complete chan CompletePayload
}

func newRecordingHub() *recordingHub {
	h := &recordingHub{MockBroadcaster: &MockBroadcaster{}, complete: make(chan CompletePayload, 4)}
	h.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		switch args.String(0) {
		case ws.TypeRunProgress:
			h.mu.Lock()
			h.messages = append(h.messages, args.Get(2).(ProgressPayload).Message)
			h.mu.Unlock()
		case ws.TypeRunComplete:
			h.complete <- args.Get(2).(CompletePayload)
		}
	})
	return h
}

func (h *recordingHub) waitComplete(t *testing.T) CompletePayload {
	t.Helper()
	select {
	case payload := <-h.complete:
		return payload
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for run:complete")
		return CompletePayload{}
	}
}

func (h *recordingHub) progress() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var steadySamples = testutil.Steady(200, 10, 1.5, -0.5)

type runFixture struct {
	in, out string
	gen     *testutil.TestDataGenerator
	hub     *recordingHub
	svc     *RunService
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "in")
	require.NoError(t, os.MkdirAll(in, 0755))

	hub := newRecordingHub()
	svc := NewRunService(config.DefaultProcessing(), nil, hub, nil, quietLogger())
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	return &runFixture{
		in:  in,
		out: filepath.Join(root, "out"),
		gen: testutil.NewTestDataGenerator(t, in),
		hub: hub,
		svc: svc,
	}
}

func TestRunService_StartCompletes(t *testing.T) {
	f := newRunFixture(t)
	f.gen.Recording("rec.txt", steadySamples)
	f.gen.Raw("bad.txt", testutil.RecordingHeader+"0 1\n")

	run, err := f.svc.Start(context.Background(), RunRequest{InputDir: f.in, OutputDir: f.out})
	require.NoError(t, err)
	assert.Equal(t, operations.RunStatusRunning, run.Status)
	assert.NotEmpty(t, run.ID)

	payload := f.hub.waitComplete(t)
	assert.Equal(t, operations.RunStatusCompleted, payload.Status)
	assert.Equal(t, 1, payload.Written)
	assert.Equal(t, 1, payload.Failed)
	assert.Equal(t, filepath.Join(f.out, "errors.txt"), payload.ErrorLogPath)

	stored, err := f.svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, operations.RunStatusCompleted, stored.Status)
	require.NotNil(t, stored.FinishedAt)
	require.NotNil(t, stored.Summary)
	assert.FileExists(t, filepath.Join(f.out, "rec.txt.csv"))

	msgs := f.hub.progress()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Cutting method chosen: none", msgs[0])
	assert.Equal(t, "Processing completed!", msgs[len(msgs)-1])

	f.hub.AssertCalled(t, "Broadcast", ws.TypeRunStarted, run.ID, mock.Anything)
}

func TestRunService_RejectsConcurrentRun(t *testing.T) {
	f := newRunFixture(t)
	require.True(t, f.svc.sem.TryAcquire(1))
	defer f.svc.sem.Release(1)

	_, err := f.svc.Start(context.Background(), RunRequest{InputDir: f.in, OutputDir: f.out})
	assert.Same(t, apperrors.ErrRunInProgress, err)
	assert.Empty(t, f.svc.List(context.Background(), operations.RunFilter{}))
}

func TestRunService_SequentialRuns(t *testing.T) {
	f := newRunFixture(t)
	f.gen.Recording("rec.txt", steadySamples)

	first, err := f.svc.Start(context.Background(), RunRequest{InputDir: f.in, OutputDir: f.out})
	require.NoError(t, err)
	assert.Equal(t, 1, f.hub.waitComplete(t).Written)

	second, err := f.svc.Start(context.Background(), RunRequest{InputDir: f.in, OutputDir: f.out})
	require.NoError(t, err)
	payload := f.hub.waitComplete(t)
	assert.Equal(t, 0, payload.Written)
	assert.Equal(t, 1, payload.Skipped)

	runs := f.svc.List(context.Background(), operations.RunFilter{})
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestRunService_StartValidation(t *testing.T) {
	negative := -1.0
	sideways := "sideways"
	mat := "mat"

	tests := []struct {
		description string
		request     func(f *runFixture) RunRequest
	}{
		{
			description: "missing input directory",
			request: func(f *runFixture) RunRequest {
				return RunRequest{InputDir: filepath.Join(f.in, "nope"), OutputDir: f.out}
			},
		},
		{
			description: "input is a file",
			request: func(f *runFixture) RunRequest {
				return RunRequest{InputDir: f.gen.Recording("rec.txt", steadySamples), OutputDir: f.out}
			},
		},
		{
			description: "negative window",
			request: func(f *runFixture) RunRequest {
				return RunRequest{InputDir: f.in, OutputDir: f.out, Processing: &ProcessingOverrides{WindowSize: &negative}}
			},
		},
		{
			description: "unknown trim mode",
			request: func(f *runFixture) RunRequest {
				return RunRequest{InputDir: f.in, OutputDir: f.out, Processing: &ProcessingOverrides{TrimMode: &sideways}}
			},
		},
		{
			description: "unknown format",
			request: func(f *runFixture) RunRequest {
				return RunRequest{InputDir: f.in, OutputDir: f.out, Processing: &ProcessingOverrides{Format: &mat}}
			},
		},
		{
			description: "output equals input",
			request: func(f *runFixture) RunRequest {
				return RunRequest{InputDir: f.in, OutputDir: f.in}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			f := newRunFixture(t)
			_, err := f.svc.Start(context.Background(), tc.request(f))

			if tc.description == "output equals input" {
				// rejected by the pipeline once running
				require.NoError(t, err)
				payload := f.hub.waitComplete(t)
				assert.Equal(t, operations.RunStatusFailed, payload.Status)
				assert.Contains(t, payload.Error, "output directory must differ")
				return
			}

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Contains(t, []apperrors.ErrorType{apperrors.ErrTypeValidation, apperrors.ErrTypeConfig}, appErr.Type)
			assert.Empty(t, f.svc.List(context.Background(), operations.RunFilter{}))
		})
	}
}

func TestRunService_Cancel(t *testing.T) {
	f := newRunFixture(t)
	f.gen.Recording("rec.txt", steadySamples)

	err := f.svc.Cancel(context.Background(), "missing")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrTypeNotFound, appErr.Type)

	run, err := f.svc.Start(context.Background(), RunRequest{InputDir: f.in, OutputDir: f.out})
	require.NoError(t, err)
	f.hub.waitComplete(t)

	err = f.svc.Cancel(context.Background(), run.ID)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
}

func TestRunService_CancelRunning(t *testing.T) {
	f := newRunFixture(t)
	f.gen.Recording("rec.txt", steadySamples)

	run, err := f.svc.Start(context.Background(), RunRequest{InputDir: f.in, OutputDir: f.out})
	require.NoError(t, err)

	// the run may already be done; either outcome is terminal
	cancelErr := f.svc.Cancel(context.Background(), run.ID)
	payload := f.hub.waitComplete(t)

	if cancelErr == nil {
		assert.Contains(t, []operations.RunStatus{operations.RunStatusCancelled, operations.RunStatusCompleted}, payload.Status)
	} else {
		assert.Equal(t, operations.RunStatusCompleted, payload.Status)
	}
}

func TestRunService_Shutdown(t *testing.T) {
	f := newRunFixture(t)
	f.gen.Recording("rec.txt", steadySamples)

	_, err := f.svc.Start(context.Background(), RunRequest{InputDir: f.in, OutputDir: f.out})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(ctx))

	runs := f.svc.List(context.Background(), operations.RunFilter{})
	require.Len(t, runs, 1)
	assert.NotEqual(t, operations.RunStatusRunning, runs[0].Status)
}

func TestProcessingOverrides_Apply(t *testing.T) {
	window := 0.5
	freq := 50.0
	depth := 3
	mode := "head_tail"
	x, y := 1.0, 2.0
	format := "edf"

	base := config.DefaultProcessing()

	tests := []struct {
		description string
		overrides   *ProcessingOverrides
		check       func(t *testing.T, got config.ProcessingConfig)
	}{
		{
			description: "nil keeps defaults",
			check: func(t *testing.T, got config.ProcessingConfig) {
				assert.Equal(t, base, got)
			},
		},
		{
			description: "all fields",
			overrides: &ProcessingOverrides{
				WindowSize: &window, DesiredFrequency: &freq, MaxDepth: &depth,
				TrimMode: &mode, TrimX: &x, TrimY: &y, Format: &format,
			},
			check: func(t *testing.T, got config.ProcessingConfig) {
				assert.Equal(t, 0.5, got.WindowSize)
				assert.Equal(t, 50.0, got.DesiredFrequency)
				assert.Equal(t, 3, got.MaxDepth)
				assert.Equal(t, "head_tail", got.Trim.Mode)
				assert.Equal(t, 1.0, got.Trim.X)
				assert.Equal(t, 2.0, got.Trim.Y)
				assert.Equal(t, "edf", got.Format)
				assert.Equal(t, base.ErrorLog, got.ErrorLog)
			},
		},
		{
			description: "partial",
			overrides:   &ProcessingOverrides{DesiredFrequency: &freq},
			check: func(t *testing.T, got config.ProcessingConfig) {
				assert.Equal(t, 50.0, got.DesiredFrequency)
				assert.Equal(t, base.WindowSize, got.WindowSize)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			tc.check(t, tc.overrides.Apply(base))
		})
	}
}
