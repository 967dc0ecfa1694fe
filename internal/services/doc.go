// Package services implements the host-side logic behind the HTTP API.
//
// RunService accepts run submissions, merges their processing overrides into
// the configured defaults and executes one pipeline at a time on a background
// goroutine. Submissions made while a run is executing fail with
// RUN_IN_PROGRESS. Progress messages are pushed to WebSocket clients as
// run:progress events and the outcome as a run:complete event.
//
// HealthService reports process uptime and the state of the hub and run
// service.
//
// # Testing
//
// Services are tested with a mocked broadcaster:
//
//	hub := &MockBroadcaster{}
//	hub.On("Broadcast", ws.TypeRunComplete, mock.Anything, mock.Anything).Return()
//	svc := NewRunService(config.DefaultProcessing(), nil, hub, nil, logger)
package services
