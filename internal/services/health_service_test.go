package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"wbbcli/internal/config"
)

type fixedCounter int

func (c fixedCounter) ClientCount() int { return int(c) }

func TestHealthService_HealthCheck(t *testing.T) {
	runs := NewRunService(config.DefaultProcessing(), nil, nil, nil, quietLogger())
	defer runs.Shutdown(context.Background())

	tests := []struct {
		description string
		hub         ClientCounter
		runs        *RunService
		wantStatus  string
		wantWS      string
	}{
		{description: "all ready", hub: fixedCounter(2), runs: runs, wantStatus: "ok", wantWS: "2 clients"},
		{description: "single client", hub: fixedCounter(1), runs: runs, wantStatus: "ok", wantWS: "1 client"},
		{description: "no hub", runs: runs, wantStatus: "degraded", wantWS: "websocket hub not initialized"},
		{description: "no run service", hub: fixedCounter(0), wantStatus: "degraded", wantWS: "0 clients"},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			hs := NewHealthService("1.2.3", tc.hub, tc.runs, quietLogger())
			status := hs.HealthCheck(context.Background())

			assert.Equal(t, tc.wantStatus, status.Status)
			assert.Equal(t, "1.2.3", status.Version)
			assert.Equal(t, tc.wantWS, status.Services["websocket"].Message)
			assert.Contains(t, status.Runtime, "go_version")
			if tc.runs != nil {
				assert.Equal(t, "idle", status.Services["runs"].Message)
			}
		})
	}
}
