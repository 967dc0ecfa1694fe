package operations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbbcli/internal/config"
	"wbbcli/internal/infrastructure"
	"wbbcli/internal/operations/testutil"
	"wbbcli/pkg/contracts/domain"
)

func TestPipelineTracer_Nil(t *testing.T) {
	var pt *PipelineTracer
	ctx, endRun := pt.StartRun(context.Background(), "in", "out")
	_, endFile := pt.StartFile(ctx, "in/a.txt")
	endFile(domain.Written("in/a.txt", "out/a.txt.csv"))
	endRun(&domain.RunSummary{}, nil)
	assert.Nil(t, pt.Metrics())
}

func TestPipelineTracer_WithoutProviders(t *testing.T) {
	pt, err := NewPipelineTracer(nil)
	require.NoError(t, err)
	assert.Nil(t, pt.Metrics())

	_, endRun := pt.StartRun(context.Background(), "in", "out")
	endRun(nil, assert.AnError)
}

func TestPipelineTracer_RecordsRunMetrics(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	pt, err := NewPipelineTracer(providers)
	require.NoError(t, err)
	require.NotNil(t, pt.Metrics())

	f := newFixture(t)
	f.gen.Recording("good.txt", scenarioSamples)
	f.gen.Raw("bad.txt", testutil.RecordingHeader+"0 1\n")

	p, err := NewPipeline(config.DefaultProcessing(), WithTracer(pt), WithLogger(quietLogger()))
	require.NoError(t, err)
	_, err = p.Run(context.Background(), f.in, f.out)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, "resample_runs_total")
	assert.Contains(t, body, `status="written"`)
	assert.Contains(t, body, `status="failed"`)
}
