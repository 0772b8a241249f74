package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/ledgerctl/internal/boundaries/out/mocks"
	"github.com/bnema/ledgerctl/internal/domain"
	"github.com/bnema/ledgerctl/internal/testutils"
)

var node = domain.MustIdentity("ccf-node")

const nodeURL = "https://127.0.0.1:8000/node/state"

func testProbeConfig() ProbeConfig {
	return ProbeConfig{Host: "127.0.0.1", Port: 8000, Path: "/node/state", Timeout: time.Second}
}

func TestProbeConfig_URL(t *testing.T) {
	assert.Equal(t, nodeURL, testProbeConfig().URL())
	assert.Equal(t, "https://[::1]:9443/node/state", ProbeConfig{Host: "::1", Port: 9443, Path: "node/state"}.URL())
}

func TestService_HealthCheck_ContainerNotFound(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	prober := mocks.NewMockProber(t)
	svc := NewService(rt, prober, node, testProbeConfig(), testutils.TestLogger())

	report, err := svc.HealthCheck(testutils.TestContext(t))
	require.NoError(t, err)

	assert.Equal(t, domain.HealthDown, report.Status)
	assert.False(t, report.Exists)
	assert.False(t, report.Probe.Attempted)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestService_HealthCheck_StoppedSurfacesExitCode(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		crashed  bool
	}{
		{name: "clean stop", exitCode: 0, crashed: false},
		{name: "crash", exitCode: 137, crashed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := testutils.NewFakeRuntime()
			rt.AddNode(node, false, domain.RestartOnFailure(5, 10*time.Second), nil)
			rt.Containers["ccf-node"].ExitCode = tt.exitCode
			prober := mocks.NewMockProber(t)
			svc := NewService(rt, prober, node, testProbeConfig(), testutils.TestLogger())

			report, err := svc.HealthCheck(testutils.TestContext(t))
			require.NoError(t, err)

			assert.Equal(t, domain.HealthDown, report.Status)
			assert.True(t, report.Exists)
			assert.False(t, report.Running)
			assert.Equal(t, tt.exitCode, report.ExitCode)
			assert.Equal(t, tt.crashed, report.Crashed())
			assert.Equal(t, domain.RestartOnFailure(5, 10*time.Second), report.RestartPolicy)
			assert.False(t, report.Probe.Attempted)
		})
	}
}

func TestService_HealthCheck_RunningClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		latency    int64
		probeErr   error
		want       domain.HealthStatus
	}{
		{name: "200 is healthy", statusCode: 200, latency: 12, want: domain.HealthHealthy},
		{name: "302 is healthy", statusCode: 302, latency: 12, want: domain.HealthHealthy},
		{name: "399 is healthy", statusCode: 399, latency: 12, want: domain.HealthHealthy},
		{name: "400 is degraded", statusCode: 400, latency: 12, want: domain.HealthDegraded},
		{name: "503 is degraded", statusCode: 503, latency: 12, want: domain.HealthDegraded},
		{name: "connection refused is degraded", probeErr: errors.New("connection refused"), want: domain.HealthDegraded},
		{name: "timeout is degraded", probeErr: context.DeadlineExceeded, want: domain.HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := testutils.NewFakeRuntime()
			rt.AddNode(node, true, domain.RestartUnlessStopped(), nil)
			prober := mocks.NewMockProber(t)
			prober.On("Probe", mock.Anything, nodeURL).Return(tt.statusCode, tt.latency, tt.probeErr)
			svc := NewService(rt, prober, node, testProbeConfig(), testutils.TestLogger())

			report, err := svc.HealthCheck(testutils.TestContext(t))
			require.NoError(t, err)

			assert.Equal(t, tt.want, report.Status)
			assert.True(t, report.Running)
			assert.True(t, report.Probe.Attempted)
			assert.Equal(t, tt.want == domain.HealthHealthy, report.Probe.OK)
			if tt.want == domain.HealthHealthy {
				assert.Empty(t, report.Probe.Error)
				assert.Equal(t, tt.latency, report.Probe.LatencyMs)
			} else {
				assert.NotEmpty(t, report.Probe.Error)
			}
		})
	}
}

func TestService_HealthCheck_ProbeIsBounded(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.AddNode(node, true, domain.RestartUnlessStopped(), nil)
	prober := mocks.NewMockProber(t)
	prober.On("Probe", mock.Anything, nodeURL).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok, "probe context must carry a deadline")
		}).
		Return(200, int64(3), nil)
	svc := NewService(rt, prober, node, testProbeConfig(), testutils.TestLogger())

	_, err := svc.HealthCheck(context.Background())
	require.NoError(t, err)
}

func TestService_HealthCheck_InspectFailure(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.Errs["InspectContainer"] = errors.New("daemon unavailable")
	svc := NewService(rt, mocks.NewMockProber(t), node, testProbeConfig(), testutils.TestLogger())

	_, err := svc.HealthCheck(testutils.TestContext(t))
	assert.Error(t, err)
}

func TestService_HealthCheck_NeverCached(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.AddNode(node, true, domain.RestartUnlessStopped(), nil)
	prober := mocks.NewMockProber(t)
	prober.On("Probe", mock.Anything, nodeURL).Return(200, int64(3), nil).Once()
	svc := NewService(rt, prober, node, testProbeConfig(), testutils.TestLogger())

	first, err := svc.HealthCheck(testutils.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, first.Status)

	rt.Containers["ccf-node"].Running = false
	rt.Containers["ccf-node"].ExitCode = 1

	second, err := svc.HealthCheck(testutils.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, domain.HealthDown, second.Status)
}

func TestService_RestartStats(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	rt := testutils.NewFakeRuntime()
	rt.AddNode(node, true, domain.RestartOnFailure(5, 10*time.Second), nil)
	rt.Containers["ccf-node"].RestartCount = 3
	rt.EventLog = []domain.LifecycleEvent{
		{Time: now.Add(-30 * time.Hour), Action: "die", ExitCode: "1"},
		{Time: now.Add(-2 * time.Hour), Action: "die", ExitCode: "137"},
		{Time: now.Add(-2*time.Hour + time.Second), Action: "restart"},
		{Time: now.Add(-time.Hour), Action: "start"},
	}
	svc := NewService(rt, mocks.NewMockProber(t), node, testProbeConfig(), testutils.TestLogger())
	svc.now = func() time.Time { return now }

	stats, err := svc.RestartStats(testutils.TestContext(t))
	require.NoError(t, err)

	assert.Equal(t, domain.StateRunning, stats.State)
	assert.Equal(t, 3, stats.RestartCount)
	assert.Equal(t, domain.RestartOnFailure(5, 10*time.Second), stats.Policy)
	assert.True(t, now.Add(-24*time.Hour).Equal(stats.WindowStart))
	require.Len(t, stats.Events, 3)
	assert.Equal(t, "die", stats.Events[0].Action)
	assert.Equal(t, "137", stats.Events[0].ExitCode)
}

func TestService_RestartStats_EventLogUnavailable(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	rt.AddNode(node, false, domain.RestartNone(), nil)
	rt.EventsErr = errors.New("events endpoint disabled")
	svc := NewService(rt, mocks.NewMockProber(t), node, testProbeConfig(), testutils.TestLogger())

	stats, err := svc.RestartStats(testutils.TestContext(t))
	require.NoError(t, err)

	assert.NotNil(t, stats.Events)
	assert.Empty(t, stats.Events)
	assert.Equal(t, domain.StateStopped, stats.State)
}

func TestService_RestartStats_ContainerNotFound(t *testing.T) {
	rt := testutils.NewFakeRuntime()
	svc := NewService(rt, mocks.NewMockProber(t), node, testProbeConfig(), testutils.TestLogger())

	_, err := svc.RestartStats(testutils.TestContext(t))
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
}
