package domain

import "time"

// HealthStatus classifies the node.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

// Classify maps running state and probe outcome to a health status.
func Classify(running, probeOK bool) HealthStatus {
	switch {
	case !running:
		return HealthDown
	case probeOK:
		return HealthHealthy
	default:
		return HealthDegraded
	}
}

// ProbeResult is the outcome of a network probe against the node endpoint.
type ProbeResult struct {
	URL        string
	Attempted  bool
	OK         bool
	StatusCode int
	LatencyMs  int64
	Error      string
}

// HealthReport is computed fresh per call and never cached.
type HealthReport struct {
	Name          string
	Status        HealthStatus
	Exists        bool
	Running       bool
	EngineStatus  string
	RestartCount  int
	StartedAt     time.Time
	FinishedAt    time.Time
	ExitCode      int
	RestartPolicy RestartPolicy
	Probe         ProbeResult
}

// Crashed reports whether a stopped container exited with a failure code.
func (r HealthReport) Crashed() bool {
	return r.Exists && !r.Running && r.ExitCode != 0
}

// LifecycleEvent is one engine event for the managed container.
type LifecycleEvent struct {
	Time     time.Time
	Action   string
	ExitCode string
}

// StatsWindow is the trailing window of lifecycle events in restart stats.
const StatsWindow = 24 * time.Hour

// RestartStats reports restart telemetry.
type RestartStats struct {
	Name         string
	State        RuntimeState
	RestartCount int
	Policy       RestartPolicy
	StartedAt    time.Time
	FinishedAt   time.Time
	ExitCode     int
	WindowStart  time.Time
	Events       []LifecycleEvent
}
