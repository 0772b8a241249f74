package domain

import "time"

// RuntimeState is derived from a fresh inspection on every call, never stored.
type RuntimeState string

const (
	StateNotFound RuntimeState = "not-found"
	StateStopped  RuntimeState = "stopped"
	StateRunning  RuntimeState = "running"
)

// ContainerInfo is an inspection snapshot of the managed container.
type ContainerInfo struct {
	ID           string
	Name         string
	Image        string
	Status       string // raw engine status: created, running, exited, restarting...
	Running      bool
	ExitCode     int
	RestartCount int
	StartedAt    time.Time
	FinishedAt   time.Time
	Policy       RestartPolicy
	Ports        []PortBinding
}

// PortBinding maps a container port to its published host port.
type PortBinding struct {
	ContainerPort string
	HostIP        string
	HostPort      string
}

// StateOf derives the runtime state from an inspection. A nil info means
// the container does not exist.
func StateOf(info *ContainerInfo) RuntimeState {
	switch {
	case info == nil:
		return StateNotFound
	case info.Running:
		return StateRunning
	default:
		return StateStopped
	}
}

// InMaintenance is the only place the maintenance window is derived:
// auto-restart disabled and the container present but stopped.
func InMaintenance(info *ContainerInfo) bool {
	return StateOf(info) == StateStopped && info.Policy.IsNone()
}

// StatusReport is returned by the service status operation.
type StatusReport struct {
	Name          string
	State         RuntimeState
	InMaintenance bool
	ID            string
	Image         string
	Policy        RestartPolicy
	Ports         []PortBinding
	StartedAt     time.Time
	Uptime        time.Duration
}

// LogOptions controls log streaming.
type LogOptions struct {
	Follow     bool
	Tail       string // "all" or a line count
	Timestamps bool
}
