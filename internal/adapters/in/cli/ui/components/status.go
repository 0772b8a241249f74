package components

import (
	"github.com/bnema/ledgerctl/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/ledgerctl/internal/domain"
)

// Status represents a status type for rendering.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusWarning
	StatusInfo
	StatusPending
)

// RenderStatusBadge renders a status as a badge with background.
func RenderStatusBadge(status Status, label string) string {
	switch status {
	case StatusSuccess:
		return styles.Theme.BadgeSuccess.Render(label)
	case StatusError:
		return styles.Theme.BadgeError.Render(label)
	case StatusWarning:
		return styles.Theme.BadgeWarning.Render(label)
	case StatusPending:
		return styles.Theme.BadgePending.Render(label)
	default:
		return styles.Theme.BadgeInfo.Render(label)
	}
}

// StateStatus maps a runtime state to a rendering status.
func StateStatus(state domain.RuntimeState, inMaintenance bool) Status {
	switch {
	case state == domain.StateRunning:
		return StatusSuccess
	case inMaintenance:
		return StatusWarning
	case state == domain.StateStopped:
		return StatusError
	default:
		return StatusPending
	}
}

// HealthStatus maps a health classification to a rendering status.
func HealthStatus(status domain.HealthStatus) Status {
	switch status {
	case domain.HealthHealthy:
		return StatusSuccess
	case domain.HealthDegraded:
		return StatusWarning
	default:
		return StatusError
	}
}

// StateBadge renders the node state, marking the maintenance window.
func StateBadge(state domain.RuntimeState, inMaintenance bool) string {
	label := string(state)
	if inMaintenance {
		label = "maintenance"
	}
	return RenderStatusBadge(StateStatus(state, inMaintenance), label)
}

// HealthBadge renders a health classification.
func HealthBadge(status domain.HealthStatus) string {
	return RenderStatusBadge(HealthStatus(status), string(status))
}
