package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RestartMode is the engine-level rule for restarting a crashed container.
type RestartMode string

const (
	RestartModeNone          RestartMode = "no"
	RestartModeOnFailure     RestartMode = "on-failure"
	RestartModeUnlessStopped RestartMode = "unless-stopped"
	RestartModeAlways        RestartMode = "always"
)

// RestartPolicy is attached to the container at creation or mutated in place.
type RestartPolicy struct {
	Mode       RestartMode
	MaxRetries int           // on-failure only; 0 means unlimited
	Delay      time.Duration // back-off between attempts, when the creator recorded one
}

// RestartNone disables automatic restarts.
func RestartNone() RestartPolicy {
	return RestartPolicy{Mode: RestartModeNone}
}

// RestartOnFailure restarts on non-zero exit, up to maxRetries times.
func RestartOnFailure(maxRetries int, delay time.Duration) RestartPolicy {
	return RestartPolicy{Mode: RestartModeOnFailure, MaxRetries: maxRetries, Delay: delay}
}

// RestartUnlessStopped restarts until explicitly stopped.
func RestartUnlessStopped() RestartPolicy {
	return RestartPolicy{Mode: RestartModeUnlessStopped}
}

// IsNone reports whether auto-restart is disabled.
func (p RestartPolicy) IsNone() bool {
	return p.Mode == RestartModeNone || p.Mode == ""
}

// String renders the policy in engine notation (e.g. "on-failure:5").
func (p RestartPolicy) String() string {
	if p.IsNone() {
		return string(RestartModeNone)
	}
	if p.Mode == RestartModeOnFailure && p.MaxRetries > 0 {
		return fmt.Sprintf("%s:%d", p.Mode, p.MaxRetries)
	}
	return string(p.Mode)
}

// ParseRestartPolicy parses engine notation. Unknown modes are rejected.
func ParseRestartPolicy(s string) (RestartPolicy, error) {
	s = strings.TrimSpace(s)
	mode, retries, hasRetries := strings.Cut(s, ":")
	switch RestartMode(mode) {
	case "", RestartModeNone:
		return RestartNone(), nil
	case RestartModeUnlessStopped:
		return RestartUnlessStopped(), nil
	case RestartModeAlways:
		return RestartPolicy{Mode: RestartModeAlways}, nil
	case RestartModeOnFailure:
		if !hasRetries {
			return RestartOnFailure(0, 0), nil
		}
		n, err := strconv.Atoi(retries)
		if err != nil || n < 0 {
			return RestartPolicy{}, fmt.Errorf("%w: invalid retry count %q", ErrInvalidConfig, retries)
		}
		return RestartOnFailure(n, 0), nil
	default:
		return RestartPolicy{}, fmt.Errorf("%w: unsupported restart policy %q", ErrInvalidConfig, s)
	}
}
