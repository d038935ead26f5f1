package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReaper runs the stuck-job reaper.
	ServiceModeReaper ServiceMode = "reaper"
	// ServiceModeHousekeeping runs periodic maintenance such as rate-limit table sweeps.
	ServiceModeHousekeeping ServiceMode = "housekeeping"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeReaper,
		ServiceModeHousekeeping,
	}
}

// ErrNoServices is returned when the services list names nothing.
var ErrNoServices = errors.New("at least one service must be specified")

// ParseServices parses a comma-delimited list such as "http,reaper".
// Blank entries are skipped and duplicates collapse. Unknown names are an error.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	valid := ValidServiceModes()
	enabled := make(map[ServiceMode]bool, len(valid))

	for _, name := range strings.Split(servicesStr, ",") {
		mode := ServiceMode(strings.TrimSpace(name))
		if mode == "" {
			continue
		}
		if !slices.Contains(valid, mode) {
			return nil, fmt.Errorf("invalid service name %q (valid: %s)", mode, joinModes(valid))
		}
		enabled[mode] = true
	}

	if len(enabled) == 0 {
		return nil, ErrNoServices
	}
	return enabled, nil
}

func joinModes(modes []ServiceMode) string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// ReaperConfig contains configuration for the stuck-job reaper.
type ReaperConfig struct {
	// Interval is how often the reaper sweeps the registry.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// StuckAfter is the age past which a live job is force-terminated regardless of progress.
	StuckAfter time.Duration `env:"REAPER_STUCK_AFTER" envDefault:"10m"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Second {
		r.Interval = time.Second
	}
	if r.StuckAfter <= 0 {
		r.StuckAfter = 10 * time.Minute
	}
}
