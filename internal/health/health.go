package health

import (
	"sort"
	"sync"
	"time"

	"github.com/breeze-rmm/screencap/internal/desktop"
	"github.com/breeze-rmm/screencap/internal/logging"
)

var log = logging.L("health")

// Status is the health of one capture session.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
	Unknown   Status = "unknown"
)

func (s Status) IsValid() bool {
	switch s {
	case Healthy, Degraded, Unhealthy, Unknown:
		return true
	}
	return false
}

// Check is the latest observation for a named session.
type Check struct {
	Name      string    `json:"name" yaml:"name"`
	Status    Status    `json:"status" yaml:"status"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	Frames    uint64    `json:"frames" yaml:"frames"`
	Timeouts  uint64    `json:"timeouts" yaml:"timeouts"`
	Failures  uint64    `json:"failures" yaml:"failures"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Monitor tracks capture sessions by name.
type Monitor struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewMonitor() *Monitor {
	return &Monitor{
		checks: make(map[string]Check),
	}
}

// Update records a status for name. Invalid statuses are stored as
// Unhealthy.
func (m *Monitor) Update(name string, status Status, message string) {
	if !status.IsValid() {
		status = Unhealthy
	}

	m.mu.Lock()
	c := m.checks[name]
	prev := c.Status
	c.Name = name
	c.Status = status
	c.Message = message
	c.UpdatedAt = time.Now()
	m.checks[name] = c
	m.mu.Unlock()

	if status != Healthy && status != prev {
		log.Warn("capture health changed", "session", name, "status", string(status), "message", message)
	}
}

// Observe classifies the outcome of one frame pull. A timeout only means
// the desktop did not change, so it keeps the session healthy.
func (m *Monitor) Observe(name string, err error) Status {
	var status Status
	message := ""
	switch kind := desktop.KindOf(err); {
	case err == nil, kind == desktop.KindTimedOut:
		status = Healthy
	case kind == desktop.KindTemporarilyUnavailable:
		status = Degraded
		message = err.Error()
	default:
		status = Unhealthy
		message = err.Error()
	}

	m.mu.Lock()
	c := m.checks[name]
	switch {
	case err == nil:
		c.Frames++
	case desktop.KindOf(err) == desktop.KindTimedOut:
		c.Timeouts++
	default:
		c.Failures++
	}
	m.checks[name] = c
	m.mu.Unlock()

	m.Update(name, status, message)
	return status
}

func (m *Monitor) Get(name string) (Check, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.checks[name]
	return c, ok
}

// Overall returns the worst status across all sessions, or Unknown when
// nothing has been recorded.
func (m *Monitor) Overall() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overallLocked()
}

func (m *Monitor) overallLocked() Status {
	if len(m.checks) == 0 {
		return Unknown
	}
	worst := Healthy
	for _, c := range m.checks {
		if worse(c.Status, worst) {
			worst = c.Status
		}
	}
	return worst
}

// All returns a snapshot sorted by name.
func (m *Monitor) All() []Check {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Check, 0, len(m.checks))
	for _, c := range m.checks {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Summary returns the overall status and each session's status, taken
// under one lock.
func (m *Monitor) Summary() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	components := make(map[string]string, len(m.checks))
	for _, c := range m.checks {
		components[c.Name] = string(c.Status)
	}
	return map[string]any{
		"status":     string(m.overallLocked()),
		"components": components,
	}
}

func worse(a, b Status) bool {
	return statusRank(a) > statusRank(b)
}

func statusRank(s Status) int {
	switch s {
	case Healthy:
		return 0
	case Degraded:
		return 1
	case Unhealthy:
		return 2
	case Unknown:
		return 3
	default:
		return 0
	}
}
