package health

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/tracething/pkg/log"
)

// ReportFunc receives the health of a named target after every check
type ReportFunc func(name string, healthy bool, message string)

// Monitor runs a set of named checks on their own intervals
type Monitor struct {
	report ReportFunc

	mu      sync.Mutex
	targets map[string]*target
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// target tracks the state of a single registered checker
type target struct {
	name    string
	checker Checker
	config  Config

	mu     sync.Mutex
	status *Status
}

// NewMonitor creates a monitor that hands every result to report
func NewMonitor(report ReportFunc) *Monitor {
	return &Monitor{
		report:  report,
		targets: make(map[string]*target),
	}
}

// Add registers a check. Checks added after Start are ignored.
func (m *Monitor) Add(name string, checker Checker, config Config) {
	if config.Interval <= 0 || config.Timeout <= 0 || config.Retries <= 0 {
		def := DefaultConfig()
		if config.Interval <= 0 {
			config.Interval = def.Interval
		}
		if config.Timeout <= 0 {
			config.Timeout = def.Timeout
		}
		if config.Retries <= 0 {
			config.Retries = def.Retries
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[name] = &target{
		name:    name,
		checker: checker,
		config:  config,
		status:  NewStatus(),
	}
}

// Start launches one loop per check
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	ctx, m.cancel = context.WithCancel(ctx)
	for _, p := range m.targets {
		m.wg.Add(1)
		go m.loop(ctx, p)
	}
}

// Stop cancels every check loop and waits for them to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Status returns a copy of the named target's status
func (m *Monitor) Status(name string) (Status, bool) {
	m.mu.Lock()
	p, ok := m.targets[name]
	m.mu.Unlock()
	if !ok {
		return Status{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.status, true
}

func (m *Monitor) loop(ctx context.Context, p *target) {
	defer m.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Run initial check immediately
	m.run(ctx, p)

	for {
		select {
		case <-ticker.C:
			m.run(ctx, p)
		case <-ctx.Done():
			return
		}
	}
}

// run performs a single check and reports the result
func (m *Monitor) run(ctx context.Context, p *target) {
	checkCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	result := p.checker.Check(checkCtx)
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	changed := p.status.Update(result, p.config)
	healthy := p.status.Healthy
	failures := p.status.ConsecutiveFailures
	p.mu.Unlock()

	if changed {
		ev := log.Logger.Info()
		if !healthy {
			ev = log.Logger.Warn()
		}
		ev.Str("component", "health").
			Str("target", p.name).
			Str("type", string(p.checker.Type())).
			Bool("healthy", healthy).
			Int("failures", failures).
			Str("message", result.Message).
			Msg("health state changed")
	}

	if m.report != nil {
		m.report(p.name, healthy, result.Message)
	}
}
