package watch

import (
	"context"
	"log/slog"

	"github.com/specdrive/specdrive/resolve"
)

// Monitor drives a SpecWatcher and re-runs candidate resolution after each
// debounced batch of changes, logging whenever the selected specification
// differs from the previous run.
type Monitor struct {
	watcher  *SpecWatcher
	resolver *resolve.Resolver
	opts     resolve.Options
	logger   *slog.Logger

	resolvedOnce bool
	lastPath     string
}

// NewMonitor wires a watcher to a resolver.
func NewMonitor(watcher *SpecWatcher, resolver *resolve.Resolver, opts resolve.Options, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		watcher:  watcher,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
	}
}

// Run performs an initial resolution, then blocks re-resolving after each
// change until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.watcher.Start(ctx); err != nil {
		return err
	}
	defer m.watcher.Stop()

	m.resolveAndLog()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events():
			if !ok {
				return nil
			}
			// One debounce flush can emit several events; fold the
			// burst into a single re-resolution.
			extra := m.drain()
			m.logger.Debug("Spec roots changed",
				"path", event.Path,
				"op", event.Operation,
				"events", 1+extra)
			m.resolveAndLog()
		}
	}
}

// drain consumes any immediately available events without blocking.
func (m *Monitor) drain() int {
	n := 0
	for {
		select {
		case _, ok := <-m.watcher.Events():
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

// resolveAndLog runs one resolution pass and reports selection changes.
func (m *Monitor) resolveAndLog() {
	candidate, err := m.resolver.Resolve(m.opts)
	if err != nil {
		m.logger.Error("Resolution failed", "error", err)
		return
	}

	path := ""
	if candidate != nil {
		path = candidate.Path
	}

	if m.resolvedOnce && path == m.lastPath {
		m.logger.Debug("Selected specification unchanged", "path", path)
		return
	}
	m.resolvedOnce = true
	m.lastPath = path

	if candidate == nil {
		m.logger.Info("No specification selected, fallback prompt applies")
		return
	}
	m.logger.Info("Selected specification",
		"path", candidate.Path,
		"format", candidate.Format,
		"via", candidate.DiscoveredVia)
}
