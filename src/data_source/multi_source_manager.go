// Package datasource manages the market data feeds and fans their tickers out.
package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"paper-trader/src/interfaces"
	"paper-trader/src/logger"
	"paper-trader/src/models"
)

// MultiSourceManager owns the named feeds and their shared lifecycle context.
type MultiSourceManager struct {
	Feeds      map[string]interfaces.IFeed
	Logger     *logger.Logger
	mu         sync.RWMutex
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(feeds []interfaces.IFeed, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Feeds:  make(map[string]interfaces.IFeed),
		Logger: log,
	}
	for _, f := range feeds {
		m.Feeds[f.Name()] = f
	}
	return m
}

// -----------------------------------------------------------------------------

// AddFeed registers a feed and starts it if the manager is running.
func (m *MultiSourceManager) AddFeed(feed interfaces.IFeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := feed.Name()
	if _, exists := m.Feeds[name]; exists {
		return fmt.Errorf("feed %s already exists", name)
	}
	m.Feeds[name] = feed
	m.Logger.Info("Added feed: %s", name)

	if m.ctx != nil {
		if err := feed.Start(m.ctx); err != nil {
			return fmt.Errorf("failed to start feed %s: %w", name, err)
		}
		m.Logger.Info("Started feed: %s", name)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) GetFeed(name string) (interfaces.IFeed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	feed, exists := m.Feeds[name]
	if !exists {
		return nil, fmt.Errorf("feed %s not found", name)
	}
	return feed, nil
}

// -----------------------------------------------------------------------------

// Start starts every feed. A feed that fails to start is logged and skipped:
// the service keeps running on whatever data is left.
func (m *MultiSourceManager) Start(parentCtx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("MultiSourceManager is already running")
	}
	m.ctx, m.cancelFunc = context.WithCancel(parentCtx)

	for _, name := range m.namesLocked() {
		if err := m.Feeds[name].Start(m.ctx); err != nil {
			m.Logger.Error("Failed to start feed %s: %v", name, err)
		}
	}
	return nil
}

// Stop stops every feed and cancels the shared context.
func (m *MultiSourceManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil
	}
	m.Logger.Info("Stopping MultiSourceManager...")
	for _, f := range m.Feeds {
		if err := f.Stop(); err != nil {
			m.Logger.Error("Error stopping feed %s: %v", f.Name(), err)
		}
	}
	m.cancelFunc()
	m.cancelFunc = nil
	m.ctx = nil
	m.Logger.Info("MultiSourceManager Stopped.")
	return nil
}

// -----------------------------------------------------------------------------

// StartFeed starts one feed by name.
func (m *MultiSourceManager) StartFeed(name string) error {
	m.mu.RLock()
	feed, exists := m.Feeds[name]
	ctx := m.ctx
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("feed %s not found", name)
	}
	if ctx == nil {
		return fmt.Errorf("MultiSourceManager is not running")
	}
	if feed.IsRunning() {
		return nil
	}
	return feed.Start(ctx)
}

// StopFeed stops one feed by name.
func (m *MultiSourceManager) StopFeed(name string) error {
	feed, err := m.GetFeed(name)
	if err != nil {
		return err
	}
	return feed.Stop()
}

// -----------------------------------------------------------------------------

// ListStatus reports every feed, sorted by name.
func (m *MultiSourceManager) ListStatus() []models.MFeedStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.MFeedStatus, 0, len(m.Feeds))
	for _, name := range m.namesLocked() {
		f := m.Feeds[name]
		out = append(out, models.MFeedStatus{
			Name:       name,
			Market:     f.Market(),
			IsRunning:  f.IsRunning(),
			IsRealTime: f.IsRealTime(),
		})
	}
	return out
}

func (m *MultiSourceManager) namesLocked() []string {
	names := make([]string, 0, len(m.Feeds))
	for name := range m.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
