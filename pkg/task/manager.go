package task

import (
	"context"
	"fmt"
	"sync"

	"compress-service/pkg/logger"
)

// BackgroundTask represents a long-running background process (consumer, worker, registration).
type BackgroundTask interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// Manager starts tasks in registration order and stops them in reverse.
type Manager struct {
	tasks   []BackgroundTask
	started []BackgroundTask
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{tasks: make([]BackgroundTask, 0)}
}

var defaultManager = NewManager()

// Register adds a background task; should be called during assembly before StartAll.
func (m *Manager) Register(task BackgroundTask) {
	if task == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

// StartAll starts all registered tasks once. If one fails, the ones already
// started are stopped again.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	for _, t := range m.tasks {
		if err := t.Start(runCtx); err != nil {
			logger.Error("background task start failed", map[string]interface{}{"task": t.Name(), "error": err.Error()})
			m.stopLocked()
			return fmt.Errorf("start %s: %w", t.Name(), err)
		}
		logger.Info("background task started", map[string]interface{}{"task": t.Name()})
		m.started = append(m.started, t)
	}
	return nil
}

// StopAll stops all running tasks.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	for i := len(m.started) - 1; i >= 0; i-- {
		t := m.started[i]
		if err := t.Stop(); err != nil {
			logger.Warn("background task stop failed", map[string]interface{}{"task": t.Name(), "error": err.Error()})
		}
	}
	m.started = nil
	m.cancel = nil
}

// Register adds a task to the default manager.
func Register(task BackgroundTask) { defaultManager.Register(task) }

// StartAll starts the default manager.
func StartAll(ctx context.Context) error { return defaultManager.StartAll(ctx) }

// StopAll stops the default manager.
func StopAll() { defaultManager.StopAll() }
