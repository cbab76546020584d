// Package workers corre tareas periódicas del servidor.
package workers

import (
	"context"
	"sync"
	"time"

	"vida-melhor/internal/platform/logger"
)

// Timeout de cada ejecución.
const runTimeout = 2 * time.Minute

// Worker es una tarea que se ejecuta cada Interval().
type Worker interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Manager arranca y detiene un conjunto de workers.
type Manager struct {
	log logger.Logger

	mu      sync.Mutex
	workers []Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{log: log}
}

func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, w)
	m.log.Info("worker registered", map[string]any{"worker": w.Name(), "interval": w.Interval().String()})
}

// Start lanza cada worker (corre una vez de inmediato y luego por ticker).
// Se detienen al cancelar ctx o con Stop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, m.cancel = context.WithCancel(ctx)
	for _, w := range m.workers {
		m.wg.Add(1)
		go m.loop(ctx, w)
	}
}

func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Names lista los workers registrados.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.workers))
	for i, w := range m.workers {
		out[i] = w.Name()
	}
	return out
}

func (m *Manager) loop(ctx context.Context, w Worker) {
	defer m.wg.Done()

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	m.execute(ctx, w)
	for {
		select {
		case <-ticker.C:
			m.execute(ctx, w)
		case <-ctx.Done():
			m.log.Info("worker stopped", map[string]any{"worker": w.Name()})
			return
		}
	}
}

func (m *Manager) execute(ctx context.Context, w Worker) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	if err := w.Run(ctx); err != nil {
		m.log.Error("worker run failed", map[string]any{"worker": w.Name(), "err": err})
		return
	}
	m.log.Debug("worker run ok", map[string]any{"worker": w.Name(), "duration_ms": time.Since(start).Milliseconds()})
}
