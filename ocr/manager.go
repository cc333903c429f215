package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

// Factory builds an unloaded engine.
type Factory func() Engine

// Manager owns the active engine. At most one engine holds its model at any
// moment: Switch fully closes the old engine before loading the new one, so
// two models are never resident together.
type Manager struct {
	mu        sync.Mutex
	factories map[EngineID]Factory
	active    Engine
}

// NewManager registers the engine factories. Nothing is loaded yet.
func NewManager(factories map[EngineID]Factory) *Manager {
	return &Manager{factories: factories}
}

// Active returns the ID of the loaded engine, or "" when none is loaded.
func (m *Manager) Active() EngineID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.ID()
}

// Switch makes id the active engine. Switching to the already active engine
// is a no-op. On load failure the manager is left with no active engine and
// the error wraps ErrEngineUnavailable.
func (m *Manager) Switch(ctx context.Context, id EngineID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.ID() == id {
		return nil
	}

	factory, ok := m.factories[id]
	if !ok {
		return fmt.Errorf("%w: no factory for %s", ErrEngineUnavailable, id)
	}

	if m.active != nil {
		old := m.active.ID()
		if err := m.active.Close(); err != nil {
			logutil.Errorf("ocr: closing %s: %v", old, err)
		}
		m.active = nil
		logutil.Infof("ocr: switching engine %s -> %s", old, id)
	}

	engine := factory()
	if err := engine.Load(ctx); err != nil {
		engine.Close()
		return err
	}
	m.active = engine
	return nil
}

// Recognize runs the active engine over PNG pixels.
func (m *Manager) Recognize(ctx context.Context, png []byte) (string, error) {
	m.mu.Lock()
	engine := m.active
	m.mu.Unlock()

	if engine == nil {
		return "", fmt.Errorf("%w: no engine loaded", ErrEngineUnavailable)
	}
	return engine.Recognize(ctx, png)
}

// Close unloads the active engine.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	err := m.active.Close()
	m.active = nil
	return err
}
