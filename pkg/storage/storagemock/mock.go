package storagemock

import (
	"context"
	"sort"
	"sync"

	"github.com/helioscontrol/helioscontrol/pkg/storage"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// MockDatabase is an in-memory Database for tests. It is stateful so
// handler tests can create a preset and read it back in the same test.
type MockDatabase struct {
	mu              sync.Mutex
	settings        types.Settings
	settingsVersion int
	presets         map[string]types.NamedPreset

	// Err forces every call to fail when set.
	Err error
}

var _ storage.Database = (*MockDatabase)(nil)

func New() *MockDatabase {
	return &MockDatabase{presets: make(map[string]types.NamedPreset)}
}

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return types.Settings{}, 0, m.Err
	}
	return m.settings, m.settingsVersion, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.settings = settings
	m.settingsVersion = version
	return nil
}

func (m *MockDatabase) ListPresets(ctx context.Context) ([]types.NamedPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]types.NamedPreset, 0, len(m.presets))
	for _, p := range m.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockDatabase) GetPreset(ctx context.Context, id string) (types.NamedPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return types.NamedPreset{}, m.Err
	}
	p, ok := m.presets[id]
	if !ok {
		return types.NamedPreset{}, storage.ErrPresetNotFound
	}
	return p, nil
}

func (m *MockDatabase) UpsertPreset(ctx context.Context, preset types.NamedPreset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.presets[preset.ID] = preset
	return nil
}

func (m *MockDatabase) DeletePreset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.presets[id]; !ok {
		return storage.ErrPresetNotFound
	}
	delete(m.presets, id)
	return nil
}

func (m *MockDatabase) Close() error { return nil }
