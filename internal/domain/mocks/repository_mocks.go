package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/user/plugin-gateway/internal/domain"
)

// MockFlagRepository is a mock implementation of domain.FlagRepository.
type MockFlagRepository struct {
	mu        sync.Mutex
	Flags     map[domain.FlagKey]domain.FeatureFlag
	EnsureErr error
	ListErr   error
	SetErr    error
}

func NewMockFlagRepository() *MockFlagRepository {
	return &MockFlagRepository{Flags: make(map[domain.FlagKey]domain.FeatureFlag)}
}

func (m *MockFlagRepository) EnsureDefaults(ctx context.Context, keys []domain.FlagKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnsureErr != nil {
		return m.EnsureErr
	}
	for _, key := range keys {
		if _, ok := m.Flags[key]; !ok {
			m.Flags[key] = domain.FeatureFlag{Key: key, Enabled: false, Toggled: false, UpdatedAt: time.Now()}
		}
	}
	return nil
}

func (m *MockFlagRepository) List(ctx context.Context) ([]domain.FeatureFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	flags := make([]domain.FeatureFlag, 0, len(m.Flags))
	for _, f := range m.Flags {
		flags = append(flags, f)
	}
	return flags, nil
}

func (m *MockFlagRepository) Set(ctx context.Context, flag domain.FeatureFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Flags[flag.Key] = flag
	return nil
}

// MockPreferencesRepository is a mock implementation of domain.PreferencesRepository.
type MockPreferencesRepository struct {
	mu      sync.Mutex
	Docs    map[string]domain.UserPreferences
	GetErr  error
	SaveErr error
	Saves   int
}

func NewMockPreferencesRepository() *MockPreferencesRepository {
	return &MockPreferencesRepository{Docs: make(map[string]domain.UserPreferences)}
}

func (m *MockPreferencesRepository) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	doc, ok := m.Docs[userID]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (m *MockPreferencesRepository) Save(ctx context.Context, prefs domain.UserPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Docs[prefs.UserID] = prefs
	m.Saves++
	return nil
}

// MockDeletionJobRepository is a mock implementation of domain.DeletionJobRepository.
type MockDeletionJobRepository struct {
	mu        sync.Mutex
	Jobs      []domain.DeletionJob
	CreateErr error
}

func (m *MockDeletionJobRepository) Create(ctx context.Context, job domain.DeletionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Jobs = append(m.Jobs, job)
	return nil
}

// MockExportRepository is a mock implementation of domain.ExportRepository.
type MockExportRepository struct {
	mu        sync.Mutex
	Records   map[string]domain.ExportRecord // keyed by token
	CreateErr error
	FindErr   error
	MarkErr   error
}

func NewMockExportRepository() *MockExportRepository {
	return &MockExportRepository{Records: make(map[string]domain.ExportRecord)}
}

func (m *MockExportRepository) Create(ctx context.Context, record domain.ExportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Records[record.DownloadToken] = record
	return nil
}

func (m *MockExportRepository) FindByToken(ctx context.Context, token string) (*domain.ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	record, ok := m.Records[token]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *MockExportRepository) MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return false, m.MarkErr
	}
	for token, record := range m.Records {
		if record.ID == id && record.ConsumedAt == nil {
			record.ConsumedAt = &at
			m.Records[token] = record
			return true, nil
		}
	}
	return false, nil
}

// MockEventRepository is a mock implementation of domain.EventRepository.
type MockEventRepository struct {
	mu       sync.Mutex
	Events   map[string]domain.PluginEvent
	StoreErr error
	FindErr  error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{Events: make(map[string]domain.PluginEvent)}
}

func (m *MockEventRepository) Store(ctx context.Context, event domain.PluginEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StoreErr != nil {
		return m.StoreErr
	}
	m.Events[event.ID] = event
	return nil
}

func (m *MockEventRepository) FindByID(ctx context.Context, tenantID, id string) (*domain.PluginEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	event, ok := m.Events[id]
	if !ok || event.TenantID != tenantID {
		return nil, nil
	}
	return &event, nil
}

func (m *MockEventRepository) List(ctx context.Context, tenantID string, limit int) ([]domain.PluginEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.PluginEvent
	for _, event := range m.Events {
		if event.TenantID == tenantID {
			events = append(events, event)
		}
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func (m *MockEventRepository) Update(ctx context.Context, event domain.PluginEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Events[event.ID]
	if !ok || existing.TenantID != event.TenantID {
		return false, nil
	}
	m.Events[event.ID] = event
	return true, nil
}

func (m *MockEventRepository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.Events[id]
	if !ok || event.TenantID != tenantID {
		return false, nil
	}
	delete(m.Events, id)
	return true, nil
}
