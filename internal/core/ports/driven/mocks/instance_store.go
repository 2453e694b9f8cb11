package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

var _ driven.InstanceStore = (*MockInstanceStore)(nil)

// MockInstanceStore is an in-memory InstanceStore. It copies instances in
// and out so callers cannot mutate stored state behind its back, and it
// applies the same conditional updates as the PostgreSQL store.
type MockInstanceStore struct {
	mu        sync.RWMutex
	instances map[string]*domain.Instance
	progress  map[string][]*domain.SigningProgress

	// Custom behavior hooks (optional)
	UpdateFieldValuesFn func(instanceID string, values map[string]string) error
	MarkSignedFn        func(instanceID, recipientID string) error
	MarkCompletedFn     func(instanceID string) error
	ListProgressFn      func(instanceID string) ([]*domain.SigningProgress, error)

	markSignedCalls int
}

// NewMockInstanceStore creates a new MockInstanceStore
func NewMockInstanceStore() *MockInstanceStore {
	return &MockInstanceStore{
		instances: make(map[string]*domain.Instance),
		progress:  make(map[string][]*domain.SigningProgress),
	}
}

func (m *MockInstanceStore) Create(ctx context.Context, instance *domain.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.instances[instance.ID]; exists {
		return domain.ErrAlreadyExists
	}
	m.instances[instance.ID] = cloneInstance(instance)
	return nil
}

func (m *MockInstanceStore) Get(ctx context.Context, id string) (*domain.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneInstance(inst), nil
}

func (m *MockInstanceStore) ListByOwner(ctx context.Context, ownerID string, deleted bool) ([]*domain.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Instance
	for _, inst := range m.instances {
		if inst.OwnerID == ownerID && inst.Deleted == deleted {
			result = append(result, cloneInstance(inst))
		}
	}
	sortByCreated(result)
	return result, nil
}

func (m *MockInstanceStore) ListByRecipientEmail(ctx context.Context, email string) ([]*domain.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Instance
	for _, inst := range m.instances {
		if inst.Deleted || !inst.IsSent() {
			continue
		}
		for _, r := range inst.Recipients {
			if r.Email == email {
				result = append(result, cloneInstance(inst))
				break
			}
		}
	}
	sortByCreated(result)
	return result, nil
}

func (m *MockInstanceStore) ReplaceFields(ctx context.Context, instanceID string, fields []*domain.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return domain.ErrNotFound
	}
	if inst.Status != domain.InstanceStatusDraft {
		return domain.ErrAlreadySent
	}
	inst.Fields = make([]*domain.Field, 0, len(fields))
	for _, f := range fields {
		c := f.Clone()
		c.InstanceID = instanceID
		inst.Fields = append(inst.Fields, c)
	}
	inst.UpdatedAt = time.Now()
	return nil
}

func (m *MockInstanceStore) SetFavorite(ctx context.Context, instanceID string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return domain.ErrNotFound
	}
	inst.Favorite = favorite
	return nil
}

func (m *MockInstanceStore) SetDeleted(ctx context.Context, instanceID string, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return domain.ErrNotFound
	}
	inst.Deleted = deleted
	return nil
}

func (m *MockInstanceStore) Purge(ctx context.Context, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[instanceID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.instances, instanceID)
	delete(m.progress, instanceID)
	return nil
}

func (m *MockInstanceStore) MarkSent(ctx context.Context, instanceID string, mode domain.SigningMode, progress []*domain.SigningProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return domain.ErrNotFound
	}
	if inst.Status != domain.InstanceStatusDraft {
		return domain.ErrAlreadySent
	}
	now := time.Now()
	inst.Mode = mode
	inst.Status = domain.InstanceStatusSent
	inst.SentAt = &now
	records := make([]*domain.SigningProgress, 0, len(progress))
	for _, p := range progress {
		c := *p
		records = append(records, &c)
	}
	m.progress[instanceID] = records
	return nil
}

func (m *MockInstanceStore) ListProgress(ctx context.Context, instanceID string) ([]*domain.SigningProgress, error) {
	if m.ListProgressFn != nil {
		return m.ListProgressFn(instanceID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.progress[instanceID]
	result := make([]*domain.SigningProgress, 0, len(records))
	for _, p := range records {
		c := *p
		result = append(result, &c)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Rank < result[j].Rank })
	return result, nil
}

func (m *MockInstanceStore) UpdateFieldValues(ctx context.Context, instanceID string, values map[string]string) error {
	if m.UpdateFieldValuesFn != nil {
		return m.UpdateFieldValuesFn(instanceID, values)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	for _, f := range inst.Fields {
		if v, ok := values[f.ID]; ok {
			f.Value = v
			f.UpdatedAt = now
		}
	}
	return nil
}

func (m *MockInstanceStore) MarkSigned(ctx context.Context, instanceID, recipientID string) error {
	if m.MarkSignedFn != nil {
		return m.MarkSignedFn(instanceID, recipientID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.markSignedCalls++
	for _, p := range m.progress[instanceID] {
		if p.RecipientID != recipientID {
			continue
		}
		if p.IsSigned() {
			return domain.ErrAlreadySigned
		}
		now := time.Now()
		p.Status = domain.ProgressStatusSigned
		p.SignedAt = &now
		return nil
	}
	return domain.ErrNotFound
}

func (m *MockInstanceStore) MarkCompleted(ctx context.Context, instanceID string) error {
	if m.MarkCompletedFn != nil {
		return m.MarkCompletedFn(instanceID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return domain.ErrNotFound
	}
	if inst.Status != domain.InstanceStatusSent {
		return domain.ErrAlreadyCompleted
	}
	now := time.Now()
	inst.Status = domain.InstanceStatusCompleted
	inst.CompletedAt = &now
	return nil
}

// Helper methods for testing

// Put stores an instance directly, bypassing validation
func (m *MockInstanceStore) Put(instance *domain.Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[instance.ID] = cloneInstance(instance)
}

// PutProgress stores progress records directly
func (m *MockInstanceStore) PutProgress(instanceID string, progress []*domain.SigningProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[instanceID] = progress
}

// MarkSignedCalls returns how many times MarkSigned reached the store
func (m *MockInstanceStore) MarkSignedCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.markSignedCalls
}

// ProgressCount returns the number of progress records of an instance
func (m *MockInstanceStore) ProgressCount(instanceID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.progress[instanceID])
}

func cloneInstance(inst *domain.Instance) *domain.Instance {
	c := *inst
	c.Recipients = make([]*domain.Recipient, 0, len(inst.Recipients))
	for _, r := range inst.Recipients {
		c.Recipients = append(c.Recipients, r.Clone())
	}
	c.Fields = make([]*domain.Field, 0, len(inst.Fields))
	for _, f := range inst.Fields {
		c.Fields = append(c.Fields, f.Clone())
	}
	return &c
}

func sortByCreated(instances []*domain.Instance) {
	sort.SliceStable(instances, func(i, j int) bool {
		if instances[i].CreatedAt.Equal(instances[j].CreatedAt) {
			return instances[i].ID < instances[j].ID
		}
		return instances[i].CreatedAt.After(instances[j].CreatedAt)
	})
}
