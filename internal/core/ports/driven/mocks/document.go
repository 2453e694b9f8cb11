package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

var (
	_ driven.DocumentSource   = (*MockDocumentSource)(nil)
	_ driven.DocumentRenderer = (*MockRenderer)(nil)
)

// MockDocumentSource serves documents from memory
type MockDocumentSource struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMockDocumentSource creates a new MockDocumentSource
func NewMockDocumentSource() *MockDocumentSource {
	return &MockDocumentSource{docs: make(map[string][]byte)}
}

// Put registers a document under url
func (m *MockDocumentSource) Put(url string, doc []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[url] = doc
}

func (m *MockDocumentSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", url, domain.ErrNotFound)
	}
	return doc, nil
}

// MockRenderer treats every document as having a fixed list of pages and
// renders by appending the stamps as JSON to the input bytes. The output is
// a deterministic function of the input, which is all composition tests need.
type MockRenderer struct {
	Pages []domain.PageSize

	mu     sync.Mutex
	stamps [][]domain.TextStamp
}

// NewMockRenderer creates a renderer whose documents have the given pages
func NewMockRenderer(pages ...domain.PageSize) *MockRenderer {
	return &MockRenderer{Pages: pages}
}

func (m *MockRenderer) PageSizes(doc []byte) ([]domain.PageSize, error) {
	return append([]domain.PageSize(nil), m.Pages...), nil
}

func (m *MockRenderer) Render(doc []byte, stamps []domain.TextStamp) ([]byte, error) {
	m.mu.Lock()
	m.stamps = append(m.stamps, stamps)
	m.mu.Unlock()

	data, err := json.Marshal(stamps)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(doc)+len(data))
	out = append(out, doc...)
	return append(out, data...), nil
}

// LastStamps returns the stamps passed to the most recent Render call
func (m *MockRenderer) LastStamps() []domain.TextStamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stamps) == 0 {
		return nil
	}
	return m.stamps[len(m.stamps)-1]
}
