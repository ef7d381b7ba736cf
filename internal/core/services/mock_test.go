package services

import (
	"context"
	"sync"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

type upsertCall struct {
	uid  string
	docs []domain.Document
}

// mockStore is an in-memory DocumentStore recording every call.
type mockStore struct {
	mu sync.Mutex

	ensureIndexCalls    []string
	ensureSettingsCalls []string
	settings            map[string]driven.IndexSettings
	upserts             []upsertCall
	deletesByPath       []string
	deletesByIDs        [][]string
	states              map[string]driven.FileState
	sourcePaths         map[string][]string
	indexes             []string
	searchResult        *driven.SearchResult
	searchAllCalls      [][]string

	// upsertGate, when set, blocks every UpsertDocuments call until the
	// channel is closed. upsertEntered receives a non-blocking signal when
	// a call reaches the gate.
	upsertGate    chan struct{}
	upsertEntered chan struct{}

	// upsertErrs is popped one per UpsertDocuments call; nil entries mean
	// success.
	upsertErrs  []error
	settingsErr error
	fetchErr    error
	deleteErr   error
	listErr     error
}

func newMockStore() *mockStore {
	return &mockStore{
		settings:    make(map[string]driven.IndexSettings),
		states:      make(map[string]driven.FileState),
		sourcePaths: make(map[string][]string),
	}
}

func stateKey(uid, sourcePath string) string { return uid + ":" + sourcePath }

func (m *mockStore) EnsureIndex(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureIndexCalls = append(m.ensureIndexCalls, uid)
	return nil
}

func (m *mockStore) EnsureSettings(_ context.Context, uid string, settings driven.IndexSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSettingsCalls = append(m.ensureSettingsCalls, uid)
	if m.settingsErr != nil {
		return m.settingsErr
	}
	m.settings[uid] = settings
	return nil
}

func (m *mockStore) UpsertDocuments(_ context.Context, uid string, docs []domain.Document) error {
	m.mu.Lock()
	gate := m.upsertGate
	entered := m.upsertEntered
	m.mu.Unlock()
	if gate != nil {
		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.upsertErrs) > 0 {
		err := m.upsertErrs[0]
		m.upsertErrs = m.upsertErrs[1:]
		if err != nil {
			return err
		}
	}

	m.upserts = append(m.upserts, upsertCall{uid: uid, docs: append([]domain.Document(nil), docs...)})
	for _, doc := range docs {
		m.states[stateKey(uid, doc.SourcePath)] = driven.FileState{
			FileHash: doc.FileHash,
			Bytes:    doc.Bytes,
			MtimeNs:  doc.MtimeNs,
		}
	}
	return nil
}

func (m *mockStore) DeleteBySourcePath(_ context.Context, uid, sourcePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletesByPath = append(m.deletesByPath, stateKey(uid, sourcePath))
	delete(m.states, stateKey(uid, sourcePath))
	return nil
}

func (m *mockStore) DeleteByIDs(_ context.Context, _ string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletesByIDs = append(m.deletesByIDs, append([]string(nil), ids...))
	return nil
}

func (m *mockStore) FetchFileState(_ context.Context, uid, sourcePath string) (*driven.FileState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	state, ok := m.states[stateKey(uid, sourcePath)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

func (m *mockStore) ListSourcePaths(_ context.Context, uid string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.sourcePaths[uid]...), nil
}

func (m *mockStore) Search(_ context.Context, uid, query string, limit, offset int64) (*driven.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchResult != nil {
		return m.searchResult, nil
	}
	return &driven.SearchResult{Query: query, Limit: limit, Offset: offset}, nil
}

func (m *mockStore) SearchAll(_ context.Context, uids []string, query string, limit int64) ([]driven.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchAllCalls = append(m.searchAllCalls, append([]string(nil), uids...))
	results := make([]driven.SearchResult, 0, len(uids))
	for _, uid := range uids {
		results = append(results, driven.SearchResult{Index: uid, Query: query, Limit: limit})
	}
	return results, nil
}

func (m *mockStore) ListIndexes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.indexes...), nil
}

func (m *mockStore) Health(_ context.Context) error { return nil }

func (m *mockStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

func (m *mockStore) upsertedDocs() []domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []domain.Document
	for _, call := range m.upserts {
		docs = append(docs, call.docs...)
	}
	return docs
}

var _ driven.DocumentStore = (*mockStore)(nil)
