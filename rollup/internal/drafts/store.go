// Package drafts persists wizard sessions so they can be resumed later.
package drafts

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/wizard"
)

// ErrNotFound is returned for unknown or expired drafts.
var ErrNotFound = errors.New("draft not found")

// Store saves and loads wizard states by session id.
type Store interface {
	Save(ctx context.Context, state wizard.State) error
	Load(ctx context.Context, id string) (wizard.State, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Summary, error)
}

// Summary describes a saved draft without its field set.
type Summary struct {
	ID          string       `json:"id"`
	JobID       string       `json:"job_id"`
	SourceIndex string       `json:"source_index"`
	Step        wizard.Step  `json:"step"`
	Phase       wizard.Phase `json:"phase"`
	Edit        bool         `json:"edit"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func summarize(s wizard.State, updated time.Time) Summary {
	return Summary{
		ID:          s.ID,
		JobID:       s.Job.ID,
		SourceIndex: s.Job.SourceIndex,
		Step:        s.CurrentStep,
		Phase:       s.Phase,
		Edit:        s.Edit,
		UpdatedAt:   updated,
	}
}

// sortSummaries orders newest first.
func sortSummaries(out []Summary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

type memoryEntry struct {
	state   wizard.State
	updated time.Time
}

// MemoryStore keeps drafts in process memory. It backs the service when
// Redis is disabled and the CLI.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore. A zero ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return m.ttl > 0 && m.now().Sub(e.updated) > m.ttl
}

func (m *MemoryStore) Save(_ context.Context, state wizard.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[state.ID] = memoryEntry{state: state.Clone(), updated: m.now()}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (wizard.State, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok || m.expired(e) {
		return wizard.State{}, ErrNotFound
	}
	return e.state.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Summary, 0, len(m.entries))
	for id, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, id)
			continue
		}
		out = append(out, summarize(e.state, e.updated))
	}
	sortSummaries(out)
	return out, nil
}
