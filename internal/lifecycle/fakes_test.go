package lifecycle

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/outbox"
	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func clone[T any](v *T) *T {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

// memRequests is an in-memory servicerequest.Repository with compare-and-set writes
type memRequests struct {
	mu   sync.Mutex
	docs map[string]*servicerequest.ServiceRequest
}

func newMemRequests() *memRequests {
	return &memRequests{docs: map[string]*servicerequest.ServiceRequest{}}
}

func (m *memRequests) Create(_ context.Context, req *servicerequest.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[req.ID] = clone(req)
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id string) (*servicerequest.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, shared.NotFoundError{Resource: "Service", ID: id}
	}
	return clone(doc), nil
}

func (m *memRequests) List(_ context.Context, filter servicerequest.ListFilter, page shared.PageRequest) ([]*servicerequest.ServiceRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*servicerequest.ServiceRequest
	for _, doc := range m.docs {
		if filter.Phone != "" && doc.UserPhone != filter.Phone {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.ServiceType != "" && doc.ServiceType != filter.ServiceType {
			continue
		}
		if filter.AgentID != "" && doc.AssignedAgent != filter.AgentID {
			continue
		}
		matched = append(matched, clone(doc))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memRequests) SaveIfStatus(_ context.Context, req *servicerequest.ServiceRequest, expected servicerequest.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[req.ID]
	if !ok {
		return shared.NotFoundError{Resource: "Service", ID: req.ID}
	}
	if cur.Status != expected {
		return shared.ConflictError{Reason: "service status changed concurrently"}
	}
	m.docs[req.ID] = clone(req)
	return nil
}

func (m *memRequests) DeleteIfStatus(_ context.Context, id string, expected servicerequest.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[id]
	if !ok {
		return shared.NotFoundError{Resource: "Service", ID: id}
	}
	if cur.Status != expected {
		return shared.ConflictError{Reason: "only pending services can be deleted"}
	}
	delete(m.docs, id)
	return nil
}

func (m *memRequests) CountActiveByAgents(_ context.Context, agentIDs []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, id := range agentIDs {
		counts[id] = 0
	}
	for _, doc := range m.docs {
		if _, ok := counts[doc.AssignedAgent]; !ok {
			continue
		}
		if doc.Status == servicerequest.StatusAssigned || doc.Status == servicerequest.StatusInProgress {
			counts[doc.AssignedAgent]++
		}
	}
	return counts, nil
}

func (m *memRequests) ForEachBoundTerminal(ctx context.Context, fn func(*servicerequest.ServiceRequest) error) error {
	m.mu.Lock()
	var batch []*servicerequest.ServiceRequest
	for _, doc := range m.docs {
		if doc.AssignedAgent != "" && (doc.Status == servicerequest.StatusCompleted || doc.Status == servicerequest.StatusCancelled) {
			batch = append(batch, clone(doc))
		}
	}
	m.mu.Unlock()

	for _, doc := range batch {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

func (m *memRequests) get(id string) *servicerequest.ServiceRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.docs[id])
}

// memAgents is an in-memory agent.Repository with version checks and failure injection
type memAgents struct {
	mu               sync.Mutex
	docs             map[string]*agent.Agent
	failUpdate       error
	conflictsPending int
}

func newMemAgents() *memAgents {
	return &memAgents{docs: map[string]*agent.Agent{}}
}

func (m *memAgents) Create(_ context.Context, a *agent.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if doc.UserID == a.UserID {
			return agent.ErrDuplicateUserID{UserID: a.UserID}
		}
	}
	m.docs[a.ID] = clone(a)
	return nil
}

func (m *memAgents) GetByID(_ context.Context, id string) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, shared.NotFoundError{Resource: "Agent", ID: id}
	}
	return clone(doc), nil
}

func (m *memAgents) ListActive(_ context.Context) ([]*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*agent.Agent
	for _, doc := range m.docs {
		if doc.IsActive {
			out = append(out, clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memAgents) Update(_ context.Context, a *agent.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	cur, ok := m.docs[a.ID]
	if !ok {
		return shared.NotFoundError{Resource: "Agent", ID: a.ID}
	}
	if m.conflictsPending > 0 {
		m.conflictsPending--
		cur.Version++
		return agent.ErrConcurrentModification{AgentID: a.ID}
	}
	if cur.Version != a.Version {
		return agent.ErrConcurrentModification{AgentID: a.ID}
	}
	a.Version++
	m.docs[a.ID] = clone(a)
	return nil
}

func (m *memAgents) SetActive(_ context.Context, id string, active bool) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, shared.NotFoundError{Resource: "Agent", ID: id}
	}
	doc.IsActive = active
	doc.Version++
	return clone(doc), nil
}

func (m *memAgents) get(id string) *agent.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.docs[id])
}

func (m *memAgents) setFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failUpdate = err
}

// directTransactor runs fn without a transaction
type directTransactor struct{}

func (directTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (directTransactor) Atomic() bool { return false }

// memOutbox records enqueued agent syncs
type memOutbox struct {
	mu       sync.Mutex
	messages []*outbox.Message
}

func (m *memOutbox) Create(_ context.Context, msg *outbox.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memOutbox) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*outbox.Message
	for _, msg := range m.messages {
		if msg.Status == shared.OutboxStatusPending && len(out) < limit {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memOutbox) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id-1].Status = status
	return nil
}

func (m *memOutbox) RecordFailure(_ context.Context, id int64, maxAttempts int, cause string) (shared.OutboxStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.messages[id-1]
	msg.Attempts++
	msg.LastError = cause
	if msg.Attempts >= maxAttempts {
		msg.Status = shared.OutboxStatusFailedToPublish
	}
	return msg.Status, nil
}

func (m *memOutbox) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// memRuns journals resync runs in memory
type memRuns struct {
	runs []*repair.Run
}

func (m *memRuns) Start(_ context.Context, run *repair.Run) error {
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRuns) Finish(_ context.Context, run *repair.Run) error {
	m.runs[run.ID-1] = run
	return nil
}

func (m *memRuns) ListRecent(_ context.Context, limit int) ([]*repair.Run, error) {
	var out []*repair.Run
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

// fakeLocker holds keys in memory
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}
