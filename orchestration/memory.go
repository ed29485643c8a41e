// Copyright 2025 CareBridge
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"carebridge/platform/shared/fault"
)

// QueuedMessage is one message captured by MemoryQueue.
type QueuedMessage struct {
	QueueURL   string
	Body       string
	Attributes map[string]string
}

// MemoryQueue is an in-memory WorkQueue for local development and
// tests. Messages are recorded, never consumed.
type MemoryQueue struct {
	mu       sync.Mutex
	messages []QueuedMessage
}

var _ WorkQueue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Send(ctx context.Context, queueURL, body string, attributes map[string]string) error {
	if err := ctx.Err(); err != nil {
		return fault.Cancelled("orchestration", "Send", err)
	}

	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, QueuedMessage{QueueURL: queueURL, Body: body, Attributes: attrs})
	return nil
}

// Messages returns a snapshot of everything sent so far.
func (q *MemoryQueue) Messages() []QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]QueuedMessage, len(q.messages))
	copy(out, q.messages)
	return out
}

// MemoryStateStore is an in-memory StateStore for local development
// and tests.
type MemoryStateStore struct {
	mu        sync.RWMutex
	workflows map[string]map[string]*WorkflowContext
}

var _ StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{workflows: make(map[string]map[string]*WorkflowContext)}
}

func (m *MemoryStateStore) Save(ctx context.Context, wf *WorkflowContext) error {
	if wf == nil {
		return fault.InvalidArgument("orchestration", "Save", "workflow cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.workflows[wf.TenantID] == nil {
		m.workflows[wf.TenantID] = make(map[string]*WorkflowContext)
	}
	m.workflows[wf.TenantID][wf.WorkflowID] = cloneWorkflow(wf)
	return nil
}

func (m *MemoryStateStore) Get(ctx context.Context, tenantID, workflowID string) (*WorkflowContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wf, ok := m.workflows[tenantID][workflowID]
	if !ok {
		return nil, nil
	}
	return cloneWorkflow(wf), nil
}

func (m *MemoryStateStore) UpdateStatus(ctx context.Context, tenantID, workflowID string, status WorkflowStatus, errorMessage string) error {
	if !status.IsValid() {
		return fault.InvalidArgument("orchestration", "UpdateStatus", fmt.Sprintf("unknown status %q", status))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wf, ok := m.workflows[tenantID][workflowID]
	if !ok {
		return fault.NotFound("orchestration", "UpdateStatus", fmt.Sprintf("workflow %s not found", workflowID))
	}
	if !wf.Status.CanTransition(status) {
		return fault.InvalidArgument("orchestration", "UpdateStatus", fmt.Sprintf("cannot transition from %s to %s", wf.Status, status))
	}

	wf.Status = status
	wf.ErrorMessage = errorMessage
	wf.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStateStore) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*WorkflowContext, error) {
	if limit <= 0 {
		limit = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var workflows []*WorkflowContext
	for _, wf := range m.workflows[tenantID] {
		workflows = append(workflows, cloneWorkflow(wf))
	}
	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].StartedAt.After(workflows[j].StartedAt)
	})
	if len(workflows) > limit {
		workflows = workflows[:limit]
	}
	return workflows, nil
}

func cloneWorkflow(wf *WorkflowContext) *WorkflowContext {
	out := *wf
	if wf.Parameters != nil {
		out.Parameters = make(map[string]interface{}, len(wf.Parameters))
		for k, v := range wf.Parameters {
			out.Parameters[k] = v
		}
	}
	return &out
}
