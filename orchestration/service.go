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
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"carebridge/platform/resilience"
	"carebridge/platform/security"
	"carebridge/platform/shared/fault"
	"carebridge/platform/shared/logger"
	"carebridge/platform/telemetry"
)

// Permissions checked before any workflow operation.
const (
	PermissionStart  = "workflow:start"
	PermissionRead   = "workflow:read"
	PermissionCancel = "workflow:cancel"
	PermissionList   = "workflow:list"
)

var (
	promWorkflowOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_workflow_operations_total",
			Help: "Workflow facade operations by operation and outcome.",
		},
		[]string{"operation", "status"},
	)

	promWorkflowsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_workflows_started_total",
			Help: "Workflows successfully started, by workflow type.",
		},
		[]string{"workflow_type"},
	)
)

func init() {
	prometheus.MustRegister(promWorkflowOps)
	prometheus.MustRegister(promWorkflowsStarted)
}

// StartWorkflowRequest describes the workflow to launch. TenantID and
// UserID come from the security context, never from the request.
type StartWorkflowRequest struct {
	WorkflowType string                 `json:"workflow_type"`
	ResourceID   string                 `json:"resource_id"`
	ResourceType string                 `json:"resource_type,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
}

// startMessage is the kickoff payload workers consume.
type startMessage struct {
	WorkflowID   string                 `json:"workflow_id"`
	TenantID     string                 `json:"tenant_id"`
	UserID       string                 `json:"user_id"`
	WorkflowType string                 `json:"workflow_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
}

// cancellationMessage asks the worker owning a workflow to stop it.
type cancellationMessage struct {
	WorkflowID  string    `json:"workflow_id"`
	TenantID    string    `json:"tenant_id"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// Service is the workflow facade: it validates and launches workflows,
// reads their state back, and relays cancellation requests. Execution
// itself happens in external workers consuming the work queue; the
// facade owns only the initiated record and the messages.
type Service struct {
	queue    WorkQueue
	store    StateStore
	queueURL string
	retry    *resilience.Policy
	log      *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p *resilience.Policy) Option {
	return func(s *Service) { s.retry = p }
}

// WithLogger overrides the default logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates the workflow facade. queueURL is the work queue
// all kickoff and cancellation messages go to.
func NewService(queue WorkQueue, store StateStore, queueURL string, opts ...Option) *Service {
	s := &Service{
		queue:    queue,
		store:    store,
		queueURL: queueURL,
		log:      logger.New("orchestration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry == nil {
		s.retry = resilience.DefaultPolicy(s.log)
	}
	return s
}

// StartWorkflow validates the request, enqueues the kickoff message and
// persists the initiated record, in that order. A workflow that could
// not be enqueued is never persisted: enqueue failure surfaces the
// transport error and leaves no record behind.
//
// The caller must hold workflow:start.
func (s *Service) StartWorkflow(ctx context.Context, sec *security.Context, req StartWorkflowRequest) (wf *WorkflowContext, err error) {
	finish := telemetry.Track(ctx, "workflow.start", "Start workflow "+req.WorkflowType)
	defer func() { finish(err) }()
	defer s.count("start", &err)

	if err = s.authorize(sec, "StartWorkflow", PermissionStart); err != nil {
		return nil, err
	}
	if req.WorkflowType == "" {
		return nil, fault.InvalidArgument("orchestration", "StartWorkflow", "workflow type is required")
	}
	if req.ResourceID == "" {
		return nil, fault.InvalidArgument("orchestration", "StartWorkflow", "resource id is required")
	}

	wf = &WorkflowContext{
		WorkflowID:   uuid.NewString(),
		TenantID:     sec.TenantID,
		UserID:       sec.UserID,
		WorkflowType: req.WorkflowType,
		ResourceID:   req.ResourceID,
		ResourceType: req.ResourceType,
		Parameters:   req.Parameters,
		StartedAt:    time.Now().UTC(),
		Status:       StatusInitiated,
	}

	body, err := json.Marshal(startMessage{
		WorkflowID:   wf.WorkflowID,
		TenantID:     wf.TenantID,
		UserID:       wf.UserID,
		WorkflowType: wf.WorkflowType,
		ResourceID:   wf.ResourceID,
		ResourceType: wf.ResourceType,
		Parameters:   wf.Parameters,
	})
	if err != nil {
		return nil, fault.Internal("orchestration", "StartWorkflow", "failed to encode start message", err)
	}

	attributes := map[string]string{
		AttrMessageType:  MessageTypeStart,
		AttrWorkflowID:   wf.WorkflowID,
		AttrTenantID:     wf.TenantID,
		AttrWorkflowType: wf.WorkflowType,
	}

	err = resilience.Do(ctx, s.retry, s.operation("workflow.Start", sec), func(ctx context.Context) error {
		return s.queue.Send(ctx, s.queueURL, string(body), attributes)
	})
	if err != nil {
		s.log.ErrorWithCause(sec.TenantID, "", "failed to enqueue workflow start", err, map[string]interface{}{
			"workflow_type": req.WorkflowType,
		})
		return nil, err
	}

	if err = s.store.Save(ctx, wf); err != nil {
		// The kickoff message is already out; the worker will run a
		// workflow the store never heard of.
		s.log.ErrorWithCause(sec.TenantID, "", "workflow enqueued but state save failed", err, map[string]interface{}{
			"workflow_id": wf.WorkflowID,
		})
		return nil, fault.Internal("orchestration", "StartWorkflow", "failed to persist workflow state", err)
	}

	promWorkflowsStarted.WithLabelValues(wf.WorkflowType).Inc()
	s.log.Info(sec.TenantID, "", "workflow started", map[string]interface{}{
		"workflow_id":   wf.WorkflowID,
		"workflow_type": wf.WorkflowType,
		"resource_id":   wf.ResourceID,
	})
	return wf, nil
}

// GetWorkflowStatus returns the caller's workflow, or (nil, nil) when
// no workflow with that id exists for the tenant.
//
// The caller must hold workflow:read.
func (s *Service) GetWorkflowStatus(ctx context.Context, sec *security.Context, workflowID string) (wf *WorkflowContext, err error) {
	finish := telemetry.Track(ctx, "workflow.status", "Get workflow "+workflowID)
	defer func() { finish(err) }()
	defer s.count("status", &err)

	if err = s.authorize(sec, "GetWorkflowStatus", PermissionRead); err != nil {
		return nil, err
	}
	if workflowID == "" {
		return nil, fault.InvalidArgument("orchestration", "GetWorkflowStatus", "workflow id is required")
	}

	return s.store.Get(ctx, sec.TenantID, workflowID)
}

// CancelWorkflow sends a cancellation message for the workflow to the
// work queue. Cancellation is advisory: the facade does not transition
// the record; the worker does, when and if it honors the request. A
// workflow that does not exist fails with a not-found fault, one that
// already finished with an invalid-argument fault.
//
// The caller must hold workflow:cancel.
func (s *Service) CancelWorkflow(ctx context.Context, sec *security.Context, workflowID string) (err error) {
	finish := telemetry.Track(ctx, "workflow.cancel", "Cancel workflow "+workflowID)
	defer func() { finish(err) }()
	defer s.count("cancel", &err)

	if err = s.authorize(sec, "CancelWorkflow", PermissionCancel); err != nil {
		return err
	}
	if workflowID == "" {
		return fault.InvalidArgument("orchestration", "CancelWorkflow", "workflow id is required")
	}

	wf, err := s.store.Get(ctx, sec.TenantID, workflowID)
	if err != nil {
		return err
	}
	if wf == nil {
		return fault.NotFound("orchestration", "CancelWorkflow", fmt.Sprintf("workflow %s not found", workflowID))
	}
	if wf.Status.IsTerminal() {
		return fault.InvalidArgument("orchestration", "CancelWorkflow", fmt.Sprintf("workflow is already %s", wf.Status))
	}

	body, err := json.Marshal(cancellationMessage{
		WorkflowID:  workflowID,
		TenantID:    sec.TenantID,
		RequestedBy: sec.UserID,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return fault.Internal("orchestration", "CancelWorkflow", "failed to encode cancellation message", err)
	}

	attributes := map[string]string{
		AttrMessageType: MessageTypeCancellation,
		AttrWorkflowID:  workflowID,
		AttrTenantID:    sec.TenantID,
	}

	err = resilience.Do(ctx, s.retry, s.operation("workflow.Cancel", sec), func(ctx context.Context) error {
		return s.queue.Send(ctx, s.queueURL, string(body), attributes)
	})
	if err != nil {
		s.log.ErrorWithCause(sec.TenantID, "", "failed to enqueue workflow cancellation", err, map[string]interface{}{
			"workflow_id": workflowID,
		})
		return err
	}

	s.log.Info(sec.TenantID, "", "workflow cancellation requested", map[string]interface{}{
		"workflow_id": workflowID,
	})
	return nil
}

// ListWorkflows returns the tenant's workflows, most recently started
// first.
//
// The caller must hold workflow:list.
func (s *Service) ListWorkflows(ctx context.Context, sec *security.Context, limit int) (workflows []*WorkflowContext, err error) {
	finish := telemetry.Track(ctx, "workflow.list", "List workflows")
	defer func() { finish(err) }()
	defer s.count("list", &err)

	if err = s.authorize(sec, "ListWorkflows", PermissionList); err != nil {
		return nil, err
	}

	return s.store.ListByTenant(ctx, sec.TenantID, limit)
}

func (s *Service) authorize(sec *security.Context, op, permission string) error {
	if sec == nil || !sec.IsValid() {
		return fault.Unauthorized("orchestration", op, "caller is not authenticated")
	}
	if !sec.HasPermission(permission) {
		return fault.Unauthorized("orchestration", op, fmt.Sprintf("caller lacks permission %s", permission))
	}
	return nil
}

func (s *Service) operation(name string, sec *security.Context) resilience.Operation {
	return resilience.Operation{Name: name, TenantID: sec.TenantID}
}

func (s *Service) count(operation string, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	promWorkflowOps.WithLabelValues(operation, status).Inc()
}
