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

import "time"

// WorkflowStatus is the lifecycle state of a workflow.
//
// A workflow is initiated when its kickoff message is enqueued,
// reported running by the executing worker, and finishes in exactly
// one of completed, failed, or cancelled. The facade never
// self-transitions a workflow into running; that state is written by
// the worker through the state store.
type WorkflowStatus string

const (
	StatusInitiated WorkflowStatus = "initiated"
	StatusRunning   WorkflowStatus = "running"
	StatusCompleted WorkflowStatus = "completed"
	StatusFailed    WorkflowStatus = "failed"
	StatusCancelled WorkflowStatus = "cancelled"
)

// IsValid reports whether s is a known status.
func (s WorkflowStatus) IsValid() bool {
	switch s {
	case StatusInitiated, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s is a final state.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits moving from
// s to next. A cancellation message may be consumed before the worker
// ever starts, so initiated can move straight to cancelled; failed and
// completed are only reachable from running.
func (s WorkflowStatus) CanTransition(next WorkflowStatus) bool {
	switch s {
	case StatusInitiated:
		return next == StatusRunning || next == StatusCancelled
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// WorkflowContext is the durable record of one logical workflow. It is
// owned by the orchestration facade for the lifetime of the workflow
// and persisted through the state store.
type WorkflowContext struct {
	WorkflowID   string                 `json:"workflow_id"`
	TenantID     string                 `json:"tenant_id"`
	UserID       string                 `json:"user_id"`
	WorkflowType string                 `json:"workflow_type"`
	ResourceID   string                 `json:"resource_id"`
	ResourceType string                 `json:"resource_type"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	Status       WorkflowStatus         `json:"status"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
