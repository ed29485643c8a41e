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

import "context"

// StateStore persists workflow records. Every read and write is scoped
// by tenant; a workflow id from one tenant is invisible to every other.
//
// Get returns (nil, nil) when no workflow matches. UpdateStatus
// enforces the status state machine: it fails with a not-found fault
// when the workflow does not exist and an invalid-argument fault when
// the transition is not permitted from the current status.
type StateStore interface {
	Save(ctx context.Context, wf *WorkflowContext) error
	Get(ctx context.Context, tenantID, workflowID string) (*WorkflowContext, error)
	UpdateStatus(ctx context.Context, tenantID, workflowID string, status WorkflowStatus, errorMessage string) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*WorkflowContext, error)
}
