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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"carebridge/platform/shared/fault"
)

// PostgresStore implements StateStore using PostgreSQL. Tenant scoping
// is explicit: every statement carries tenant_id as a bind parameter
// rather than relying on session-level row security, so a connection
// pool shared across tenants cannot leak rows between them.
//
// Expected table:
//
//	workflows (
//	    workflow_id   text,
//	    tenant_id     text,
//	    user_id       text,
//	    workflow_type text,
//	    resource_id   text,
//	    resource_type text,
//	    parameters    jsonb,
//	    status        text,
//	    error_message text,
//	    started_at    timestamptz,
//	    updated_at    timestamptz,
//	    PRIMARY KEY (tenant_id, workflow_id)
//	)
type PostgresStore struct {
	db *sql.DB
}

var _ StateStore = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgreSQL-backed workflow state store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save inserts a new workflow record.
func (s *PostgresStore) Save(ctx context.Context, wf *WorkflowContext) error {
	if wf == nil {
		return errors.New("workflow cannot be nil")
	}
	if wf.WorkflowID == "" || wf.TenantID == "" {
		return fault.InvalidArgument("orchestration", "Save", "workflow id and tenant id are required")
	}

	paramsJSON, err := json.Marshal(wf.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	query := `
		INSERT INTO workflows (
			workflow_id, tenant_id, user_id, workflow_type,
			resource_id, resource_type, parameters, status,
			error_message, started_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`

	_, err = s.db.ExecContext(ctx, query,
		wf.WorkflowID,
		wf.TenantID,
		wf.UserID,
		wf.WorkflowType,
		wf.ResourceID,
		wf.ResourceType,
		paramsJSON,
		string(wf.Status),
		wf.ErrorMessage,
		wf.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

// Get retrieves one workflow. Returns (nil, nil) when no workflow with
// that id exists for the tenant.
func (s *PostgresStore) Get(ctx context.Context, tenantID, workflowID string) (*WorkflowContext, error) {
	query := `
		SELECT workflow_id, tenant_id, user_id, workflow_type,
			   resource_id, resource_type, parameters, status,
			   error_message, started_at, updated_at
		FROM workflows
		WHERE tenant_id = $1 AND workflow_id = $2
	`

	var wf WorkflowContext
	var status string
	var errorMessage sql.NullString
	var paramsJSON []byte

	err := s.db.QueryRowContext(ctx, query, tenantID, workflowID).Scan(
		&wf.WorkflowID,
		&wf.TenantID,
		&wf.UserID,
		&wf.WorkflowType,
		&wf.ResourceID,
		&wf.ResourceType,
		&paramsJSON,
		&status,
		&errorMessage,
		&wf.StartedAt,
		&wf.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	wf.Status = WorkflowStatus(status)
	wf.ErrorMessage = errorMessage.String
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &wf.Parameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
		}
	}

	return &wf, nil
}

// UpdateStatus moves a workflow to a new status. The update is guarded
// by the set of statuses the state machine allows as predecessors, so
// a stale or duplicate message cannot rewind a terminal workflow.
func (s *PostgresStore) UpdateStatus(ctx context.Context, tenantID, workflowID string, status WorkflowStatus, errorMessage string) error {
	if !status.IsValid() {
		return fault.InvalidArgument("orchestration", "UpdateStatus", fmt.Sprintf("unknown status %q", status))
	}
	allowed := priorStatusesFor(status)
	if len(allowed) == 0 {
		return fault.InvalidArgument("orchestration", "UpdateStatus", fmt.Sprintf("status %q is not reachable", status))
	}

	query := `
		UPDATE workflows
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE tenant_id = $3 AND workflow_id = $4 AND status = ANY($5)
	`

	result, err := s.db.ExecContext(ctx, query, string(status), errorMessage, tenantID, workflowID, pq.Array(allowed))
	if err != nil {
		return fmt.Errorf("failed to update workflow status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Nothing matched: either the workflow does not exist or its
	// current status does not permit the transition.
	var current string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM workflows WHERE tenant_id = $1 AND workflow_id = $2`,
		tenantID, workflowID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fault.NotFound("orchestration", "UpdateStatus", fmt.Sprintf("workflow %s not found", workflowID))
	}
	if err != nil {
		return fmt.Errorf("failed to check workflow status: %w", err)
	}
	return fault.InvalidArgument("orchestration", "UpdateStatus", fmt.Sprintf("cannot transition from %s to %s", current, status))
}

// ListByTenant returns the tenant's workflows, most recently started
// first.
func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*WorkflowContext, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT workflow_id, tenant_id, user_id, workflow_type,
			   resource_id, resource_type, parameters, status,
			   error_message, started_at, updated_at
		FROM workflows
		WHERE tenant_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*WorkflowContext
	for rows.Next() {
		var wf WorkflowContext
		var status string
		var errorMessage sql.NullString
		var paramsJSON []byte

		if err := rows.Scan(
			&wf.WorkflowID,
			&wf.TenantID,
			&wf.UserID,
			&wf.WorkflowType,
			&wf.ResourceID,
			&wf.ResourceType,
			&paramsJSON,
			&status,
			&errorMessage,
			&wf.StartedAt,
			&wf.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		wf.Status = WorkflowStatus(status)
		wf.ErrorMessage = errorMessage.String
		if len(paramsJSON) > 0 {
			if err := json.Unmarshal(paramsJSON, &wf.Parameters); err != nil {
				return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
			}
		}

		workflows = append(workflows, &wf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// priorStatusesFor lists the statuses the state machine allows as the
// current status when moving to next.
func priorStatusesFor(next WorkflowStatus) []string {
	all := []WorkflowStatus{StatusInitiated, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}
	var prior []string
	for _, s := range all {
		if s.CanTransition(next) {
			prior = append(prior, string(s))
		}
	}
	return prior
}
