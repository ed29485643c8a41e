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
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"carebridge/platform/shared/fault"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewPostgresStore(db), mock, func() { db.Close() }
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	startedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	wf := &WorkflowContext{
		WorkflowID:   "wf-1",
		TenantID:     "hospital-a",
		UserID:       "clinician-1",
		WorkflowType: "discharge-summary",
		ResourceID:   "patient-123",
		ResourceType: "patient",
		Parameters:   map[string]interface{}{"format": "pdf"},
		StartedAt:    startedAt,
		Status:       StatusInitiated,
	}

	mock.ExpectExec(`INSERT INTO workflows`).
		WithArgs("wf-1", "hospital-a", "clinician-1", "discharge-summary", "patient-123", "patient",
			[]byte(`{"format":"pdf"}`), "initiated", "", startedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(context.Background(), wf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_SaveValidation(t *testing.T) {
	store, _, closeDB := newMockStore(t)
	defer closeDB()

	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) should error")
	}

	err := store.Save(context.Background(), &WorkflowContext{WorkflowID: "wf-1"})
	if fault.KindOf(err) != fault.KindInvalidArgument {
		t.Errorf("kind = %v, want %v", fault.KindOf(err), fault.KindInvalidArgument)
	}
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	startedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	updatedAt := startedAt.Add(5 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"workflow_id", "tenant_id", "user_id", "workflow_type",
		"resource_id", "resource_type", "parameters", "status",
		"error_message", "started_at", "updated_at",
	}).AddRow(
		"wf-1", "hospital-a", "clinician-1", "discharge-summary",
		"patient-123", "patient", []byte(`{"format":"pdf"}`), "running",
		nil, startedAt, updatedAt,
	)

	mock.ExpectQuery(`SELECT (.+) FROM workflows`).
		WithArgs("hospital-a", "wf-1").
		WillReturnRows(rows)

	wf, err := store.Get(context.Background(), "hospital-a", "wf-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if wf == nil {
		t.Fatal("Get() returned nil for existing workflow")
	}
	if wf.Status != StatusRunning {
		t.Errorf("status = %s, want %s", wf.Status, StatusRunning)
	}
	if wf.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty for NULL column", wf.ErrorMessage)
	}
	if wf.Parameters["format"] != "pdf" {
		t.Errorf("parameters = %v", wf.Parameters)
	}
	if !wf.StartedAt.Equal(startedAt) {
		t.Errorf("started at = %v, want %v", wf.StartedAt, startedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_GetAbsent(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT (.+) FROM workflows`).
		WithArgs("hospital-a", "no-such-workflow").
		WillReturnError(sql.ErrNoRows)

	wf, err := store.Get(context.Background(), "hospital-a", "no-such-workflow")
	if err != nil {
		t.Fatalf("Get() error = %v, want nil for absent workflow", err)
	}
	if wf != nil {
		t.Errorf("wf = %+v, want nil", wf)
	}
}

func TestPostgresStore_UpdateStatus(t *testing.T) {
	tests := []struct {
		name         string
		status       WorkflowStatus
		allowedPrior []string
	}{
		{"worker reports running", StatusRunning, []string{"initiated"}},
		{"worker reports completed", StatusCompleted, []string{"running"}},
		{"worker reports failed", StatusFailed, []string{"running"}},
		{"worker honors cancellation", StatusCancelled, []string{"initiated", "running"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock, closeDB := newMockStore(t)
			defer closeDB()

			mock.ExpectExec(`UPDATE workflows`).
				WithArgs(string(tt.status), "", "hospital-a", "wf-1", pq.Array(tt.allowedPrior)).
				WillReturnResult(sqlmock.NewResult(0, 1))

			if err := store.UpdateStatus(context.Background(), "hospital-a", "wf-1", tt.status, ""); err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPostgresStore_UpdateStatusNotFound(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE workflows`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM workflows`).
		WithArgs("hospital-a", "no-such-workflow").
		WillReturnError(sql.ErrNoRows)

	err := store.UpdateStatus(context.Background(), "hospital-a", "no-such-workflow", StatusRunning, "")
	if fault.KindOf(err) != fault.KindNotFound {
		t.Errorf("kind = %v, want %v", fault.KindOf(err), fault.KindNotFound)
	}
}

func TestPostgresStore_UpdateStatusInvalidTransition(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE workflows`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM workflows`).
		WithArgs("hospital-a", "wf-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	err := store.UpdateStatus(context.Background(), "hospital-a", "wf-1", StatusRunning, "")
	if fault.KindOf(err) != fault.KindInvalidArgument {
		t.Errorf("kind = %v, want %v", fault.KindOf(err), fault.KindInvalidArgument)
	}
	if !strings.Contains(err.Error(), "completed") {
		t.Errorf("error should name the current status, got %v", err)
	}
}

func TestPostgresStore_UpdateStatusRejectsUnknown(t *testing.T) {
	store, _, closeDB := newMockStore(t)
	defer closeDB()

	err := store.UpdateStatus(context.Background(), "hospital-a", "wf-1", "paused", "")
	if fault.KindOf(err) != fault.KindInvalidArgument {
		t.Errorf("kind = %v, want %v", fault.KindOf(err), fault.KindInvalidArgument)
	}

	err = store.UpdateStatus(context.Background(), "hospital-a", "wf-1", StatusInitiated, "")
	if fault.KindOf(err) != fault.KindInvalidArgument {
		t.Errorf("kind = %v, want %v for unreachable status", fault.KindOf(err), fault.KindInvalidArgument)
	}
}

func TestPostgresStore_ListByTenant(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	startedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"workflow_id", "tenant_id", "user_id", "workflow_type",
		"resource_id", "resource_type", "parameters", "status",
		"error_message", "started_at", "updated_at",
	}).AddRow(
		"wf-2", "hospital-a", "clinician-1", "lab-triage",
		"order-7", "lab-order", []byte(`{}`), "running",
		nil, startedAt.Add(time.Hour), startedAt.Add(time.Hour),
	).AddRow(
		"wf-1", "hospital-a", "clinician-1", "discharge-summary",
		"patient-123", "patient", []byte(`{}`), "failed",
		"model call exhausted retries", startedAt, startedAt,
	)

	mock.ExpectQuery(`SELECT (.+) FROM workflows`).
		WithArgs("hospital-a", 50).
		WillReturnRows(rows)

	workflows, err := store.ListByTenant(context.Background(), "hospital-a", 50)
	if err != nil {
		t.Fatalf("ListByTenant() error = %v", err)
	}
	if len(workflows) != 2 {
		t.Fatalf("workflows = %d, want 2", len(workflows))
	}
	if workflows[0].WorkflowID != "wf-2" {
		t.Errorf("first workflow = %s, want wf-2", workflows[0].WorkflowID)
	}
	if workflows[1].ErrorMessage != "model call exhausted retries" {
		t.Errorf("error message = %q", workflows[1].ErrorMessage)
	}
}

func TestPostgresStore_ListByTenantDefaultLimit(t *testing.T) {
	store, mock, closeDB := newMockStore(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT (.+) FROM workflows`).
		WithArgs("hospital-a", 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"workflow_id", "tenant_id", "user_id", "workflow_type",
			"resource_id", "resource_type", "parameters", "status",
			"error_message", "started_at", "updated_at",
		}))

	workflows, err := store.ListByTenant(context.Background(), "hospital-a", 0)
	if err != nil {
		t.Fatalf("ListByTenant() error = %v", err)
	}
	if len(workflows) != 0 {
		t.Errorf("workflows = %d, want 0", len(workflows))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
