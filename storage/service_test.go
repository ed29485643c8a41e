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

package storage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"carebridge/platform/resilience"
	"carebridge/platform/security"
	"carebridge/platform/shared/fault"
	"carebridge/platform/shared/logger"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryObjectStore, *MemoryMetadataStore) {
	t.Helper()
	objects := NewMemoryObjectStore()
	metadata := NewMemoryMetadataStore()
	policy := &resilience.Policy{MaxRetries: 1, Unit: time.Millisecond, Logger: logger.New("storage-test")}
	base := []Option{WithMetadataStore(metadata), WithRetryPolicy(policy)}
	svc := NewService(objects, "carebridge-data", append(base, opts...)...)
	return svc, objects, metadata
}

func TestPutGetRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	sec := security.SystemContext("hospital-a")
	ctx := context.Background()

	body := []byte(`{"visit": 1}`)
	if err := svc.PutObject(ctx, sec, "records/visit-1.json", body, PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("PutObject() unexpected error: %v", err)
	}

	got, err := svc.GetObject(ctx, sec, "records/visit-1.json")
	if err != nil {
		t.Fatalf("GetObject() unexpected error: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("GetObject() = %q, want %q", got, body)
	}
}

func TestTenantIsolation(t *testing.T) {
	svc, objects, _ := newTestService(t)
	ctx := context.Background()
	tenantA := security.SystemContext("hospital-a")
	tenantB := security.SystemContext("hospital-b")

	if err := svc.PutObject(ctx, tenantA, "report.txt", []byte("confidential"), PutOptions{}); err != nil {
		t.Fatalf("PutObject() unexpected error: %v", err)
	}

	// Same caller key resolves to a different backend key per tenant.
	got, err := svc.GetObject(ctx, tenantB, "report.txt")
	if err != nil {
		t.Fatalf("GetObject() unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("GetObject() across tenants = %q, want nil", got)
	}

	keys, err := svc.ListObjects(ctx, tenantB, "", 100)
	if err != nil {
		t.Fatalf("ListObjects() unexpected error: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("ListObjects() across tenants = %v, want empty", keys)
	}

	// The backend key carries the tenant qualifier.
	stored, err := objects.Exists(ctx, "carebridge-data", "tenant:hospital-a:report.txt")
	if err != nil || !stored {
		t.Errorf("backend key tenant:hospital-a:report.txt exists = %v, %v; want true", stored, err)
	}
}

func TestGetObject_AbsentIsNil(t *testing.T) {
	svc, _, _ := newTestService(t)

	got, err := svc.GetObject(context.Background(), security.SystemContext("t"), "missing")
	if err != nil {
		t.Fatalf("GetObject() unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("GetObject(missing) = %v, want nil", got)
	}
}

func TestDeleteObject(t *testing.T) {
	svc, _, metadata := newTestService(t)
	sec := security.SystemContext("hospital-a")
	ctx := context.Background()

	deleted, err := svc.DeleteObject(ctx, sec, "missing")
	if err != nil {
		t.Fatalf("DeleteObject(missing) unexpected error: %v", err)
	}
	if deleted {
		t.Error("DeleteObject(missing) = true, want false")
	}

	if err := svc.PutObject(ctx, sec, "scan.dcm", []byte("img"), PutOptions{}); err != nil {
		t.Fatalf("PutObject() unexpected error: %v", err)
	}

	deleted, err = svc.DeleteObject(ctx, sec, "scan.dcm")
	if err != nil {
		t.Fatalf("DeleteObject() unexpected error: %v", err)
	}
	if !deleted {
		t.Error("DeleteObject() = false, want true")
	}

	if got, _ := svc.GetObject(ctx, sec, "scan.dcm"); got != nil {
		t.Errorf("GetObject() after delete = %v, want nil", got)
	}
	if md, _ := metadata.GetItem(ctx, "tenant:hospital-a:scan.dcm"); md != nil {
		t.Errorf("metadata record survives delete: %+v", md)
	}
}

func TestListObjects_StripsPrefix(t *testing.T) {
	svc, _, _ := newTestService(t)
	sec := security.SystemContext("hospital-a")
	ctx := context.Background()

	for _, key := range []string{"labs/cbc.json", "labs/bmp.json", "imaging/xray.dcm"} {
		if err := svc.PutObject(ctx, sec, key, []byte("x"), PutOptions{}); err != nil {
			t.Fatalf("PutObject(%q) unexpected error: %v", key, err)
		}
	}

	keys, err := svc.ListObjects(ctx, sec, "labs/", 100)
	if err != nil {
		t.Fatalf("ListObjects() unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("ListObjects() = %v, want 2 keys", keys)
	}
	for _, key := range keys {
		if key == "labs/bmp.json" || key == "labs/cbc.json" {
			continue
		}
		t.Errorf("ListObjects() key = %q, want caller keys without tenant qualifier", key)
	}
}

func TestMetadataWriteThrough(t *testing.T) {
	svc, _, _ := newTestService(t)
	sec := security.SystemContext("hospital-a")
	ctx := context.Background()

	body := []byte("note body")
	if err := svc.PutObject(ctx, sec, "note.txt", body, PutOptions{ContentType: "text/plain", Metadata: map[string]string{"author": "dr-lee"}}); err != nil {
		t.Fatalf("PutObject() unexpected error: %v", err)
	}

	md, err := svc.GetMetadata(ctx, sec, "note.txt")
	if err != nil {
		t.Fatalf("GetMetadata() unexpected error: %v", err)
	}
	if md == nil {
		t.Fatal("GetMetadata() = nil, want record")
	}
	if md.StorageKey != "tenant:hospital-a:note.txt" {
		t.Errorf("StorageKey = %q, want tenant-qualified key", md.StorageKey)
	}
	if md.TenantID != "hospital-a" || md.Bucket != "carebridge-data" {
		t.Errorf("record = %+v, want tenant and bucket set", md)
	}
	if md.SizeBytes != int64(len(body)) {
		t.Errorf("SizeBytes = %d, want %d", md.SizeBytes, len(body))
	}
	if md.Checksum != checksum(body) {
		t.Errorf("Checksum = %q, want sha256 of body", md.Checksum)
	}
	if md.Attributes["author"] != "dr-lee" {
		t.Errorf("Attributes = %v, want author preserved", md.Attributes)
	}
}

func TestMetadataOverwriteKeepsCreatedAt(t *testing.T) {
	svc, _, _ := newTestService(t)
	sec := security.SystemContext("hospital-a")
	ctx := context.Background()

	if err := svc.PutObject(ctx, sec, "note.txt", []byte("v1"), PutOptions{}); err != nil {
		t.Fatalf("PutObject() unexpected error: %v", err)
	}
	first, err := svc.GetMetadata(ctx, sec, "note.txt")
	if err != nil || first == nil {
		t.Fatalf("GetMetadata() = %v, %v; want record", first, err)
	}

	if err := svc.PutObject(ctx, sec, "note.txt", []byte("v2 longer"), PutOptions{}); err != nil {
		t.Fatalf("PutObject() unexpected error: %v", err)
	}
	second, err := svc.GetMetadata(ctx, sec, "note.txt")
	if err != nil || second == nil {
		t.Fatalf("GetMetadata() = %v, %v; want record", second, err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on overwrite: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if second.SizeBytes != int64(len("v2 longer")) {
		t.Errorf("SizeBytes = %d, want overwritten size", second.SizeBytes)
	}
}

func TestGetMetadata_AbsentIsNil(t *testing.T) {
	svc, _, _ := newTestService(t)

	md, err := svc.GetMetadata(context.Background(), security.SystemContext("t"), "missing")
	if err != nil {
		t.Fatalf("GetMetadata() unexpected error: %v", err)
	}
	if md != nil {
		t.Errorf("GetMetadata(missing) = %+v, want nil", md)
	}
}

func TestDeleteMetadata(t *testing.T) {
	svc, _, _ := newTestService(t)
	sec := security.SystemContext("hospital-a")
	ctx := context.Background()

	deleted, err := svc.DeleteMetadata(ctx, sec, "missing")
	if err != nil || deleted {
		t.Errorf("DeleteMetadata(missing) = (%v, %v), want (false, nil)", deleted, err)
	}

	if err := svc.PutObject(ctx, sec, "note.txt", []byte("x"), PutOptions{}); err != nil {
		t.Fatalf("PutObject() unexpected error: %v", err)
	}
	deleted, err = svc.DeleteMetadata(ctx, sec, "note.txt")
	if err != nil {
		t.Fatalf("DeleteMetadata() unexpected error: %v", err)
	}
	if !deleted {
		t.Error("DeleteMetadata() = false, want true")
	}
}

func TestListMetadata_Pages(t *testing.T) {
	svc, _, _ := newTestService(t)
	sec := security.SystemContext("hospital-a")
	ctx := context.Background()

	for _, key := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		if err := svc.PutObject(ctx, sec, key, []byte("x"), PutOptions{}); err != nil {
			t.Fatalf("PutObject(%q) unexpected error: %v", key, err)
		}
	}

	seen := make(map[string]bool)
	startKey := ""
	pages := 0
	for {
		page, err := svc.ListMetadata(ctx, sec, 2, startKey)
		if err != nil {
			t.Fatalf("ListMetadata() unexpected error: %v", err)
		}
		pages++
		for _, md := range page.Items {
			if seen[md.StorageKey] {
				t.Errorf("storage key %q returned twice across pages", md.StorageKey)
			}
			seen[md.StorageKey] = true
		}
		if page.NextStartKey == "" {
			break
		}
		startKey = page.NextStartKey
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(seen) != 5 {
		t.Errorf("paged scan returned %d records, want 5", len(seen))
	}
	if pages < 3 {
		t.Errorf("paged scan used %d pages with limit 2, want at least 3", pages)
	}
}

func TestStorageAuthorization(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	reader := security.NewContext("u", "t", []string{PermissionRead}, nil)

	if err := svc.PutObject(ctx, reader, "k", []byte("x"), PutOptions{}); fault.KindOf(err) != fault.KindUnauthorized {
		t.Errorf("PutObject() without storage:write kind = %v, want Unauthorized", fault.KindOf(err))
	}
	if _, err := svc.DeleteObject(ctx, reader, "k"); fault.KindOf(err) != fault.KindUnauthorized {
		t.Errorf("DeleteObject() without storage:delete kind = %v, want Unauthorized", fault.KindOf(err))
	}
	if _, err := svc.GetObject(ctx, nil, "k"); fault.KindOf(err) != fault.KindUnauthorized {
		t.Errorf("GetObject() with nil context kind = %v, want Unauthorized", fault.KindOf(err))
	}
	if _, err := svc.GetObject(ctx, reader, "k"); err != nil {
		t.Errorf("GetObject() with storage:read unexpected error: %v", err)
	}
}

func TestPutObject_DefaultEncryption(t *testing.T) {
	svc, _, _ := newTestService(t, WithDefaultEncryption())
	sec := security.SystemContext("hospital-a")
	ctx := context.Background()

	if err := svc.PutObject(ctx, sec, "phi.json", []byte("x"), PutOptions{}); err != nil {
		t.Fatalf("PutObject() unexpected error: %v", err)
	}

	md, err := svc.GetMetadata(ctx, sec, "phi.json")
	if err != nil || md == nil {
		t.Fatalf("GetMetadata() = %v, %v; want record", md, err)
	}
	if !md.Encrypted {
		t.Error("Encrypted = false, want true under default encryption")
	}
}
