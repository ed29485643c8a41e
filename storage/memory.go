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
	"context"
	"sort"
	"strings"
	"sync"

	"carebridge/platform/shared/fault"
)

// MemoryObjectStore is an in-memory ObjectStore for local development
// and tests.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryObjectStore creates an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryObjectStore) Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.buckets[bucket] == nil {
		m.buckets[bucket] = make(map[string][]byte)
	}
	stored := make([]byte, len(body))
	copy(stored, body)
	m.buckets[bucket][key] = stored
	return nil
}

func (m *MemoryObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.buckets[bucket][key]
	if !ok {
		return nil, fault.NotFound("storage", "Get", "object "+key+" not found")
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (m *MemoryObjectStore) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets[bucket], key)
	return nil
}

func (m *MemoryObjectStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.buckets[bucket][key]
	return ok, nil
}

func (m *MemoryObjectStore) List(ctx context.Context, bucket, prefix string, max int32) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if max <= 0 {
		max = 1000
	}

	keys := make([]string, 0)
	for key := range m.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if int32(len(keys)) > max {
		keys = keys[:max]
	}
	return keys, nil
}

// MemoryMetadataStore is an in-memory MetadataStore for local
// development and tests.
type MemoryMetadataStore struct {
	mu    sync.RWMutex
	items map[string]StorageMetadata
}

// NewMemoryMetadataStore creates an empty in-memory metadata store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{items: make(map[string]StorageMetadata)}
}

func (m *MemoryMetadataStore) PutItem(ctx context.Context, md StorageMetadata) error {
	if md.StorageKey == "" || md.TenantID == "" {
		return fault.InvalidArgument("storage", "PutItem", "storage key and tenant id are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[md.StorageKey] = md
	return nil
}

func (m *MemoryMetadataStore) GetItem(ctx context.Context, storageKey string) (*StorageMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	md, ok := m.items[storageKey]
	if !ok {
		return nil, nil
	}
	out := md
	return &out, nil
}

func (m *MemoryMetadataStore) DeleteItem(ctx context.Context, storageKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[storageKey]; !ok {
		return false, nil
	}
	delete(m.items, storageKey)
	return true, nil
}

func (m *MemoryMetadataStore) QueryByTenant(ctx context.Context, tenantID string, limit int32, startKey string) (*MetadataPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	keys := make([]string, 0)
	for key, md := range m.items {
		if md.TenantID == tenantID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	page := &MetadataPage{Items: make([]*StorageMetadata, 0, limit)}
	for _, key := range keys {
		if startKey != "" && key <= startKey {
			continue
		}
		if int32(len(page.Items)) >= limit {
			page.NextStartKey = page.Items[len(page.Items)-1].StorageKey
			break
		}
		md := m.items[key]
		page.Items = append(page.Items, &md)
	}
	return page, nil
}

var (
	_ ObjectStore   = (*MemoryObjectStore)(nil)
	_ MetadataStore = (*MemoryMetadataStore)(nil)
)
