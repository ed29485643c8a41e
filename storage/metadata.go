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
	"time"
)

// StorageMetadata is the durable record kept for each stored object.
// StorageKey is tenant-qualified and round-trips exactly as written.
type StorageMetadata struct {
	StorageKey  string            `json:"storage_key"`
	TenantID    string            `json:"tenant_id"`
	Bucket      string            `json:"bucket"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	Checksum    string            `json:"checksum"`
	Encrypted   bool              `json:"encrypted"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// MetadataPage is one page of a tenant metadata scan. NextStartKey is
// empty on the last page.
type MetadataPage struct {
	Items        []*StorageMetadata `json:"items"`
	NextStartKey string             `json:"next_start_key,omitempty"`
}

// MetadataStore is the durable index over stored objects. GetItem
// returns nil with no error for an absent key; DeleteItem reports
// whether a record existed.
type MetadataStore interface {
	PutItem(ctx context.Context, md StorageMetadata) error
	GetItem(ctx context.Context, storageKey string) (*StorageMetadata, error)
	DeleteItem(ctx context.Context, storageKey string) (bool, error)
	QueryByTenant(ctx context.Context, tenantID string, limit int32, startKey string) (*MetadataPage, error)
}
