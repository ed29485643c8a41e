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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"carebridge/platform/resilience"
	"carebridge/platform/security"
	"carebridge/platform/shared/fault"
	"carebridge/platform/shared/logger"
	"carebridge/platform/telemetry"
)

// Permissions checked per operation.
const (
	PermissionRead   = "storage:read"
	PermissionWrite  = "storage:write"
	PermissionDelete = "storage:delete"
	PermissionList   = "storage:list"
)

// Prometheus metrics
var (
	promStorageOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_storage_operations_total",
			Help: "Total number of storage operations by operation and outcome",
		},
		[]string{"operation", "status"},
	)
	promStorageBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_storage_bytes_total",
			Help: "Total bytes moved through the storage facade by direction",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(promStorageOps)
	prometheus.MustRegister(promStorageBytes)
}

// Service is the tenant-scoped facade over an object store and its
// metadata index. Every caller key is rewritten under the caller's
// tenant before it reaches a backend, so one tenant can never address
// another tenant's data.
type Service struct {
	objects  ObjectStore
	metadata MetadataStore
	bucket   string
	retry    *resilience.Policy
	log      *logger.Logger

	encryptByDefault bool
}

// Option configures a storage Service.
type Option func(*Service)

// WithMetadataStore enables the metadata write-through index.
func WithMetadataStore(ms MetadataStore) Option {
	return func(s *Service) { s.metadata = ms }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p *resilience.Policy) Option {
	return func(s *Service) { s.retry = p }
}

// WithLogger overrides the default logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithDefaultEncryption turns on server-side encryption for every
// write that does not request it explicitly.
func WithDefaultEncryption() Option {
	return func(s *Service) { s.encryptByDefault = true }
}

// NewService creates the storage facade over the given backend and
// bucket.
func NewService(objects ObjectStore, bucket string, opts ...Option) *Service {
	s := &Service{
		objects: objects,
		bucket:  bucket,
		log:     logger.New("storage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry == nil {
		s.retry = resilience.DefaultPolicy(s.log)
	}
	return s
}

// PutObject writes body under the caller's tenant-scoped key and, when
// a metadata store is configured, writes the index record through.
func (s *Service) PutObject(ctx context.Context, sec *security.Context, key string, body []byte, opts PutOptions) (err error) {
	finish := telemetry.Track(ctx, "storage.put", "Store object "+key)
	defer func() { finish(err) }()
	defer s.count("put", &err)

	if err = s.authorize(sec, "PutObject", PermissionWrite); err != nil {
		return err
	}
	if key == "" {
		return fault.InvalidArgument("storage", "PutObject", "key is required")
	}
	if s.encryptByDefault {
		opts.Encrypt = true
	}

	scoped := ScopedKey(sec.TenantID, key)
	err = resilience.Do(ctx, s.retry, s.operation("storage.Put", sec), func(ctx context.Context) error {
		return s.objects.Put(ctx, s.bucket, scoped, body, opts)
	})
	if err != nil {
		return err
	}
	promStorageBytes.WithLabelValues("in").Add(float64(len(body)))

	if s.metadata == nil {
		return nil
	}

	now := time.Now().UTC()
	md := StorageMetadata{
		StorageKey:  scoped,
		TenantID:    sec.TenantID,
		Bucket:      s.bucket,
		ContentType: contentTypeOrDefault(opts.ContentType),
		SizeBytes:   int64(len(body)),
		Checksum:    checksum(body),
		Encrypted:   opts.Encrypt,
		CreatedAt:   now,
		UpdatedAt:   now,
		Attributes:  opts.Metadata,
	}
	if existing, getErr := s.metadata.GetItem(ctx, scoped); getErr == nil && existing != nil {
		md.CreatedAt = existing.CreatedAt
	}

	if err = s.metadata.PutItem(ctx, md); err != nil {
		s.log.ErrorWithCause(sec.TenantID, "", "metadata write-through failed", err, map[string]interface{}{"key": key})
		return err
	}
	return nil
}

// GetObject reads the caller's object. A missing object is not an
// error: the body comes back nil.
func (s *Service) GetObject(ctx context.Context, sec *security.Context, key string) (body []byte, err error) {
	finish := telemetry.Track(ctx, "storage.get", "Read object "+key)
	defer func() { finish(err) }()
	defer s.count("get", &err)

	if err = s.authorize(sec, "GetObject", PermissionRead); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fault.InvalidArgument("storage", "GetObject", "key is required")
	}

	scoped := ScopedKey(sec.TenantID, key)
	body, err = resilience.Execute(ctx, s.retry, s.operation("storage.Get", sec), func(ctx context.Context) ([]byte, error) {
		return s.objects.Get(ctx, s.bucket, scoped)
	})
	if err != nil {
		if fault.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	promStorageBytes.WithLabelValues("out").Add(float64(len(body)))
	return body, nil
}

// ObjectExists reports whether the caller's key holds an object.
func (s *Service) ObjectExists(ctx context.Context, sec *security.Context, key string) (ok bool, err error) {
	defer s.count("exists", &err)

	if err = s.authorize(sec, "ObjectExists", PermissionRead); err != nil {
		return false, err
	}
	if key == "" {
		return false, fault.InvalidArgument("storage", "ObjectExists", "key is required")
	}

	scoped := ScopedKey(sec.TenantID, key)
	return resilience.Execute(ctx, s.retry, s.operation("storage.Exists", sec), func(ctx context.Context) (bool, error) {
		return s.objects.Exists(ctx, s.bucket, scoped)
	})
}

// DeleteObject removes the caller's object and its metadata record.
// Reports false when no object existed.
func (s *Service) DeleteObject(ctx context.Context, sec *security.Context, key string) (deleted bool, err error) {
	finish := telemetry.Track(ctx, "storage.delete", "Delete object "+key)
	defer func() { finish(err) }()
	defer s.count("delete", &err)

	if err = s.authorize(sec, "DeleteObject", PermissionDelete); err != nil {
		return false, err
	}
	if key == "" {
		return false, fault.InvalidArgument("storage", "DeleteObject", "key is required")
	}

	scoped := ScopedKey(sec.TenantID, key)
	existed, err := resilience.Execute(ctx, s.retry, s.operation("storage.Exists", sec), func(ctx context.Context) (bool, error) {
		return s.objects.Exists(ctx, s.bucket, scoped)
	})
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}

	err = resilience.Do(ctx, s.retry, s.operation("storage.Delete", sec), func(ctx context.Context) error {
		return s.objects.Delete(ctx, s.bucket, scoped)
	})
	if err != nil {
		return false, err
	}

	if s.metadata != nil {
		if _, mdErr := s.metadata.DeleteItem(ctx, scoped); mdErr != nil {
			s.log.ErrorWithCause(sec.TenantID, "", "metadata delete failed", mdErr, map[string]interface{}{"key": key})
		}
	}
	return true, nil
}

// ListObjects returns the caller's keys under the given prefix, with
// the tenant qualifier stripped.
func (s *Service) ListObjects(ctx context.Context, sec *security.Context, prefix string, max int32) (keys []string, err error) {
	defer s.count("list", &err)

	if err = s.authorize(sec, "ListObjects", PermissionList); err != nil {
		return nil, err
	}

	scopedPrefix := ScopePrefix(sec.TenantID) + prefix
	scoped, err := resilience.Execute(ctx, s.retry, s.operation("storage.List", sec), func(ctx context.Context) ([]string, error) {
		return s.objects.List(ctx, s.bucket, scopedPrefix, max)
	})
	if err != nil {
		return nil, err
	}

	keys = make([]string, 0, len(scoped))
	for _, k := range scoped {
		keys = append(keys, StripScope(sec.TenantID, k))
	}
	return keys, nil
}

// GetMetadata returns the index record for the caller's key, or nil
// when none exists.
func (s *Service) GetMetadata(ctx context.Context, sec *security.Context, key string) (md *StorageMetadata, err error) {
	defer s.count("get_metadata", &err)

	if err = s.authorize(sec, "GetMetadata", PermissionRead); err != nil {
		return nil, err
	}
	if s.metadata == nil {
		return nil, fault.Internal("storage", "GetMetadata", "metadata store not configured", nil)
	}
	if key == "" {
		return nil, fault.InvalidArgument("storage", "GetMetadata", "key is required")
	}

	return s.metadata.GetItem(ctx, ScopedKey(sec.TenantID, key))
}

// DeleteMetadata removes the index record for the caller's key.
// Reports false when no record existed.
func (s *Service) DeleteMetadata(ctx context.Context, sec *security.Context, key string) (deleted bool, err error) {
	defer s.count("delete_metadata", &err)

	if err = s.authorize(sec, "DeleteMetadata", PermissionDelete); err != nil {
		return false, err
	}
	if s.metadata == nil {
		return false, fault.Internal("storage", "DeleteMetadata", "metadata store not configured", nil)
	}
	if key == "" {
		return false, fault.InvalidArgument("storage", "DeleteMetadata", "key is required")
	}

	return s.metadata.DeleteItem(ctx, ScopedKey(sec.TenantID, key))
}

// ListMetadata scans the caller's index records page by page. Records
// keep their tenant-qualified storage keys.
func (s *Service) ListMetadata(ctx context.Context, sec *security.Context, limit int32, startKey string) (page *MetadataPage, err error) {
	defer s.count("list_metadata", &err)

	if err = s.authorize(sec, "ListMetadata", PermissionList); err != nil {
		return nil, err
	}
	if s.metadata == nil {
		return nil, fault.Internal("storage", "ListMetadata", "metadata store not configured", nil)
	}

	return s.metadata.QueryByTenant(ctx, sec.TenantID, limit, startKey)
}

func (s *Service) authorize(sec *security.Context, op, permission string) error {
	if sec == nil || !sec.IsValid() {
		return fault.Unauthorized("storage", op, "caller is not authenticated")
	}
	if !sec.HasPermission(permission) {
		return fault.Unauthorized("storage", op, fmt.Sprintf("caller lacks permission %s", permission))
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
	promStorageOps.WithLabelValues(operation, status).Inc()
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
