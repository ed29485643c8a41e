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
	"errors"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"carebridge/platform/shared/fault"
)

// GCSStore implements ObjectStore on Google Cloud Storage.
type GCSStore struct {
	client *gcstorage.Client
}

// GCSConfig configures the GCS client. With no credential fields set,
// Application Default Credentials are used.
type GCSConfig struct {
	CredentialsFile string
	CredentialsJSON []byte

	// Endpoint overrides the API endpoint, typically for the emulator.
	Endpoint string
}

// NewGCSStore creates a GCS-backed object store.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if len(cfg.CredentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fault.Internal("storage", "NewGCSStore", "failed to create GCS client", err)
	}
	return &GCSStore{client: client}, nil
}

// Close releases the underlying client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}

func (g *GCSStore) Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error {
	obj := g.client.Bucket(bucket).Object(key)
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentTypeOrDefault(opts.ContentType)
	if len(opts.Metadata) > 0 {
		writer.Metadata = opts.Metadata
	}
	if opts.Encrypt && opts.KMSKeyID != "" {
		writer.KMSKeyName = opts.KMSKeyID
	}

	if _, err := writer.Write(body); err != nil {
		return fault.Internal("storage", "Put", "failed to write object "+key, err)
	}
	if err := writer.Close(); err != nil {
		return g.wrapErr("Put", key, err)
	}
	return nil
}

func (g *GCSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	reader, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, g.wrapErr("Get", key, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fault.Internal("storage", "Get", "failed to read object body", err)
	}
	return body, nil
}

func (g *GCSStore) Delete(ctx context.Context, bucket, key string) error {
	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcstorage.ErrObjectNotExist) {
		return g.wrapErr("Delete", key, err)
	}
	return nil
}

func (g *GCSStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return false, nil
		}
		return false, g.wrapErr("Exists", key, err)
	}
	return true, nil
}

func (g *GCSStore) List(ctx context.Context, bucket, prefix string, max int32) ([]string, error) {
	if max <= 0 {
		max = 1000
	}

	it := g.client.Bucket(bucket).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	keys := make([]string, 0, max)
	for int32(len(keys)) < max {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, g.wrapErr("List", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (g *GCSStore) wrapErr(op, key string, err error) error {
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return fault.NotFound("storage", op, "object "+key+" not found")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fault.Cancelled("storage", op, err)
	}
	return fault.Internal("storage", op, "GCS operation failed", err)
}

var _ ObjectStore = (*GCSStore)(nil)
