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

import "context"

// PutOptions carries per-object write settings.
type PutOptions struct {
	// ContentType defaults to application/octet-stream when empty.
	ContentType string

	// Metadata is attached to the object as backend-native metadata.
	Metadata map[string]string

	// Encrypt requests server-side encryption. With an empty KMSKeyID
	// the backend's managed keys are used (AES256 on S3).
	Encrypt  bool
	KMSKeyID string
}

// ObjectStore is the backend contract for blob operations. Keys passed
// in are already tenant-scoped. Get reports a missing object with a
// fault.KindNotFound error; Delete on a missing object is not an
// error.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	List(ctx context.Context, bucket, prefix string, max int32) ([]string, error)
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
