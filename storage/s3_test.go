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
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"carebridge/platform/shared/fault"
)

// fakeS3 scripts responses for the S3Store tests.
type fakeS3 struct {
	putInput  *s3.PutObjectInput
	getErr    error
	headErr   error
	listKeys  []string
	getBody   []byte
	deleteErr error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putInput = params
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.getBody))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	contents := make([]types.Object, 0, len(f.listKeys))
	for _, key := range f.listKeys {
		contents = append(contents, types.Object{Key: aws.String(key)})
	}
	return &s3.ListObjectsV2Output{Contents: contents}, nil
}

func TestS3Store_PutEncryption(t *testing.T) {
	tests := []struct {
		name     string
		opts     PutOptions
		wantSSE  types.ServerSideEncryption
		wantKMS  string
		wantNone bool
	}{
		{"no encryption", PutOptions{}, "", "", true},
		{"managed keys", PutOptions{Encrypt: true}, types.ServerSideEncryptionAes256, "", false},
		{"kms key", PutOptions{Encrypt: true, KMSKeyID: "alias/carebridge"}, types.ServerSideEncryptionAwsKms, "alias/carebridge", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeS3{}
			store := &S3Store{client: fake}

			if err := store.Put(context.Background(), "bucket", "key", []byte("body"), tt.opts); err != nil {
				t.Fatalf("Put() unexpected error: %v", err)
			}

			if tt.wantNone {
				if fake.putInput.ServerSideEncryption != "" {
					t.Errorf("ServerSideEncryption = %v, want unset", fake.putInput.ServerSideEncryption)
				}
				return
			}
			if fake.putInput.ServerSideEncryption != tt.wantSSE {
				t.Errorf("ServerSideEncryption = %v, want %v", fake.putInput.ServerSideEncryption, tt.wantSSE)
			}
			if tt.wantKMS != "" && aws.ToString(fake.putInput.SSEKMSKeyId) != tt.wantKMS {
				t.Errorf("SSEKMSKeyId = %v, want %v", aws.ToString(fake.putInput.SSEKMSKeyId), tt.wantKMS)
			}
		})
	}
}

func TestS3Store_PutDefaultsContentType(t *testing.T) {
	fake := &fakeS3{}
	store := &S3Store{client: fake}

	if err := store.Put(context.Background(), "bucket", "key", []byte("body"), PutOptions{}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}
	if got := aws.ToString(fake.putInput.ContentType); got != "application/octet-stream" {
		t.Errorf("ContentType = %q, want application/octet-stream", got)
	}
}

func TestS3Store_GetMissingIsNotFound(t *testing.T) {
	fake := &fakeS3{getErr: &types.NoSuchKey{}}
	store := &S3Store{client: fake}

	_, err := store.Get(context.Background(), "bucket", "missing")
	if fault.KindOf(err) != fault.KindNotFound {
		t.Errorf("Get() kind = %v, want %v", fault.KindOf(err), fault.KindNotFound)
	}
}

func TestS3Store_Get(t *testing.T) {
	fake := &fakeS3{getBody: []byte("payload")}
	store := &S3Store{client: fake}

	body, err := store.Get(context.Background(), "bucket", "key")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("Get() = %q, want payload", body)
	}
}

func TestS3Store_ExistsMissing(t *testing.T) {
	fake := &fakeS3{headErr: &types.NotFound{}}
	store := &S3Store{client: fake}

	exists, err := store.Exists(context.Background(), "bucket", "missing")
	if err != nil {
		t.Fatalf("Exists() unexpected error: %v", err)
	}
	if exists {
		t.Error("Exists() = true, want false")
	}
}

func TestS3Store_List(t *testing.T) {
	fake := &fakeS3{listKeys: []string{"tenant:t1:a", "tenant:t1:b"}}
	store := &S3Store{client: fake}

	keys, err := store.List(context.Background(), "bucket", "tenant:t1:", 10)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "tenant:t1:a" {
		t.Errorf("List() = %v, want scoped keys", keys)
	}
}
