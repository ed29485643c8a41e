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
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"carebridge/platform/shared/fault"
)

// AzureBlobStore implements ObjectStore on Azure Blob Storage. The
// bucket parameter maps to the container name.
type AzureBlobStore struct {
	client *azblob.Client
}

// AzureConfig configures the Azure Blob client. Exactly one of
// ConnectionString, AccountKey, or managed identity (neither set) is
// used, in that order.
type AzureConfig struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
}

// NewAzureBlobStore creates an Azure-backed object store.
func NewAzureBlobStore(cfg AzureConfig) (*AzureBlobStore, error) {
	if cfg.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fault.Internal("storage", "NewAzureBlobStore", "failed to create client from connection string", err)
		}
		return &AzureBlobStore{client: client}, nil
	}

	if cfg.AccountName == "" {
		return nil, fault.InvalidArgument("storage", "NewAzureBlobStore", "azure account name is required")
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)

	if cfg.AccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, fault.Internal("storage", "NewAzureBlobStore", "invalid shared key credential", err)
		}
		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fault.Internal("storage", "NewAzureBlobStore", "failed to create client", err)
		}
		return &AzureBlobStore{client: client}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fault.Internal("storage", "NewAzureBlobStore", "failed to obtain managed identity credential", err)
	}
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fault.Internal("storage", "NewAzureBlobStore", "failed to create client", err)
	}
	return &AzureBlobStore{client: client}, nil
}

func (a *AzureBlobStore) Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error {
	contentType := contentTypeOrDefault(opts.ContentType)
	uploadOpts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	}
	if len(opts.Metadata) > 0 {
		metadata := make(map[string]*string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			value := v
			metadata[k] = &value
		}
		uploadOpts.Metadata = metadata
	}

	if _, err := a.client.UploadBuffer(ctx, bucket, key, body, uploadOpts); err != nil {
		return a.wrapErr("Put", key, err)
	}
	return nil
}

func (a *AzureBlobStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		return nil, a.wrapErr("Get", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Internal("storage", "Get", "failed to read blob body", err)
	}
	return body, nil
}

func (a *AzureBlobStore) Delete(ctx context.Context, bucket, key string) error {
	_, err := a.client.DeleteBlob(ctx, bucket, key, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return a.wrapErr("Delete", key, err)
	}
	return nil
}

func (a *AzureBlobStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	blobClient := a.client.ServiceClient().NewContainerClient(bucket).NewBlobClient(key)
	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, a.wrapErr("Exists", key, err)
	}
	return true, nil
}

func (a *AzureBlobStore) List(ctx context.Context, bucket, prefix string, max int32) ([]string, error) {
	if max <= 0 {
		max = 1000
	}

	pager := a.client.NewListBlobsFlatPager(bucket, &azblob.ListBlobsFlatOptions{
		Prefix:     &prefix,
		MaxResults: &max,
	})

	keys := make([]string, 0, max)
	for pager.More() && int32(len(keys)) < max {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, a.wrapErr("List", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
			if int32(len(keys)) >= max {
				break
			}
		}
	}
	return keys, nil
}

func (a *AzureBlobStore) wrapErr(op, key string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fault.NotFound("storage", op, "object "+key+" not found")
	}
	if bloberror.HasCode(err, bloberror.AuthenticationFailed, bloberror.AuthorizationFailure, bloberror.InsufficientAccountPermissions) {
		return fault.Unauthorized("storage", op, "azure blob access denied")
	}
	if bloberror.HasCode(err, bloberror.ServerBusy, bloberror.InternalError, bloberror.OperationTimedOut) {
		return fault.Transient("storage", op, "azure blob service unavailable", err)
	}
	return fault.Internal("storage", op, "azure blob operation failed", err)
}

var _ ObjectStore = (*AzureBlobStore)(nil)
