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

// Package storage provides tenant-scoped object storage for the
// CareBridge platform with a durable metadata index.
//
// Every caller key is rewritten tenant:{tenantID}:{key} before it
// reaches a backend; list results come back with the qualifier
// stripped. Callers cannot address another tenant's data through this
// package.
//
// Three ObjectStore backends are provided: S3Store (Amazon S3 and
// compatible services), GCSStore (Google Cloud Storage), and
// AzureBlobStore (Azure Blob Storage). The metadata index is
// DynamoStore on DynamoDB. MemoryObjectStore and MemoryMetadataStore
// back local development and tests.
//
// Reads of absent objects are not errors: GetObject returns a nil
// body, GetMetadata returns a nil record, and DeleteObject reports
// false. Transport failures surface as classified fault errors and are
// retried under the facade's policy.
package storage
