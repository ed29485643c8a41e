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
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"carebridge/platform/resilience"
	"carebridge/platform/shared/fault"
)

// dynamoAPI is the slice of the DynamoDB client DynamoStore depends
// on. *dynamodb.Client satisfies it.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore implements MetadataStore on DynamoDB. The table is keyed
// by tenant_id (hash) and storage_key (range); the tenant is parsed
// from the scoped storage key, so single-key lookups never scan.
type DynamoStore struct {
	client dynamoAPI
	table  string
}

// NewDynamoStore creates a DynamoDB-backed metadata store.
func NewDynamoStore(ctx context.Context, region, table string) (*DynamoStore, error) {
	if table == "" {
		return nil, fault.InvalidArgument("storage", "NewDynamoStore", "metadata table name is required")
	}

	optFns := []func(*config.LoadOptions) error{}
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fault.Internal("storage", "NewDynamoStore", "failed to load AWS config", err)
	}

	return &DynamoStore{client: dynamodb.NewFromConfig(awsCfg), table: table}, nil
}

func (d *DynamoStore) PutItem(ctx context.Context, md StorageMetadata) error {
	if md.StorageKey == "" || md.TenantID == "" {
		return fault.InvalidArgument("storage", "PutItem", "storage key and tenant id are required")
	}

	item := map[string]dtypes.AttributeValue{
		"tenant_id":    &dtypes.AttributeValueMemberS{Value: md.TenantID},
		"storage_key":  &dtypes.AttributeValueMemberS{Value: md.StorageKey},
		"bucket":       &dtypes.AttributeValueMemberS{Value: md.Bucket},
		"content_type": &dtypes.AttributeValueMemberS{Value: md.ContentType},
		"size_bytes":   &dtypes.AttributeValueMemberN{Value: strconv.FormatInt(md.SizeBytes, 10)},
		"checksum":     &dtypes.AttributeValueMemberS{Value: md.Checksum},
		"encrypted":    &dtypes.AttributeValueMemberBOOL{Value: md.Encrypted},
		"created_at":   &dtypes.AttributeValueMemberS{Value: md.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"updated_at":   &dtypes.AttributeValueMemberS{Value: md.UpdatedAt.UTC().Format(time.RFC3339Nano)},
	}
	if len(md.Attributes) > 0 {
		attrs := make(map[string]dtypes.AttributeValue, len(md.Attributes))
		for k, v := range md.Attributes {
			attrs[k] = &dtypes.AttributeValueMemberS{Value: v}
		}
		item["attributes"] = &dtypes.AttributeValueMemberM{Value: attrs}
	}

	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return resilience.WrapAWS("storage", "PutItem", err)
	}
	return nil
}

func (d *DynamoStore) GetItem(ctx context.Context, storageKey string) (*StorageMetadata, error) {
	key, err := d.primaryKey(storageKey, "GetItem")
	if err != nil {
		return nil, err
	}

	output, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       key,
	})
	if err != nil {
		return nil, resilience.WrapAWS("storage", "GetItem", err)
	}
	if len(output.Item) == 0 {
		return nil, nil
	}
	return decodeMetadataItem(output.Item), nil
}

func (d *DynamoStore) DeleteItem(ctx context.Context, storageKey string) (bool, error) {
	key, err := d.primaryKey(storageKey, "DeleteItem")
	if err != nil {
		return false, err
	}

	output, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.table),
		Key:          key,
		ReturnValues: dtypes.ReturnValueAllOld,
	})
	if err != nil {
		return false, resilience.WrapAWS("storage", "DeleteItem", err)
	}
	return len(output.Attributes) > 0, nil
}

func (d *DynamoStore) QueryByTenant(ctx context.Context, tenantID string, limit int32, startKey string) (*MetadataPage, error) {
	if tenantID == "" {
		return nil, fault.InvalidArgument("storage", "QueryByTenant", "tenant id is required")
	}
	if limit <= 0 {
		limit = 100
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("tenant_id = :tid"),
		ExpressionAttributeValues: map[string]dtypes.AttributeValue{
			":tid": &dtypes.AttributeValueMemberS{Value: tenantID},
		},
		Limit: aws.Int32(limit),
	}
	if startKey != "" {
		input.ExclusiveStartKey = map[string]dtypes.AttributeValue{
			"tenant_id":   &dtypes.AttributeValueMemberS{Value: tenantID},
			"storage_key": &dtypes.AttributeValueMemberS{Value: startKey},
		}
	}

	output, err := d.client.Query(ctx, input)
	if err != nil {
		return nil, resilience.WrapAWS("storage", "QueryByTenant", err)
	}

	page := &MetadataPage{Items: make([]*StorageMetadata, 0, len(output.Items))}
	for _, item := range output.Items {
		page.Items = append(page.Items, decodeMetadataItem(item))
	}
	if lek, ok := output.LastEvaluatedKey["storage_key"].(*dtypes.AttributeValueMemberS); ok {
		page.NextStartKey = lek.Value
	}
	return page, nil
}

func (d *DynamoStore) primaryKey(storageKey, op string) (map[string]dtypes.AttributeValue, error) {
	tenantID, ok := TenantOf(storageKey)
	if !ok {
		return nil, fault.InvalidArgument("storage", op, "storage key is not tenant-scoped")
	}
	return map[string]dtypes.AttributeValue{
		"tenant_id":   &dtypes.AttributeValueMemberS{Value: tenantID},
		"storage_key": &dtypes.AttributeValueMemberS{Value: storageKey},
	}, nil
}

func decodeMetadataItem(item map[string]dtypes.AttributeValue) *StorageMetadata {
	md := &StorageMetadata{
		TenantID:    stringAttr(item, "tenant_id"),
		StorageKey:  stringAttr(item, "storage_key"),
		Bucket:      stringAttr(item, "bucket"),
		ContentType: stringAttr(item, "content_type"),
		Checksum:    stringAttr(item, "checksum"),
	}
	if n, ok := item["size_bytes"].(*dtypes.AttributeValueMemberN); ok {
		md.SizeBytes, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	if b, ok := item["encrypted"].(*dtypes.AttributeValueMemberBOOL); ok {
		md.Encrypted = b.Value
	}
	if ts := stringAttr(item, "created_at"); ts != "" {
		md.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	if ts := stringAttr(item, "updated_at"); ts != "" {
		md.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	if m, ok := item["attributes"].(*dtypes.AttributeValueMemberM); ok {
		md.Attributes = make(map[string]string, len(m.Value))
		for k, v := range m.Value {
			if s, ok := v.(*dtypes.AttributeValueMemberS); ok {
				md.Attributes[k] = s.Value
			}
		}
	}
	return md
}

func stringAttr(item map[string]dtypes.AttributeValue, name string) string {
	if s, ok := item[name].(*dtypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

var _ MetadataStore = (*DynamoStore)(nil)
