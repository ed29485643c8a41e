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

package orchestration

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"carebridge/platform/resilience"
	"carebridge/platform/shared/fault"
)

// Message attribute names stamped on every queue message.
const (
	AttrMessageType  = "MessageType"
	AttrWorkflowID   = "WorkflowID"
	AttrTenantID     = "TenantID"
	AttrWorkflowType = "WorkflowType"
)

// Message types understood by workflow workers.
const (
	MessageTypeStart        = "workflow-start"
	MessageTypeCancellation = "cancellation"
)

// WorkQueue delivers workflow messages to the workers that execute
// them. Attributes ride outside the body so consumers can route on
// them without parsing the payload.
type WorkQueue interface {
	Send(ctx context.Context, queueURL, body string, attributes map[string]string) error
}

// sqsAPI is the slice of the SQS client the queue uses.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSConfig configures the SQS-backed work queue.
type SQSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Endpoint overrides the SQS endpoint, for LocalStack and tests.
	Endpoint string
}

// SQSQueue sends workflow messages through Amazon SQS.
type SQSQueue struct {
	client sqsAPI
}

var _ WorkQueue = (*SQSQueue)(nil)

// NewSQSQueue builds a queue backed by a real SQS client.
func NewSQSQueue(ctx context.Context, cfg SQSConfig) (*SQSQueue, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &SQSQueue{client: client}, nil
}

// Send publishes one message. String attributes only; SQS limits a
// message to ten attributes, which is far above what workflows stamp.
func (q *SQSQueue) Send(ctx context.Context, queueURL, body string, attributes map[string]string) error {
	if queueURL == "" {
		return fault.InvalidArgument("orchestration", "Send", "queue URL is required")
	}
	if body == "" {
		return fault.InvalidArgument("orchestration", "Send", "message body is required")
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attributes))
		for name, value := range attributes {
			input.MessageAttributes[name] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(value),
			}
		}
	}

	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return resilience.WrapAWS("orchestration", "Send", err)
	}
	return nil
}
