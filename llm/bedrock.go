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

package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// ModelInvoker is the slice of the Bedrock runtime client the service
// depends on. *bedrockruntime.Client satisfies it.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockConfig configures the AWS Bedrock runtime client.
type BedrockConfig struct {
	// Region is the AWS region Bedrock is invoked in. Required.
	Region string

	// AccessKeyID and SecretAccessKey override the default credential
	// chain when both are set. SessionToken is optional.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Endpoint overrides the Bedrock endpoint, typically for local
	// testing against a mock.
	Endpoint string
}

// NewBedrockClient creates a Bedrock runtime client with AWS Signature
// V4 auth. Uses explicit credentials when provided, otherwise the
// default credential chain.
func NewBedrockClient(ctx context.Context, cfg BedrockConfig) (*bedrockruntime.Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock region is required")
	}

	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", cfg.Region, err)
	}

	clientOpts := []func(*bedrockruntime.Options){}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return bedrockruntime.NewFromConfig(awsCfg, clientOpts...), nil
}
