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

// Package llm provides the AWS Bedrock integration for the CareBridge
// platform: text generation and embeddings behind a single façade with
// authorization, validation, retry, circuit breaking, and telemetry.
//
// # Pipeline
//
// Every call runs the same five phases:
//
//  1. Authorize the security context (llm:invoke or llm:embed).
//  2. Validate the request, applying service defaults.
//  3. Encode the model-specific body through the family codec.
//  4. Execute against Bedrock under the retry policy.
//  5. Decode the response body through the same codec.
//
// # Model families
//
// Bedrock models speak different wire schemas. Each schema is a
// ModelFamily with its own Codec; FamilyOf resolves the family from the
// model identifier, stripping inference profile prefixes (eu., us.,
// apac., global.) first. Supporting a new schema means registering one
// more codec; call sites never change.
//
// # Failure semantics
//
// Transport and service failures surface as classified errors from the
// fault package. A failure the model itself declares in the response
// body is not an error: it comes back as a Response with IsSuccess
// false and the declared message, so callers can record the outcome
// without unwinding.
//
// # Usage
//
//	client, err := llm.NewBedrockClient(ctx, llm.BedrockConfig{Region: "us-east-1"})
//	if err != nil {
//		return err
//	}
//	svc := llm.NewService(client)
//
//	resp, err := svc.Invoke(ctx, sec, llm.InvokeRequest{
//		Prompt:      "Summarize the discharge notes.",
//		MaxTokens:   512,
//		Temperature: 0.2,
//	})
package llm
