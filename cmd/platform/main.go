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

// Package main is the entry point for the CareBridge platform service.
//
// The platform exposes the infrastructure facades used by CareBridge
// clinical services: Bedrock model invocation and embeddings,
// tenant-scoped object storage with a metadata index, and durable
// workflow orchestration.
//
// Usage:
//
//	./platform
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	ENVIRONMENT - development, staging, or production
//	CONFIG_FILE - optional YAML configuration file
//	AWS_REGION - region for all AWS clients (default: us-east-1)
//	DATABASE_URL - PostgreSQL connection string for workflow state
//	WORKFLOW_QUEUE_URL - SQS queue for workflow kickoff messages
//	STORAGE_BUCKET - object storage bucket (unset: in-memory backend)
//	REDIS_URL - embedding cache (unset: cache disabled)
//	SECRETS_NAME - AWS Secrets Manager bundle for credentials
package main

import (
	"fmt"
	"os"

	"carebridge/platform/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "platform:", err)
		os.Exit(1)
	}
}
