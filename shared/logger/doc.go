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

/*
Package logger provides structured JSON logging with multi-tenant support
for CareBridge components.

# Overview

The logger package provides structured logging that outputs JSON to stdout,
making logs easily consumable by CloudWatch, ELK stack, or other log
aggregation systems.

Each log entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (llm, storage, orchestration, etc.)
  - Instance ID and container name (for distributed tracing)
  - Tenant ID (for multi-tenant isolation)
  - Request ID (for request correlation)
  - Custom fields

# Usage

Create a logger for your component:

	log := logger.New("llm")

Log messages with tenant and request context:

	log.Info("tenant-123", "req-456", "Invoke completed", map[string]interface{}{
	    "model_id": "anthropic.claude-3-sonnet",
	    "tokens":   482,
	})

The retry helper emits the standard warning written before every retry
attempt, carrying the operation, attempt number, and backoff delay:

	log.WarnRetry("tenant-123", "req-456", "llm.Invoke", 1, 2*time.Second, err)
*/
package logger
