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

// Package orchestration launches and tracks long-running workflows for
// the CareBridge platform.
//
// The facade does not execute workflows. StartWorkflow validates the
// request, publishes a kickoff message to the work queue and persists
// an initiated record; external workers consume the queue, execute the
// steps and report progress back through the state store. Ordering
// matters: the message goes out first, and an enqueue failure leaves
// no workflow record behind.
//
// Workflow status follows a fixed state machine,
//
//	initiated -> running -> {completed, failed, cancelled}
//
// where running is only ever written by a worker. Cancellation is
// advisory: CancelWorkflow publishes a cancellation message tagged
// MessageType=cancellation and returns; the worker transitions the
// record when it honors the request, and a workflow mid-step may still
// run to completion.
//
// SQSQueue sends messages through Amazon SQS and PostgresStore persists
// state in PostgreSQL with every statement scoped by tenant. The
// in-memory equivalents back local development and tests.
package orchestration
