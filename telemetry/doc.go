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
Package telemetry tracks the steps of one logical session across facade
calls and derives session-level quality metrics from them.

# Overview

A session (a workflow run, an ingestion request, a chat exchange) creates
one telemetry Context, starts a Step per unit of work, and finishes each
step with its outcome. At session end Complete reconciles anything still
in progress, so abandoned steps never linger:

	tc := telemetry.NewContext("session-123")
	tc.StartStep("fetch", "Load document from object store")
	tc.CompleteStep("fetch")
	tc.StartStep("invoke", "Bedrock model invocation")
	// ... the invoke step is never finished explicitly ...
	tc.Complete(false, "session aborted")   // invoke becomes Failed

# Step Lifecycle

A step moves InProgress -> {Completed, Failed} exactly once. Completing
an already-terminal step is a no-op, which makes completion idempotent
and lets reconciliation at session end coexist with explicit completion.

# Metrics and Rating

Metrics derives totals, the success rate, and duration aggregates over
terminal steps. PerformanceRating grades the session 0-5 stars from the
success rate and the average step duration, with 0 reserved for empty
sessions.

# Request Context Carrier

Facades discover the session's telemetry through the request context, so
step recording needs no extra plumbing through call signatures:

	ctx = telemetry.IntoContext(ctx, tc)
	// inside a facade:
	done := telemetry.Track(ctx, "llm.invoke", "Bedrock model invocation")
	resp, err := backend.Invoke(ctx, req)
	done(err)

A Context is owned by its session and is not safe for concurrent
writers; concurrent step recording must be serialized by the caller.
*/
package telemetry
