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

package telemetry

import "context"

type carrierKey struct{}

// IntoContext attaches a telemetry context to the request context so
// facades along the call path can record step outcomes.
func IntoContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, carrierKey{}, tc)
}

// FromContext returns the telemetry context riding in ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(carrierKey{}).(*Context)
	return tc, ok
}

// Track starts a step when a telemetry context rides in ctx and returns
// the function that finishes it with the operation's outcome. Without a
// telemetry context the returned function does nothing, so facades call
// it unconditionally:
//
//	done := telemetry.Track(ctx, "llm.invoke", "Bedrock model invocation")
//	resp, err := backend.Invoke(...)
//	done(err)
func Track(ctx context.Context, name, description string) func(error) {
	tc, ok := FromContext(ctx)
	if !ok {
		return func(error) {}
	}
	tc.StartStep(name, description)
	return func(err error) {
		if err != nil {
			tc.FailStep(name, err.Error())
			return
		}
		tc.CompleteStep(name)
	}
}
