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

package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  InvalidArgument("llm", "Invoke", "prompt must not be empty"),
			want: "llm.Invoke: prompt must not be empty",
		},
		{
			name: "with cause",
			err:  Transient("storage", "PutObject", "request throttled", errors.New("429")),
			want: "storage.PutObject: request throttled (cause: 429)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient("queue", "Send", "send failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid argument", InvalidArgument("s", "Op", "bad"), KindInvalidArgument},
		{"unauthorized", Unauthorized("s", "Op", "no"), KindUnauthorized},
		{"transient", Transient("s", "Op", "slow", nil), KindTransientTransport},
		{"declined", Declined("s", "Op", "refused"), KindApplicationDeclined},
		{"not found", NotFound("s", "Op", "gone"), KindNotFound},
		{"cancelled", Cancelled("s", "Op", errors.New("context canceled")), KindCancelled},
		{"dimension mismatch", DimensionMismatch("s", "Op", "3 vs 4"), KindDimensionMismatch},
		{"plain error", errors.New("boom"), KindInternal},
		{"wrapped platform error", fmt.Errorf("outer: %w", NotFound("s", "Op", "gone")), KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Transient("s", "Op", "throttled", nil)) {
		t.Error("transient transport errors must be retryable")
	}
	if IsRetryable(Unauthorized("s", "Op", "denied")) {
		t.Error("unauthorized errors must not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors must not be retryable")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NotFound("s", "Op", "missing")) {
		t.Error("expected IsNotFound to match a not-found error")
	}
	if IsNotFound(Internal("s", "Op", "broken", nil)) {
		t.Error("internal errors must not read as not-found")
	}
}
