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

package resilience

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"carebridge/platform/shared/fault"
	"carebridge/platform/shared/logger"
)

var (
	promRetryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_retry_attempts_total",
			Help: "Retry attempts performed after a transient failure",
		},
		[]string{"operation"},
	)

	promRetryExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_retry_exhausted_total",
			Help: "Operations that failed after all retry attempts",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(promRetryAttempts)
	prometheus.MustRegister(promRetryExhausted)
}

// Policy configures retry behavior for one facade. The zero value retries
// nothing; DefaultPolicy returns the platform default.
type Policy struct {
	// MaxRetries is the number of additional attempts after the initial
	// try. Total attempts = MaxRetries + 1.
	MaxRetries int

	// BaseDelay is added to the exponential term of every backoff.
	BaseDelay time.Duration

	// Unit scales the exponential term: the wait after the nth failed
	// attempt is 2^n * Unit + BaseDelay. Zero means one second.
	Unit time.Duration

	// RetryableKinds lists the error kinds the policy retries. Empty
	// means transient transport errors only.
	RetryableKinds []fault.Kind

	// Logger receives the warning emitted before each retry. Nil
	// disables retry logging.
	Logger *logger.Logger
}

// DefaultPolicy returns the platform default: three retries on transient
// transport failures with a one-second exponent unit.
func DefaultPolicy(log *logger.Logger) *Policy {
	return &Policy{
		MaxRetries: 3,
		BaseDelay:  0,
		Unit:       time.Second,
		Logger:     log,
	}
}

// Delay returns the backoff after the nth attempt (1-indexed) fails:
// 2^n * Unit + BaseDelay.
func (p Policy) Delay(attempt int) time.Duration {
	unit := p.Unit
	if unit == 0 {
		unit = time.Second
	}
	return time.Duration(1<<uint(attempt))*unit + p.BaseDelay
}

func (p Policy) retryable(err error) bool {
	if err == nil {
		return false
	}
	if len(p.RetryableKinds) == 0 {
		return fault.IsRetryable(err)
	}
	kind := fault.KindOf(err)
	for _, k := range p.RetryableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Operation identifies one retried call for logging and metrics.
type Operation struct {
	// Name is the dotted service.operation identifier, e.g. "llm.Invoke".
	Name string
	// TenantID scopes the retry warnings to the calling tenant.
	TenantID string
	// RequestID correlates the warnings with the originating request.
	RequestID string
}

// Execute runs fn with exponential backoff retry under the policy.
//
// Attempts are 1-indexed; a retryable failure of attempt n waits
// Delay(n) before attempt n+1, up to MaxRetries additional attempts.
// Non-retryable errors propagate immediately without consuming a retry,
// and the last error is returned unchanged on exhaustion. Context
// cancellation is honored before every attempt and during every wait.
func Execute[T any](ctx context.Context, p *Policy, op Operation, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if p == nil {
		p = &Policy{}
	}

	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fault.Cancelled(serviceOf(op.Name), opOf(op.Name), err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !p.retryable(err) {
			return zero, err
		}

		lastErr = err

		// No wait after the final attempt
		if attempt > p.MaxRetries {
			break
		}

		delay := p.Delay(attempt)
		if p.Logger != nil {
			p.Logger.WarnRetry(op.TenantID, op.RequestID, op.Name, attempt, delay, err)
		}
		promRetryAttempts.WithLabelValues(op.Name).Inc()

		select {
		case <-ctx.Done():
			return zero, fault.Cancelled(serviceOf(op.Name), opOf(op.Name), ctx.Err())
		case <-time.After(delay):
		}
	}

	promRetryExhausted.WithLabelValues(op.Name).Inc()
	return zero, lastErr
}

// Do runs a result-less operation under the policy.
func Do(ctx context.Context, p *Policy, op Operation, fn func(context.Context) error) error {
	_, err := Execute(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// serviceOf extracts the service half of a dotted operation name.
func serviceOf(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}

// opOf extracts the operation half of a dotted operation name.
func opOf(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
