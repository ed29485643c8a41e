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

// Package fault defines the error taxonomy shared by every integration
// facade. Callers branch on a stable Kind instead of matching backend
// error strings, so swapping a cloud SDK never changes caller behavior.
package fault

import "errors"

// Kind classifies a platform error into one of the categories callers
// are expected to branch on.
type Kind string

const (
	// KindInvalidArgument marks caller mistakes detected before any
	// network call. Never retried.
	KindInvalidArgument Kind = "invalid_argument"
	// KindUnauthorized marks missing, expired, or insufficient
	// credentials. Never retried.
	KindUnauthorized Kind = "unauthorized"
	// KindTransientTransport marks throttling, timeouts, and 5xx-class
	// backend failures. Safe to retry.
	KindTransientTransport Kind = "transient_transport"
	// KindApplicationDeclined marks requests the downstream system
	// accepted but refused to fulfil (content filters, model refusals).
	// Surfaced as a failed result, not an error, by facades that can.
	KindApplicationDeclined Kind = "application_declined"
	// KindNotFound marks absent objects and records. Read paths
	// translate it to a nil result, delete paths to false.
	KindNotFound Kind = "not_found"
	// KindCancelled marks context cancellation or deadline expiry.
	KindCancelled Kind = "cancelled"
	// KindDimensionMismatch marks vector operands of unequal length.
	KindDimensionMismatch Kind = "dimension_mismatch"
	// KindInternal marks unexpected platform-side failures.
	KindInternal Kind = "internal"
)

// Error is the error type every facade returns. Service and Op identify
// where the failure happened; Kind says what category it is.
type Error struct {
	Kind    Kind
	Service string
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Service + "." + e.Op + ": " + e.Message + " (cause: " + e.Err.Error() + ")"
	}
	return e.Service + "." + e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with an explicit kind.
func New(kind Kind, service, op, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Service: service,
		Op:      op,
		Message: message,
		Err:     cause,
	}
}

// InvalidArgument reports a caller mistake naming the offending field.
func InvalidArgument(service, op, message string) *Error {
	return New(KindInvalidArgument, service, op, message, nil)
}

// Unauthorized reports missing or insufficient credentials.
func Unauthorized(service, op, message string) *Error {
	return New(KindUnauthorized, service, op, message, nil)
}

// Transient reports a retryable transport-level failure.
func Transient(service, op, message string, cause error) *Error {
	return New(KindTransientTransport, service, op, message, cause)
}

// Declined reports a request the downstream accepted but refused.
func Declined(service, op, message string) *Error {
	return New(KindApplicationDeclined, service, op, message, nil)
}

// NotFound reports an absent object or record.
func NotFound(service, op, message string) *Error {
	return New(KindNotFound, service, op, message, nil)
}

// Cancelled wraps a context error once the caller's deadline or
// cancellation fired.
func Cancelled(service, op string, cause error) *Error {
	return New(KindCancelled, service, op, "operation cancelled", cause)
}

// DimensionMismatch reports vector operands of unequal length.
func DimensionMismatch(service, op, message string) *Error {
	return New(KindDimensionMismatch, service, op, message, nil)
}

// Internal reports an unexpected platform-side failure.
func Internal(service, op, message string, cause error) *Error {
	return New(KindInternal, service, op, message, cause)
}

// KindOf walks the error chain and returns the kind of the outermost
// *Error, or KindInternal when the chain carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Is reports whether the error chain carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// IsRetryable reports whether the error is transient and safe to retry.
func IsRetryable(err error) bool {
	return Is(err, KindTransientTransport)
}

// IsNotFound reports whether the error marks an absent object or record.
func IsNotFound(err error) bool {
	return Is(err, KindNotFound)
}
