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
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"carebridge/platform/shared/fault"
)

// transientAWSCodes are the AWS error codes treated as retryable across
// all service clients. Throttling and server-side codes only; client
// mistakes never appear here.
var transientAWSCodes = map[string]bool{
	"ThrottlingException":                    true,
	"TooManyRequestsException":               true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"ServiceUnavailableException":            true,
	"ServiceUnavailable":                     true,
	"InternalServerException":                true,
	"InternalFailure":                        true,
	"InternalError":                          true,
	"ModelTimeoutException":                  true,
	"ModelNotReadyException":                 true,
	"RequestTimeout":                         true,
	"SlowDown":                               true,
}

// TransientAWS reports whether an AWS SDK error is a throttling,
// timeout, or server-side condition worth retrying.
func TransientAWS(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && transientAWSCodes[apiErr.ErrorCode()] {
		return true
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		if status == http.StatusTooManyRequests || (status >= 500 && status < 600) {
			return true
		}
	}

	return false
}

// WrapAWS classifies an AWS SDK error into the platform taxonomy.
// Transient conditions become retryable transport errors; authentication
// and validation failures keep their non-retryable kinds; everything
// else is internal. NotFound translation stays with the individual
// backends because the codes are service-specific.
func WrapAWS(service, op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fault.Cancelled(service, op, err)
	}

	if TransientAWS(err) {
		return fault.Transient(service, op, awsMessage(err, "transient backend failure"), err)
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fault.New(fault.KindUnauthorized, service, op, awsMessage(err, "access denied"), err)
		case http.StatusBadRequest:
			return fault.New(fault.KindInvalidArgument, service, op, awsMessage(err, "rejected request"), err)
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "AccessDenied", "UnauthorizedException", "UnrecognizedClientException":
			return fault.New(fault.KindUnauthorized, service, op, apiErr.ErrorMessage(), err)
		case "ValidationException", "InvalidParameterException", "InvalidRequestException":
			return fault.New(fault.KindInvalidArgument, service, op, apiErr.ErrorMessage(), err)
		}
	}

	return fault.Internal(service, op, awsMessage(err, "backend call failed"), err)
}

func awsMessage(err error, fallback string) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		return apiErr.ErrorMessage()
	}
	return fallback
}
