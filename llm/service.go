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

package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/prometheus/client_golang/prometheus"

	"carebridge/platform/resilience"
	"carebridge/platform/security"
	"carebridge/platform/shared/fault"
	"carebridge/platform/shared/logger"
	"carebridge/platform/telemetry"
)

// Permissions checked before any model call.
const (
	PermissionInvoke = "llm:invoke"
	PermissionEmbed  = "llm:embed"
)

const defaultMaxTokens = 1024

// Prometheus metrics
var (
	promModelCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_llm_calls_total",
			Help: "Total number of model invocations by family and outcome",
		},
		[]string{"family", "status"},
	)
	promModelDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carebridge_llm_call_duration_milliseconds",
			Help:    "Model invocation duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"family"},
	)
	promModelTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_llm_tokens_total",
			Help: "Total tokens consumed by family and direction",
		},
		[]string{"family", "direction"},
	)
)

func init() {
	prometheus.MustRegister(promModelCalls)
	prometheus.MustRegister(promModelDuration)
	prometheus.MustRegister(promModelTokens)
}

// Service is the façade over AWS Bedrock. Every call runs the same
// pipeline: authorize the caller, validate the request, encode the
// model body, execute with retry and circuit breaking, and map the
// response. Transport failures surface as errors; failures the model
// itself declares come back as unsuccessful responses.
type Service struct {
	invoker ModelInvoker
	retry   *resilience.Policy
	breaker *resilience.CircuitBreaker
	log     *logger.Logger

	defaultModel      string
	defaultEmbedModel string

	healthy atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p *resilience.Policy) Option {
	return func(s *Service) { s.retry = p }
}

// WithCircuitBreaker sets a circuit breaker consulted before each call.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *Service) { s.breaker = cb }
}

// WithLogger overrides the default logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithDefaultModels sets the models used when a request does not name
// one.
func WithDefaultModels(invokeModel, embedModel string) Option {
	return func(s *Service) {
		s.defaultModel = invokeModel
		s.defaultEmbedModel = embedModel
	}
}

// NewService creates the Bedrock façade.
func NewService(invoker ModelInvoker, opts ...Option) *Service {
	s := &Service{
		invoker:           invoker,
		log:               logger.New("llm"),
		defaultModel:      "anthropic.claude-3-5-sonnet-20240620-v1:0",
		defaultEmbedModel: "amazon.titan-embed-text-v2:0",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry == nil {
		s.retry = resilience.DefaultPolicy(s.log)
	}
	s.healthy.Store(true)
	return s
}

// Invoke runs a text generation call against the model named in the
// request, or the service default when the request leaves it empty.
//
// The caller must hold llm:invoke. A response with IsSuccess false
// means the model itself declined the request; that is a result, not
// an error.
func (s *Service) Invoke(ctx context.Context, sec *security.Context, req InvokeRequest) (resp *Response, err error) {
	finish := telemetry.Track(ctx, "llm.invoke", "Invoke model "+req.ModelID)
	defer func() { finish(err) }()

	if err = s.authorize(sec, "Invoke", PermissionInvoke); err != nil {
		return nil, err
	}

	if req.ModelID == "" {
		req.ModelID = s.defaultModel
	}
	if err = validateInvoke(req); err != nil {
		return nil, err
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	codec, err := CodecFor(req.ModelID)
	if err != nil {
		return nil, err
	}
	family := string(codec.Family())

	body, err := codec.EncodeInvoke(req)
	if err != nil {
		return nil, fault.Internal("llm", "Invoke", "failed to encode request body", err)
	}

	start := time.Now()
	out, err := s.execute(ctx, sec, "llm.Invoke", req.ModelID, body)
	latency := time.Since(start)
	promModelDuration.WithLabelValues(family).Observe(float64(latency.Milliseconds()))

	if err != nil {
		promModelCalls.WithLabelValues(family, "error").Inc()
		s.log.ErrorWithCause(sec.TenantID, "", "model invocation failed", err, map[string]interface{}{
			"model":  req.ModelID,
			"family": family,
		})
		return nil, err
	}

	resp, err = codec.DecodeInvoke(out.Body)
	if err != nil {
		promModelCalls.WithLabelValues(family, "error").Inc()
		return nil, err
	}
	resp.ModelID = req.ModelID
	resp.Latency = latency

	if !resp.IsSuccess {
		promModelCalls.WithLabelValues(family, "declined").Inc()
		s.log.Warn(sec.TenantID, "", "model declined request", map[string]interface{}{
			"model": req.ModelID,
			"error": resp.ErrorMessage,
		})
		return resp, nil
	}

	promModelCalls.WithLabelValues(family, "success").Inc()
	promModelTokens.WithLabelValues(family, "input").Add(float64(resp.InputTokens))
	promModelTokens.WithLabelValues(family, "output").Add(float64(resp.OutputTokens))
	s.log.InfoWithDuration(sec.TenantID, "", "model invocation completed", float64(latency.Milliseconds()), map[string]interface{}{
		"model":         req.ModelID,
		"family":        family,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
	})
	return resp, nil
}

// Embed generates an embedding vector for the request text.
//
// The caller must hold llm:embed. Declined requests come back as
// unsuccessful responses, mirroring Invoke.
func (s *Service) Embed(ctx context.Context, sec *security.Context, req EmbedRequest) (resp *EmbedResponse, err error) {
	finish := telemetry.Track(ctx, "llm.embed", "Embed with model "+req.ModelID)
	defer func() { finish(err) }()

	if err = s.authorize(sec, "Embed", PermissionEmbed); err != nil {
		return nil, err
	}

	if req.ModelID == "" {
		req.ModelID = s.defaultEmbedModel
	}
	if req.Text == "" {
		return nil, fault.InvalidArgument("llm", "Embed", "text is required")
	}

	codec, err := EmbedCodecFor(req.ModelID)
	if err != nil {
		return nil, err
	}
	family := string(codec.Family())

	body, err := codec.EncodeEmbed(req)
	if err != nil {
		return nil, fault.Internal("llm", "Embed", "failed to encode request body", err)
	}

	start := time.Now()
	out, err := s.execute(ctx, sec, "llm.Embed", req.ModelID, body)
	latency := time.Since(start)
	promModelDuration.WithLabelValues(family).Observe(float64(latency.Milliseconds()))

	if err != nil {
		promModelCalls.WithLabelValues(family, "error").Inc()
		return nil, err
	}

	resp, err = codec.DecodeEmbed(out.Body)
	if err != nil {
		promModelCalls.WithLabelValues(family, "error").Inc()
		return nil, err
	}
	resp.ModelID = req.ModelID
	resp.Latency = latency

	if !resp.IsSuccess {
		promModelCalls.WithLabelValues(family, "declined").Inc()
		return resp, nil
	}

	promModelCalls.WithLabelValues(family, "success").Inc()
	promModelTokens.WithLabelValues(family, "input").Add(float64(resp.InputTokens))
	return resp, nil
}

// execute sends one encoded body to Bedrock under the retry policy and
// circuit breaker. Errors come back classified.
func (s *Service) execute(ctx context.Context, sec *security.Context, opName, modelID string, body []byte) (*bedrockruntime.InvokeModelOutput, error) {
	if s.breaker != nil && !s.breaker.Allow() {
		return nil, fault.Transient("llm", opName, "circuit breaker open for model backend", nil)
	}

	op := resilience.Operation{
		Name:     opName,
		TenantID: sec.TenantID,
	}

	out, err := resilience.Execute(ctx, s.retry, op, func(ctx context.Context) (*bedrockruntime.InvokeModelOutput, error) {
		result, callErr := s.invoker.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(modelID),
			Body:        body,
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
		})
		if callErr != nil {
			return nil, resilience.WrapAWS("llm", opName, callErr)
		}
		return result, nil
	})

	if err != nil {
		if s.breaker != nil && fault.IsRetryable(err) {
			s.breaker.RecordFailure()
		}
		if fault.KindOf(err) != fault.KindCancelled {
			s.healthy.Store(false)
		}
		return nil, err
	}

	if s.breaker != nil {
		s.breaker.RecordSuccess()
	}
	s.healthy.Store(true)
	return out, nil
}

func (s *Service) authorize(sec *security.Context, op, permission string) error {
	if sec == nil || !sec.IsValid() {
		return fault.Unauthorized("llm", op, "caller is not authenticated")
	}
	if !sec.HasPermission(permission) {
		return fault.Unauthorized("llm", op, fmt.Sprintf("caller lacks permission %s", permission))
	}
	return nil
}

func validateInvoke(req InvokeRequest) error {
	if req.ModelID == "" {
		return fault.InvalidArgument("llm", "Invoke", "model id is required")
	}
	if req.Prompt == "" {
		return fault.InvalidArgument("llm", "Invoke", "prompt is required")
	}
	if req.Temperature < 0 || req.Temperature > 1 {
		return fault.InvalidArgument("llm", "Invoke", "temperature must be between 0 and 1")
	}
	return nil
}

// HealthCheck reports whether the model backend is reachable based on
// the most recent call outcome and circuit breaker state.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fault.Cancelled("llm", "HealthCheck", err)
	}
	if s.invoker == nil {
		return fault.Internal("llm", "HealthCheck", "no model backend configured", nil)
	}
	if s.breaker != nil && s.breaker.State() == resilience.CircuitOpen {
		return fault.Transient("llm", "HealthCheck", "circuit breaker open for model backend", nil)
	}
	if !s.healthy.Load() {
		return fault.Transient("llm", "HealthCheck", "last model call failed", nil)
	}
	return nil
}
