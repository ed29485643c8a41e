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

import "time"

// InvokeRequest describes one model invocation.
type InvokeRequest struct {
	// ModelID is the Bedrock model identifier, e.g.
	// "anthropic.claude-3-haiku-20240307-v1:0". Empty selects the
	// service default.
	ModelID string `json:"model_id,omitempty"`

	// Prompt is the user message. Required.
	Prompt string `json:"prompt"`

	// SystemPrompt is prepended as the system message for model
	// families that support one.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// MaxTokens caps the generated output. Zero selects the default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling randomness (0.0-1.0).
	Temperature float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling. Zero selects the family default.
	TopP float64 `json:"top_p,omitempty"`

	// StopSequences end generation early when emitted by the model.
	StopSequences []string `json:"stop_sequences,omitempty"`
}

// Response is the uniform invocation result. A response with IsSuccess
// false carries a failure the model itself declared; transport failures
// are raised as errors instead.
type Response struct {
	Content      string        `json:"content"`
	ModelID      string        `json:"model_id"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	StopReason   string        `json:"stop_reason,omitempty"`
	Latency      time.Duration `json:"latency"`
	IsSuccess    bool          `json:"is_success"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// TotalTokens returns the combined prompt and completion token count.
func (r *Response) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// EmbedRequest describes one embedding generation.
type EmbedRequest struct {
	// ModelID is the Bedrock embedding model identifier. Empty selects
	// the service default.
	ModelID string `json:"model_id,omitempty"`

	// Text is the input to embed. Required.
	Text string `json:"text"`

	// Dimensions requests a specific output width on models that
	// support it. Zero keeps the model default.
	Dimensions int `json:"dimensions,omitempty"`
}

// EmbedResponse is the uniform embedding result.
type EmbedResponse struct {
	Vector       []float64     `json:"vector"`
	InputTokens  int           `json:"input_tokens"`
	ModelID      string        `json:"model_id"`
	Latency      time.Duration `json:"latency"`
	IsSuccess    bool          `json:"is_success"`
	ErrorMessage string        `json:"error_message,omitempty"`
}
