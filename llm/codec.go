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
	"encoding/json"
	"strings"

	"carebridge/platform/shared/fault"
)

// ModelFamily tags the wire schema a model speaks. The family decides
// how requests are encoded and responses decoded; callers never branch
// on model identifiers themselves.
type ModelFamily string

const (
	// FamilyClaude is the chat-style messages schema spoken by
	// anthropic.* models.
	FamilyClaude ModelFamily = "claude"
	// FamilyTitanText is the completion-style schema spoken by
	// amazon.titan-text* models.
	FamilyTitanText ModelFamily = "titan-text"
	// FamilyTitanEmbed is the embedding schema spoken by
	// amazon.titan-embed* models.
	FamilyTitanEmbed ModelFamily = "titan-embed"
	// FamilyCohereEmbed is the embedding schema spoken by
	// cohere.embed* models.
	FamilyCohereEmbed ModelFamily = "cohere-embed"
	// FamilyLlama is the prompt schema spoken by meta.llama* models.
	FamilyLlama ModelFamily = "llama"
	// FamilyMistral is the prompt schema spoken by mistral.* models.
	FamilyMistral ModelFamily = "mistral"
	// FamilyGeneric is the fallback prompt schema used for any other
	// well-formed model identifier.
	FamilyGeneric ModelFamily = "generic"
	// FamilyUnknown marks identifiers no schema can be chosen for.
	FamilyUnknown ModelFamily = ""
)

// inferenceProfilePrefixes are the known AWS Bedrock inference profile
// prefixes. Profile IDs such as eu.anthropic.claude-sonnet-4-5 carry
// the model family in their second segment.
var inferenceProfilePrefixes = []string{"eu", "us", "apac", "global"}

// familyPrefixes maps model-identifier prefixes to wire families, first
// match wins. Adding a model family means adding a row here and a codec
// in the registries below; no call site changes.
var familyPrefixes = []struct {
	prefix string
	family ModelFamily
}{
	{"anthropic.", FamilyClaude},
	{"amazon.titan-embed", FamilyTitanEmbed},
	{"amazon.", FamilyTitanText},
	{"cohere.embed", FamilyCohereEmbed},
	{"meta.", FamilyLlama},
	{"mistral.", FamilyMistral},
}

// FamilyOf resolves the wire family for a model identifier.
//
// Model IDs follow the pattern provider.model-name-version, e.g.
// anthropic.claude-3-5-sonnet-20240620-v1:0 or
// amazon.titan-text-express-v1. Inference profile IDs carry a regional
// prefix (eu., us., apac., global.) which is stripped first. Unmatched
// but well-formed identifiers fall back to the generic schema;
// identifiers without a provider segment resolve to FamilyUnknown.
func FamilyOf(modelID string) ModelFamily {
	if modelID == "" {
		return FamilyUnknown
	}

	segments := strings.SplitN(modelID, ".", 2)
	if len(segments) < 2 || segments[1] == "" {
		return FamilyUnknown
	}

	for _, prefix := range inferenceProfilePrefixes {
		if segments[0] == prefix {
			return FamilyOf(segments[1])
		}
	}

	for _, fp := range familyPrefixes {
		if strings.HasPrefix(modelID, fp.prefix) {
			return fp.family
		}
	}
	return FamilyGeneric
}

// Codec encodes invocation requests and decodes responses for one wire
// family. DecodeInvoke returns a failed Response, not an error, when
// the model itself declared a failure in the body.
type Codec interface {
	Family() ModelFamily
	EncodeInvoke(req InvokeRequest) ([]byte, error)
	DecodeInvoke(body []byte) (*Response, error)
}

// EmbedCodec is the embedding counterpart of Codec.
type EmbedCodec interface {
	Family() ModelFamily
	EncodeEmbed(req EmbedRequest) ([]byte, error)
	DecodeEmbed(body []byte) (*EmbedResponse, error)
}

var codecRegistry = map[ModelFamily]Codec{
	FamilyClaude:    claudeCodec{},
	FamilyTitanText: titanTextCodec{},
	FamilyLlama:     llamaCodec{},
	FamilyMistral:   mistralCodec{},
	FamilyGeneric:   genericCodec{},
}

var embedCodecRegistry = map[ModelFamily]EmbedCodec{
	FamilyTitanEmbed:  titanEmbedCodec{},
	FamilyCohereEmbed: cohereEmbedCodec{},
}

// CodecFor returns the invocation codec for a model identifier.
func CodecFor(modelID string) (Codec, error) {
	family := FamilyOf(modelID)
	codec, ok := codecRegistry[family]
	if !ok {
		return nil, fault.InvalidArgument("llm", "CodecFor", "model "+modelID+" does not support text invocation")
	}
	return codec, nil
}

// EmbedCodecFor returns the embedding codec for a model identifier.
func EmbedCodecFor(modelID string) (EmbedCodec, error) {
	family := FamilyOf(modelID)
	codec, ok := embedCodecRegistry[family]
	if !ok {
		return nil, fault.InvalidArgument("llm", "EmbedCodecFor", "model "+modelID+" does not support embeddings")
	}
	return codec, nil
}

// declaredError extracts a failure the model itself declared in a
// response body. Covers the nested error object used by chat models and
// the flat error/message fields used by completion models.
func declaredError(body []byte) (string, bool) {
	var probe struct {
		Type    string          `json:"type"`
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", false
	}

	if len(probe.Error) > 0 && string(probe.Error) != "null" {
		var flat string
		if err := json.Unmarshal(probe.Error, &flat); err == nil && flat != "" {
			return flat, true
		}
		var nested struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(probe.Error, &nested); err == nil {
			if nested.Message != "" {
				return nested.Message, true
			}
			if nested.Type != "" {
				return nested.Type, true
			}
		}
		return "model declared an unspecified error", true
	}

	if probe.Type == "error" {
		if probe.Message != "" {
			return probe.Message, true
		}
		return "model declared an unspecified error", true
	}

	return "", false
}

func declined(message string) *Response {
	return &Response{IsSuccess: false, ErrorMessage: message}
}

// topPOrDefault keeps the platform's historical 0.9 nucleus default.
func topPOrDefault(topP float64) float64 {
	if topP > 0 {
		return topP
	}
	return 0.9
}

// claudeCodec speaks the Anthropic messages schema.
type claudeCodec struct{}

func (claudeCodec) Family() ModelFamily { return FamilyClaude }

func (claudeCodec) EncodeInvoke(req InvokeRequest) ([]byte, error) {
	body := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        req.MaxTokens,
		"temperature":       req.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	if req.SystemPrompt != "" {
		body["system"] = req.SystemPrompt
	}
	if req.TopP > 0 {
		body["top_p"] = req.TopP
	}
	if len(req.StopSequences) > 0 {
		body["stop_sequences"] = req.StopSequences
	}
	return json.Marshal(body)
}

func (claudeCodec) DecodeInvoke(body []byte) (*Response, error) {
	if msg, ok := declaredError(body); ok {
		return declined(msg), nil
	}

	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fault.Internal("llm", "DecodeInvoke", "failed to unmarshal claude response", err)
	}

	content := ""
	if len(resp.Content) > 0 {
		content = resp.Content[0].Text
	}

	return &Response{
		Content:      content,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		StopReason:   resp.StopReason,
		IsSuccess:    true,
	}, nil
}

// titanTextCodec speaks the Amazon Titan completion schema.
type titanTextCodec struct{}

func (titanTextCodec) Family() ModelFamily { return FamilyTitanText }

func (titanTextCodec) EncodeInvoke(req InvokeRequest) ([]byte, error) {
	inputText := req.Prompt
	if req.SystemPrompt != "" {
		inputText = req.SystemPrompt + "\n\n" + req.Prompt
	}

	config := map[string]interface{}{
		"maxTokenCount": req.MaxTokens,
		"temperature":   req.Temperature,
		"topP":          topPOrDefault(req.TopP),
	}
	if len(req.StopSequences) > 0 {
		config["stopSequences"] = req.StopSequences
	}

	return json.Marshal(map[string]interface{}{
		"inputText":            inputText,
		"textGenerationConfig": config,
	})
}

func (titanTextCodec) DecodeInvoke(body []byte) (*Response, error) {
	if msg, ok := declaredError(body); ok {
		return declined(msg), nil
	}

	var resp struct {
		Results []struct {
			OutputText       string `json:"outputText"`
			TokenCount       int    `json:"tokenCount"`
			CompletionReason string `json:"completionReason"`
		} `json:"results"`
		InputTextTokenCount int `json:"inputTextTokenCount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fault.Internal("llm", "DecodeInvoke", "failed to unmarshal titan response", err)
	}

	out := &Response{
		InputTokens: resp.InputTextTokenCount,
		IsSuccess:   true,
	}
	if len(resp.Results) > 0 {
		out.Content = resp.Results[0].OutputText
		out.OutputTokens = resp.Results[0].TokenCount
		out.StopReason = resp.Results[0].CompletionReason
	}
	return out, nil
}

// llamaCodec speaks the Meta Llama prompt schema.
type llamaCodec struct{}

func (llamaCodec) Family() ModelFamily { return FamilyLlama }

func (llamaCodec) EncodeInvoke(req InvokeRequest) ([]byte, error) {
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}
	return json.Marshal(map[string]interface{}{
		"prompt":      prompt,
		"max_gen_len": req.MaxTokens,
		"temperature": req.Temperature,
		"top_p":       topPOrDefault(req.TopP),
	})
}

func (llamaCodec) DecodeInvoke(body []byte) (*Response, error) {
	if msg, ok := declaredError(body); ok {
		return declined(msg), nil
	}

	var resp struct {
		Generation       string `json:"generation"`
		PromptTokenCount int    `json:"prompt_token_count"`
		GenTokenCount    int    `json:"generation_token_count"`
		StopReason       string `json:"stop_reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fault.Internal("llm", "DecodeInvoke", "failed to unmarshal llama response", err)
	}

	return &Response{
		Content:      resp.Generation,
		InputTokens:  resp.PromptTokenCount,
		OutputTokens: resp.GenTokenCount,
		StopReason:   resp.StopReason,
		IsSuccess:    true,
	}, nil
}

// mistralCodec speaks the Mistral prompt schema.
type mistralCodec struct{}

func (mistralCodec) Family() ModelFamily { return FamilyMistral }

func (mistralCodec) EncodeInvoke(req InvokeRequest) ([]byte, error) {
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}
	body := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"top_p":       topPOrDefault(req.TopP),
	}
	if len(req.StopSequences) > 0 {
		body["stop"] = req.StopSequences
	}
	return json.Marshal(body)
}

func (mistralCodec) DecodeInvoke(body []byte) (*Response, error) {
	if msg, ok := declaredError(body); ok {
		return declined(msg), nil
	}

	var resp struct {
		Outputs []struct {
			Text       string `json:"text"`
			StopReason string `json:"stop_reason"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fault.Internal("llm", "DecodeInvoke", "failed to unmarshal mistral response", err)
	}

	out := &Response{IsSuccess: true}
	if len(resp.Outputs) > 0 {
		out.Content = resp.Outputs[0].Text
		out.StopReason = resp.Outputs[0].StopReason
	}
	return out, nil
}

// genericCodec is the fallback prompt schema for families without a
// dedicated codec. Decoding probes the common output shapes.
type genericCodec struct{}

func (genericCodec) Family() ModelFamily { return FamilyGeneric }

func (genericCodec) EncodeInvoke(req InvokeRequest) ([]byte, error) {
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}
	return json.Marshal(map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"top_p":       topPOrDefault(req.TopP),
	})
}

func (genericCodec) DecodeInvoke(body []byte) (*Response, error) {
	if msg, ok := declaredError(body); ok {
		return declined(msg), nil
	}

	var resp struct {
		Outputs []struct {
			Text string `json:"text"`
		} `json:"outputs"`
		Generation string `json:"generation"`
		Completion string `json:"completion"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fault.Internal("llm", "DecodeInvoke", "failed to unmarshal response", err)
	}

	out := &Response{IsSuccess: true}
	switch {
	case len(resp.Outputs) > 0:
		out.Content = resp.Outputs[0].Text
	case resp.Generation != "":
		out.Content = resp.Generation
	default:
		out.Content = resp.Completion
	}
	return out, nil
}

// titanEmbedCodec speaks the Amazon Titan embedding schema.
type titanEmbedCodec struct{}

func (titanEmbedCodec) Family() ModelFamily { return FamilyTitanEmbed }

func (titanEmbedCodec) EncodeEmbed(req EmbedRequest) ([]byte, error) {
	body := map[string]interface{}{
		"inputText": req.Text,
	}
	if req.Dimensions > 0 {
		body["dimensions"] = req.Dimensions
	}
	return json.Marshal(body)
}

func (titanEmbedCodec) DecodeEmbed(body []byte) (*EmbedResponse, error) {
	if msg, ok := declaredError(body); ok {
		return &EmbedResponse{IsSuccess: false, ErrorMessage: msg}, nil
	}

	var resp struct {
		Embedding           []float64 `json:"embedding"`
		InputTextTokenCount int       `json:"inputTextTokenCount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fault.Internal("llm", "DecodeEmbed", "failed to unmarshal titan embedding", err)
	}

	return &EmbedResponse{
		Vector:      resp.Embedding,
		InputTokens: resp.InputTextTokenCount,
		IsSuccess:   true,
	}, nil
}

// cohereEmbedCodec speaks the Cohere embedding schema.
type cohereEmbedCodec struct{}

func (cohereEmbedCodec) Family() ModelFamily { return FamilyCohereEmbed }

func (cohereEmbedCodec) EncodeEmbed(req EmbedRequest) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"texts":      []string{req.Text},
		"input_type": "search_document",
	})
}

func (cohereEmbedCodec) DecodeEmbed(body []byte) (*EmbedResponse, error) {
	if msg, ok := declaredError(body); ok {
		return &EmbedResponse{IsSuccess: false, ErrorMessage: msg}, nil
	}

	var resp struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fault.Internal("llm", "DecodeEmbed", "failed to unmarshal cohere embedding", err)
	}

	out := &EmbedResponse{IsSuccess: true}
	if len(resp.Embeddings) > 0 {
		out.Vector = resp.Embeddings[0]
	}
	return out, nil
}
