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

package security

import (
	"context"
	"strings"

	"carebridge/platform/shared/fault"
)

// Provider resolves the security context for the current request. The
// authentication layer in front of the platform implements it; facades
// only consume the resolved *Context.
type Provider interface {
	Current(ctx context.Context) (*Context, error)
}

// StaticProvider returns a fixed context on every call. Used by tests
// and by single-tenant development deployments.
type StaticProvider struct {
	Context *Context
}

// Current returns the configured context.
func (p *StaticProvider) Current(ctx context.Context) (*Context, error) {
	return p.Context, nil
}

var _ Provider = (*StaticProvider)(nil)

// TokenSource hands TokenProvider the bearer token carried by the
// current request, reporting false when none is present. The transport
// layer supplies one, typically reading the Authorization header it
// stored in the request context.
type TokenSource func(ctx context.Context) (string, bool)

// TokenProvider resolves contexts from JWT bearer tokens.
type TokenProvider struct {
	parser *TokenParser
	source TokenSource
}

// NewTokenProvider creates a provider that parses tokens obtained from
// source with parser.
func NewTokenProvider(parser *TokenParser, source TokenSource) *TokenProvider {
	return &TokenProvider{parser: parser, source: source}
}

// Current extracts the request's bearer token and maps it to a Context.
// A missing token yields Unauthorized. An optional "Bearer " scheme
// prefix is tolerated.
func (p *TokenProvider) Current(ctx context.Context) (*Context, error) {
	token, ok := p.source(ctx)
	if !ok || token == "" {
		return nil, fault.Unauthorized("security", "Current", "no bearer token in request")
	}
	token = strings.TrimPrefix(token, "Bearer ")
	return p.parser.Parse(token)
}

var _ Provider = (*TokenProvider)(nil)
