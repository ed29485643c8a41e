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

// Package security defines the per-request security context every facade
// operation receives as an explicit parameter. The context is created
// once by the authentication layer, treated as immutable afterwards, and
// discarded at request end; no facade ever reads ambient auth state.
package security

import (
	"strings"
	"time"
)

// Context carries the authenticated caller's identity and entitlements
// for one logical request. Constructed via NewContext or SystemContext;
// treat as immutable after construction.
type Context struct {
	UserID          string
	TenantID        string
	Permissions     []string
	Roles           []string
	IsSystemUser    bool
	IsAuthenticated bool
	AuthenticatedAt time.Time
	// ExpiresAt is nil for sessions that never expire.
	ExpiresAt *time.Time
	SessionID string
	Claims    map[string]string
}

// NewContext creates an authenticated context for a tenant user. The
// permission and role slices are copied so later caller mutation cannot
// leak into the context.
func NewContext(userID, tenantID string, permissions, roles []string) *Context {
	return &Context{
		UserID:          userID,
		TenantID:        tenantID,
		Permissions:     copyStrings(permissions),
		Roles:           copyStrings(roles),
		IsAuthenticated: true,
		AuthenticatedAt: time.Now().UTC(),
		Claims:          map[string]string{},
	}
}

// SystemContext creates the context internal workers run under. System
// users implicitly hold every permission.
func SystemContext(tenantID string) *Context {
	return &Context{
		UserID:          "system",
		TenantID:        tenantID,
		IsSystemUser:    true,
		IsAuthenticated: true,
		AuthenticatedAt: time.Now().UTC(),
		Claims:          map[string]string{},
	}
}

// HasPermission reports whether the caller holds the named permission.
// Lookups are case-insensitive, and system users hold every permission.
func (c *Context) HasPermission(name string) bool {
	if c == nil {
		return false
	}
	if c.IsSystemUser {
		return true
	}
	for _, p := range c.Permissions {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// HasRole reports whether the caller holds the named role.
// Lookups are case-insensitive.
func (c *Context) HasRole(name string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// IsExpired reports whether the session has an expiry in the past.
// A nil ExpiresAt never expires.
func (c *Context) IsExpired() bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Before(time.Now())
}

// IsValid reports whether the context is authenticated and unexpired.
func (c *Context) IsValid() bool {
	return c != nil && c.IsAuthenticated && !c.IsExpired()
}

// Claim returns the named custom claim, or "" when absent.
func (c *Context) Claim(key string) string {
	if c == nil {
		return ""
	}
	return c.Claims[key]
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
