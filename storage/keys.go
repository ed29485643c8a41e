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

package storage

import "strings"

// ScopedKey qualifies a caller key with its tenant. Every key that
// reaches a backend is scoped; a caller can never address another
// tenant's data.
func ScopedKey(tenantID, key string) string {
	return "tenant:" + tenantID + ":" + key
}

// ScopePrefix returns the tenant's key prefix, used for listing.
func ScopePrefix(tenantID string) string {
	return "tenant:" + tenantID + ":"
}

// StripScope removes the tenant qualifier from a scoped key. Keys that
// do not carry the tenant's prefix are returned unchanged.
func StripScope(tenantID, scopedKey string) string {
	return strings.TrimPrefix(scopedKey, ScopePrefix(tenantID))
}

// TenantOf extracts the tenant from a scoped key.
func TenantOf(scopedKey string) (string, bool) {
	parts := strings.SplitN(scopedKey, ":", 3)
	if len(parts) != 3 || parts[0] != "tenant" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
