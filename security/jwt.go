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
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"carebridge/platform/shared/fault"
)

// knownClaims are consumed into first-class Context fields; everything
// else lands in Context.Claims.
var knownClaims = map[string]bool{
	"user_id": true, "sub": true, "tenant_id": true, "permissions": true,
	"roles": true, "session_id": true, "system": true,
	"exp": true, "iat": true, "nbf": true, "iss": true, "aud": true,
}

// TokenParser builds a security Context from an HMAC-signed JWT bearer
// token. Tokens must carry a tenant_id claim; permissions and roles are
// comma-separated string claims.
type TokenParser struct {
	secret []byte
}

// NewTokenParser creates a parser validating tokens against the shared
// HMAC secret.
func NewTokenParser(secret []byte) *TokenParser {
	return &TokenParser{secret: secret}
}

// Parse validates the token signature and expiry and maps its claims to
// a Context. Invalid, expired, or tenant-less tokens yield Unauthorized.
func (p *TokenParser) Parse(tokenString string) (*Context, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	if err != nil || !token.Valid {
		return nil, fault.New(fault.KindUnauthorized, "security", "Parse", "invalid token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fault.Unauthorized("security", "Parse", "invalid token claims")
	}

	tenantID := getClaimString(claims, "tenant_id")
	if tenantID == "" {
		return nil, fault.Unauthorized("security", "Parse", "token missing tenant_id claim")
	}

	userID := getClaimString(claims, "user_id")
	if userID == "" {
		userID = getClaimString(claims, "sub")
	}

	sec := &Context{
		UserID:          userID,
		TenantID:        tenantID,
		Permissions:     getClaimStringArray(claims, "permissions"),
		Roles:           getClaimStringArray(claims, "roles"),
		IsSystemUser:    getClaimBool(claims, "system"),
		IsAuthenticated: true,
		AuthenticatedAt: time.Now().UTC(),
		SessionID:       getClaimString(claims, "session_id"),
		Claims:          map[string]string{},
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		sec.AuthenticatedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		sec.ExpiresAt = &t
	}

	for key, val := range claims {
		if knownClaims[key] {
			continue
		}
		if s, ok := val.(string); ok {
			sec.Claims[key] = s
		}
	}

	return sec, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func getClaimStringArray(claims jwt.MapClaims, key string) []string {
	if val, ok := claims[key].(string); ok {
		if val == "" {
			return []string{}
		}
		return strings.Split(val, ",")
	}
	return []string{}
}

func getClaimBool(claims jwt.MapClaims, key string) bool {
	val, ok := claims[key].(bool)
	return ok && val
}
