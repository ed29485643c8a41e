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
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/platform/shared/fault"
)

func TestStaticProvider(t *testing.T) {
	sec := NewContext("user-1", "tenant-1", []string{"storage:read"}, nil)
	p := &StaticProvider{Context: sec}

	got, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, sec, got)
}

func TestTokenProvider_Current(t *testing.T) {
	parser := NewTokenParser(testSecret)
	tokenString := signToken(t, jwt.MapClaims{
		"user_id":   "user-42",
		"tenant_id": "tenant-clinic-7",
	})

	t.Run("resolves token from source", func(t *testing.T) {
		p := NewTokenProvider(parser, func(ctx context.Context) (string, bool) {
			return tokenString, true
		})

		sec, err := p.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "user-42", sec.UserID)
		assert.Equal(t, "tenant-clinic-7", sec.TenantID)
	})

	t.Run("strips bearer scheme", func(t *testing.T) {
		p := NewTokenProvider(parser, func(ctx context.Context) (string, bool) {
			return "Bearer " + tokenString, true
		})

		sec, err := p.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tenant-clinic-7", sec.TenantID)
	})

	t.Run("missing token unauthorized", func(t *testing.T) {
		p := NewTokenProvider(parser, func(ctx context.Context) (string, bool) {
			return "", false
		})

		_, err := p.Current(context.Background())
		require.Error(t, err)
		assert.Equal(t, fault.KindUnauthorized, fault.KindOf(err))
	})

	t.Run("invalid token unauthorized", func(t *testing.T) {
		p := NewTokenProvider(parser, func(ctx context.Context) (string, bool) {
			return "not-a-token", true
		})

		_, err := p.Current(context.Background())
		require.Error(t, err)
		assert.Equal(t, fault.KindUnauthorized, fault.KindOf(err))
	})
}
