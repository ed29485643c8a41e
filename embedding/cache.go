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

package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultCacheTTL = 24 * time.Hour

// Cache memoizes embedding vectors in Redis, keyed per tenant and
// model so no vector ever crosses a tenant boundary. A nil Cache, or
// one built without a client, is a no-op: Get always misses and Put
// does nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps a Redis client. ttl <= 0 selects the 24 hour default.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Key returns the cache key for one (tenant, model, text) triple. The
// text rides as a digest: keys stay bounded and no clinical text lands
// in Redis key space.
func Key(tenantID, modelID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + tenantID + ":" + modelID + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for the triple, or ok false on a miss.
// Transport errors count as misses.
func (c *Cache) Get(ctx context.Context, tenantID, modelID, text string) ([]float64, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, Key(tenantID, modelID, text)).Result()
	if err != nil {
		return nil, false
	}

	var vector []float64
	if err := json.Unmarshal([]byte(raw), &vector); err != nil {
		return nil, false
	}
	return vector, true
}

// Put stores a vector under the triple's key with the cache TTL. Write
// failures are dropped; the worst outcome is a later miss.
func (c *Cache) Put(ctx context.Context, tenantID, modelID, text string, vector []float64) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(vector)
	if err != nil {
		return
	}
	c.client.Set(ctx, Key(tenantID, modelID, text), raw, c.ttl)
}
