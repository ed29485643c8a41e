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

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"carebridge/platform/shared/logger"
)

const defaultSecretTTL = 5 * time.Minute

// SecretSource resolves a named secret bundle to key-value pairs.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (map[string]string, error)
}

// secretsAPI is the slice of the Secrets Manager client this package
// uses.
type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecrets resolves secrets through AWS Secrets Manager with an
// in-process TTL cache, so restart-free credential rotation stays
// bounded by the TTL rather than requiring a redeploy.
type AWSSecrets struct {
	client secretsAPI
	ttl    time.Duration
	log    *logger.Logger

	mu    sync.RWMutex
	cache map[string]secretEntry
}

type secretEntry struct {
	values    map[string]string
	expiresAt time.Time
}

var _ SecretSource = (*AWSSecrets)(nil)

// NewAWSSecrets creates a Secrets Manager source. ttl <= 0 selects the
// 5 minute default.
func NewAWSSecrets(ctx context.Context, region string, ttl time.Duration) (*AWSSecrets, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newAWSSecrets(secretsmanager.NewFromConfig(awsCfg), ttl), nil
}

func newAWSSecrets(client secretsAPI, ttl time.Duration) *AWSSecrets {
	if ttl <= 0 {
		ttl = defaultSecretTTL
	}
	return &AWSSecrets{
		client: client,
		ttl:    ttl,
		log:    logger.New("config"),
		cache:  make(map[string]secretEntry),
	}
}

// GetSecret returns the secret's key-value pairs. JSON object secrets
// decode to their fields; any other secret string comes back under the
// single key "value".
func (s *AWSSecrets) GetSecret(ctx context.Context, name string) (map[string]string, error) {
	s.mu.RLock()
	entry, ok := s.cache[name]
	s.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.values, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", maskSecretName(name), err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", maskSecretName(name))
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		values = map[string]string{"value": *out.SecretString}
	}

	s.mu.Lock()
	s.cache[name] = secretEntry{values: values, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	s.log.Debug("", "", "resolved secret", map[string]interface{}{
		"secret": maskSecretName(name),
		"keys":   len(values),
	})
	return values, nil
}

// Invalidate drops one secret from the cache so the next read fetches
// fresh.
func (s *AWSSecrets) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// maskSecretName keeps only the last 8 characters for log and error
// text.
func maskSecretName(name string) string {
	if len(name) <= 12 {
		return "***"
	}
	return "..." + name[len(name)-8:]
}

// EnvSecrets is the development fallback: the secret name becomes an
// environment variable prefix, and each known field is read from
// PREFIX_FIELD. A name of "carebridge/dev" reads CAREBRIDGE_DEV_DATABASE_URL
// and so on.
type EnvSecrets struct{}

var _ SecretSource = EnvSecrets{}

// secretFields are the bundle keys the platform consumes, in their
// environment variable suffix form.
var secretFields = []string{
	"DATABASE_URL", "REDIS_URL", "JWT_SECRET", "AZURE_STORAGE_KEY",
}

// GetSecret reads the bundle's fields from the environment.
func (EnvSecrets) GetSecret(ctx context.Context, name string) (map[string]string, error) {
	prefix := envPrefix(name)

	values := make(map[string]string)
	for _, field := range secretFields {
		if v := os.Getenv(prefix + "_" + field); v != "" {
			values[strings.ToLower(field)] = v
		}
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("no secrets found under prefix %s", prefix)
	}
	return values, nil
}

// envPrefix normalizes a secret name to environment variable form:
// uppercase, with every non-alphanumeric run collapsed to one
// underscore.
func envPrefix(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// ResolveSecrets overlays the named secret bundle onto the
// configuration. A missing SecretsName is a no-op; a resolution
// failure is an error, since a deployment that names a bundle must not
// boot with half its credentials.
func (c *Config) ResolveSecrets(ctx context.Context, src SecretSource) error {
	if c.SecretsName == "" || src == nil {
		return nil
	}

	values, err := src.GetSecret(ctx, c.SecretsName)
	if err != nil {
		return fmt.Errorf("failed to resolve secrets: %w", err)
	}

	if v := values["database_url"]; v != "" {
		c.Orchestration.DatabaseURL = v
	}
	if v := values["redis_url"]; v != "" {
		c.Embedding.RedisURL = v
	}
	if v := values["jwt_secret"]; v != "" {
		c.Security.JWTSecret = v
	}
	if v := values["azure_storage_key"]; v != "" {
		c.Storage.AzureAccountKey = v
	}
	return nil
}
