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
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"carebridge/platform/shared/types"
)

// Config is the full platform configuration. Values resolve in layers:
// built-in defaults, then an optional YAML file, then environment
// variables, then an optional secrets bundle. Later layers win.
type Config struct {
	// Environment is one of development, staging, production.
	Environment types.Environment `yaml:"environment"`

	// AWSRegion applies to every AWS client the platform builds.
	AWSRegion string `yaml:"aws_region"`

	// Cloud selects the object storage backend.
	Cloud types.CloudProvider `yaml:"cloud_provider"`

	// SecretsName is the Secrets Manager secret holding runtime
	// credentials. Empty disables secret resolution; development
	// deployments set credentials through the environment instead.
	SecretsName string `yaml:"secrets_name"`

	LLM           LLMConfig           `yaml:"llm"`
	Storage       StorageConfig       `yaml:"storage"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Security      SecurityConfig      `yaml:"security"`
	HTTP          HTTPConfig          `yaml:"http"`
}

// LLMConfig tunes the model facade.
type LLMConfig struct {
	ModelID      string `yaml:"model_id"`
	EmbedModelID string `yaml:"embed_model_id"`

	// MaxRetries and BaseDelayMs parameterize the transient-failure
	// retry policy shared by all model calls.
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms"`

	// Endpoint overrides the Bedrock endpoint, typically for a local
	// mock.
	Endpoint string `yaml:"endpoint"`
}

// StorageConfig selects and credentials the object storage backend
// plus the DynamoDB metadata index.
type StorageConfig struct {
	Bucket        string `yaml:"bucket"`
	MetadataTable string `yaml:"metadata_table"`

	EncryptByDefault bool `yaml:"encrypt_by_default"`

	// S3Endpoint and S3ForcePathStyle support S3-compatible services
	// such as MinIO.
	S3Endpoint       string `yaml:"s3_endpoint"`
	S3ForcePathStyle bool   `yaml:"s3_force_path_style"`

	GCSCredentialsFile string `yaml:"gcs_credentials_file"`

	AzureAccountName      string `yaml:"azure_account_name"`
	AzureAccountKey       string `yaml:"azure_account_key"`
	AzureConnectionString string `yaml:"azure_connection_string"`
}

// OrchestrationConfig points the workflow facade at its queue and
// state database.
type OrchestrationConfig struct {
	QueueURL string `yaml:"queue_url"`

	// QueueEndpoint overrides the SQS endpoint for local stacks.
	QueueEndpoint string `yaml:"queue_endpoint"`

	DatabaseURL string `yaml:"database_url"`
}

// EmbeddingConfig tunes text preparation, batch pacing, and the Redis
// vector cache.
type EmbeddingConfig struct {
	BatchSize      int    `yaml:"batch_size"`
	BatchPauseMs   int    `yaml:"batch_pause_ms"`
	MaxInputLength int    `yaml:"max_input_length"`
	Truncation     string `yaml:"truncation"`
	Normalize      bool   `yaml:"normalize"`
	RedisURL       string `yaml:"redis_url"`
}

// SecurityConfig holds the token verification secret.
type SecurityConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// HTTPConfig shapes the HTTP surface.
type HTTPConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load builds the configuration from defaults and environment
// variables, then validates it.
func Load() (*Config, error) {
	cfg := defaults()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Environment: types.EnvDevelopment,
		AWSRegion:   "us-east-1",
		Cloud:       types.CloudAWS,
		LLM: LLMConfig{
			ModelID:      "anthropic.claude-3-5-sonnet-20240620-v1:0",
			EmbedModelID: "amazon.titan-embed-text-v2:0",
			MaxRetries:   3,
		},
		Embedding: EmbeddingConfig{
			BatchSize:  10,
			Truncation: "end",
		},
		HTTP: HTTPConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

// applyEnv overlays environment variables onto cfg. Unset variables
// leave the current value alone.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = types.Environment(strings.ToLower(v))
	}
	setString(&cfg.AWSRegion, "AWS_REGION")
	if v := os.Getenv("CLOUD_PROVIDER"); v != "" {
		cfg.Cloud = types.CloudProvider(strings.ToLower(v))
	}
	setString(&cfg.SecretsName, "SECRETS_NAME")

	setString(&cfg.LLM.ModelID, "BEDROCK_MODEL")
	setString(&cfg.LLM.EmbedModelID, "BEDROCK_EMBED_MODEL")
	setString(&cfg.LLM.Endpoint, "BEDROCK_ENDPOINT")
	if err := setInt(&cfg.LLM.MaxRetries, "LLM_MAX_RETRIES"); err != nil {
		return err
	}
	if err := setInt(&cfg.LLM.BaseDelayMs, "LLM_BASE_DELAY_MS"); err != nil {
		return err
	}

	setString(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	setString(&cfg.Storage.MetadataTable, "METADATA_TABLE")
	if err := setBool(&cfg.Storage.EncryptByDefault, "STORAGE_ENCRYPT_BY_DEFAULT"); err != nil {
		return err
	}
	setString(&cfg.Storage.S3Endpoint, "S3_ENDPOINT")
	if err := setBool(&cfg.Storage.S3ForcePathStyle, "S3_FORCE_PATH_STYLE"); err != nil {
		return err
	}
	setString(&cfg.Storage.GCSCredentialsFile, "GCS_CREDENTIALS_FILE")
	setString(&cfg.Storage.AzureAccountName, "AZURE_STORAGE_ACCOUNT")
	setString(&cfg.Storage.AzureAccountKey, "AZURE_STORAGE_KEY")
	setString(&cfg.Storage.AzureConnectionString, "AZURE_STORAGE_CONNECTION_STRING")

	setString(&cfg.Orchestration.QueueURL, "WORKFLOW_QUEUE_URL")
	setString(&cfg.Orchestration.QueueEndpoint, "SQS_ENDPOINT")
	setString(&cfg.Orchestration.DatabaseURL, "DATABASE_URL")
	if dbURL := databaseURLFromParts(); dbURL != "" {
		cfg.Orchestration.DatabaseURL = dbURL
	}

	if err := setInt(&cfg.Embedding.BatchSize, "EMBED_BATCH_SIZE"); err != nil {
		return err
	}
	if err := setInt(&cfg.Embedding.BatchPauseMs, "EMBED_BATCH_PAUSE_MS"); err != nil {
		return err
	}
	if err := setInt(&cfg.Embedding.MaxInputLength, "EMBED_MAX_INPUT_LENGTH"); err != nil {
		return err
	}
	setString(&cfg.Embedding.Truncation, "EMBED_TRUNCATION")
	if err := setBool(&cfg.Embedding.Normalize, "EMBED_NORMALIZE"); err != nil {
		return err
	}
	setString(&cfg.Embedding.RedisURL, "REDIS_URL")

	setString(&cfg.Security.JWTSecret, "JWT_SECRET")

	setString(&cfg.HTTP.Port, "PORT")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(v)
	}

	return nil
}

// databaseURLFromParts assembles a connection string from the separate
// DATABASE_* variables. The password is URL-encoded so special
// characters survive the URI form. Returns empty unless both host and
// password are present.
func databaseURLFromParts() string {
	host := os.Getenv("DATABASE_HOST")
	password := os.Getenv("DATABASE_PASSWORD")
	if host == "" || password == "" {
		return ""
	}

	port := getEnv("DATABASE_PORT", "5432")
	name := getEnv("DATABASE_NAME", "carebridge")
	user := getEnv("DATABASE_USER", "carebridge_app")
	sslMode := getEnv("DATABASE_SSLMODE", "require")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(user), url.QueryEscape(password), host, port, name, sslMode)
}

// Validate checks field values and names the offending field in every
// error.
func (c *Config) Validate() error {
	if !c.Environment.IsValid() {
		return fmt.Errorf("environment: unknown value %q", c.Environment)
	}

	if !c.Cloud.IsValid() {
		return fmt.Errorf("cloud_provider: unknown provider %q", c.Cloud)
	}

	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries: must not be negative, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.BaseDelayMs < 0 {
		return fmt.Errorf("llm.base_delay_ms: must not be negative, got %d", c.LLM.BaseDelayMs)
	}

	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size: must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.BatchPauseMs < 0 {
		return fmt.Errorf("embedding.batch_pause_ms: must not be negative, got %d", c.Embedding.BatchPauseMs)
	}
	if c.Embedding.MaxInputLength < 0 {
		return fmt.Errorf("embedding.max_input_length: must not be negative, got %d", c.Embedding.MaxInputLength)
	}
	switch c.Embedding.Truncation {
	case "start", "end", "middle":
	default:
		return fmt.Errorf("embedding.truncation: unknown strategy %q", c.Embedding.Truncation)
	}

	if _, err := strconv.Atoi(c.HTTP.Port); err != nil {
		return fmt.Errorf("http.port: not a number: %q", c.HTTP.Port)
	}

	return nil
}

// IsProduction reports whether the configuration targets production.
func (c *Config) IsProduction() bool {
	return c.Environment.IsProduction()
}

// Settings returns the operational strictness defaults for the
// configured environment.
func (c *Config) Settings() types.PlatformDefaults {
	return types.DefaultsFor(c.Environment)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a number", key, v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a boolean", key, v)
	}
	*dst = b
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
