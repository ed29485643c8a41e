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

package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq" // PostgreSQL driver

	"carebridge/platform/config"
	"carebridge/platform/embedding"
	"carebridge/platform/llm"
	"carebridge/platform/orchestration"
	"carebridge/platform/resilience"
	"carebridge/platform/shared/logger"
	"carebridge/platform/shared/types"
	"carebridge/platform/storage"
)

const (
	serviceName    = "carebridge-platform"
	serviceVersion = "1.0.0"

	shutdownTimeout = 10 * time.Second
)

// App is the wired platform: every facade constructed from one
// configuration, plus the operational HTTP surface.
type App struct {
	cfg *config.Config
	log *logger.Logger

	LLM           *llm.Service
	Storage       *storage.Service
	Orchestration *orchestration.Service
	Embedding     *embedding.Service

	db     *sql.DB
	redis  *redis.Client
	server *http.Server
	ready  atomic.Bool

	// backends records which implementation serves each concern, for
	// the health endpoint.
	backends map[string]string
}

// New wires the platform from cfg. Unset backend configuration falls
// back to the in-memory implementations, so a development instance
// boots with no external services at all.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		cfg:      cfg,
		log:      logger.New("app"),
		backends: make(map[string]string),
	}

	retry := &resilience.Policy{
		MaxRetries: cfg.LLM.MaxRetries,
		BaseDelay:  time.Duration(cfg.LLM.BaseDelayMs) * time.Millisecond,
		Unit:       time.Second,
		Logger:     a.log,
	}

	if err := a.buildLLM(ctx, retry); err != nil {
		return nil, err
	}
	if err := a.buildStorage(ctx, retry); err != nil {
		return nil, err
	}
	if err := a.buildOrchestration(ctx, retry); err != nil {
		return nil, err
	}
	a.buildEmbedding()

	a.server = &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.ready.Store(true)

	return a, nil
}

func (a *App) buildLLM(ctx context.Context, retry *resilience.Policy) error {
	invoker, err := llm.NewBedrockClient(ctx, llm.BedrockConfig{
		Region:   a.cfg.AWSRegion,
		Endpoint: a.cfg.LLM.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to build bedrock client: %w", err)
	}

	a.LLM = llm.NewService(invoker,
		llm.WithRetryPolicy(retry),
		llm.WithDefaultModels(a.cfg.LLM.ModelID, a.cfg.LLM.EmbedModelID),
		llm.WithCircuitBreaker(resilience.NewCircuitBreaker(5, 30*time.Second)),
	)
	return nil
}

func (a *App) buildStorage(ctx context.Context, retry *resilience.Policy) error {
	objects, backend, err := a.buildObjectStore(ctx)
	if err != nil {
		return err
	}
	a.backends["object_store"] = backend

	var metadata storage.MetadataStore
	if table := a.cfg.Storage.MetadataTable; table != "" {
		metadata, err = storage.NewDynamoStore(ctx, a.cfg.AWSRegion, table)
		if err != nil {
			return fmt.Errorf("failed to build metadata store: %w", err)
		}
		a.backends["metadata_store"] = "dynamodb"
	} else {
		metadata = storage.NewMemoryMetadataStore()
		a.backends["metadata_store"] = "memory"
	}

	bucket := a.cfg.Storage.Bucket
	if bucket == "" {
		bucket = "carebridge-local"
	}

	opts := []storage.Option{
		storage.WithMetadataStore(metadata),
		storage.WithRetryPolicy(retry),
	}
	if a.cfg.Storage.EncryptByDefault || a.cfg.Settings().RequireEncryption {
		opts = append(opts, storage.WithDefaultEncryption())
	}

	a.Storage = storage.NewService(objects, bucket, opts...)
	return nil
}

// buildObjectStore selects the backend: memory when no bucket is
// configured, otherwise the configured cloud's store.
func (a *App) buildObjectStore(ctx context.Context) (storage.ObjectStore, string, error) {
	if a.cfg.Storage.Bucket == "" {
		return storage.NewMemoryObjectStore(), "memory", nil
	}

	switch a.cfg.Cloud {
	case types.CloudAWS:
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:         a.cfg.AWSRegion,
			Endpoint:       a.cfg.Storage.S3Endpoint,
			ForcePathStyle: a.cfg.Storage.S3ForcePathStyle,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to build s3 store: %w", err)
		}
		return store, "s3", nil
	case types.CloudGCP:
		store, err := storage.NewGCSStore(ctx, storage.GCSConfig{
			CredentialsFile: a.cfg.Storage.GCSCredentialsFile,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to build gcs store: %w", err)
		}
		return store, "gcs", nil
	case types.CloudAzure:
		store, err := storage.NewAzureBlobStore(storage.AzureConfig{
			AccountName:      a.cfg.Storage.AzureAccountName,
			AccountKey:       a.cfg.Storage.AzureAccountKey,
			ConnectionString: a.cfg.Storage.AzureConnectionString,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to build azure store: %w", err)
		}
		return store, "azure", nil
	default:
		return nil, "", fmt.Errorf("cloud_provider: unknown provider %q", a.cfg.Cloud)
	}
}

func (a *App) buildOrchestration(ctx context.Context, retry *resilience.Policy) error {
	var queue orchestration.WorkQueue
	queueURL := a.cfg.Orchestration.QueueURL
	if queueURL != "" {
		sqsQueue, err := orchestration.NewSQSQueue(ctx, orchestration.SQSConfig{
			Region:   a.cfg.AWSRegion,
			Endpoint: a.cfg.Orchestration.QueueEndpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to build work queue: %w", err)
		}
		queue = sqsQueue
		a.backends["work_queue"] = "sqs"
	} else {
		queue = orchestration.NewMemoryQueue()
		queueURL = "memory://workflows"
		a.backends["work_queue"] = "memory"
	}

	var store orchestration.StateStore
	if dsn := a.cfg.Orchestration.DatabaseURL; dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to open workflow database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return fmt.Errorf("failed to reach workflow database: %w", err)
		}
		a.db = db
		store = orchestration.NewPostgresStore(db)
		a.backends["state_store"] = "postgres"
	} else {
		store = orchestration.NewMemoryStateStore()
		a.backends["state_store"] = "memory"
	}

	a.Orchestration = orchestration.NewService(queue, store, queueURL,
		orchestration.WithRetryPolicy(retry),
		orchestration.WithLogger(a.log),
	)
	return nil
}

func (a *App) buildEmbedding() {
	opts := []embedding.Option{}
	if rawURL := a.cfg.Embedding.RedisURL; rawURL != "" {
		if redisOpts, err := redis.ParseURL(rawURL); err != nil {
			a.log.Warn("", "", "invalid redis url, embedding cache disabled", map[string]interface{}{
				"error": err.Error(),
			})
			a.backends["embedding_cache"] = "disabled"
		} else {
			a.redis = redis.NewClient(redisOpts)
			opts = append(opts, embedding.WithCache(embedding.NewCache(a.redis, 0)))
			a.backends["embedding_cache"] = "redis"
		}
	} else {
		a.backends["embedding_cache"] = "disabled"
	}

	a.Embedding = embedding.NewService(a.LLM, embedding.Config{
		ModelID:        a.cfg.LLM.EmbedModelID,
		MaxInputLength: a.cfg.Embedding.MaxInputLength,
		Truncation:     embedding.TruncationStrategy(a.cfg.Embedding.Truncation),
		Normalize:      a.cfg.Embedding.Normalize,
		BatchSize:      a.cfg.Embedding.BatchSize,
		BatchPause:     time.Duration(a.cfg.Embedding.BatchPauseMs) * time.Millisecond,
	}, opts...)
}

// Shutdown stops accepting requests, drains in-flight ones within
// ctx's deadline, and closes backend connections.
func (a *App) Shutdown(ctx context.Context) error {
	a.ready.Store(false)

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("database close: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("redis close: %w", err)
		}
	}

	a.log.Info("", "", "platform stopped", nil)
	return firstErr
}
