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
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"carebridge/platform/config"
)

// Run boots the platform and blocks until SIGINT/SIGTERM or a server
// failure, then shuts down gracefully.
func Run() error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := resolveSecrets(ctx, cfg); err != nil {
		return err
	}

	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("", "", "platform listening", map[string]interface{}{
			"port":        cfg.HTTP.Port,
			"environment": cfg.Environment,
		})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.Info("", "", "shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// loadConfig reads the file named by CONFIG_FILE when set, otherwise
// the environment alone.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// resolveSecrets overlays the configured secrets bundle. Environments
// that require a real secret backend resolve through Secrets Manager;
// development resolves through prefixed environment variables.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	if cfg.SecretsName == "" {
		return nil
	}

	var src config.SecretSource
	if cfg.Settings().RequireSecretBackend {
		aws, err := config.NewAWSSecrets(ctx, cfg.AWSRegion, 0)
		if err != nil {
			return err
		}
		src = aws
	} else {
		src = config.EnvSecrets{}
	}
	return cfg.ResolveSecrets(ctx, src)
}
