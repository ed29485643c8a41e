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

// Package types provides shared type definitions used across CareBridge components.
// This file defines the cloud provider and runtime environment enumerations that
// select storage backends and configuration defaults.
package types

// CloudProvider identifies which cloud's object storage backend the
// platform writes clinical artifacts to.
type CloudProvider string

const (
	// CloudAWS selects Amazon S3 for object storage.
	CloudAWS CloudProvider = "aws"
	// CloudGCP selects Google Cloud Storage for object storage.
	CloudGCP CloudProvider = "gcp"
	// CloudAzure selects Azure Blob Storage for object storage.
	CloudAzure CloudProvider = "azure"
)

// String returns the string representation of the CloudProvider
func (p CloudProvider) String() string {
	return string(p)
}

// IsValid returns true if the CloudProvider is a valid known value
func (p CloudProvider) IsValid() bool {
	switch p {
	case CloudAWS, CloudGCP, CloudAzure:
		return true
	default:
		return false
	}
}

// Environment represents the runtime environment the platform is deployed in
type Environment string

const (
	// EnvDevelopment is for local development; secret lookups fall back to env vars
	EnvDevelopment Environment = "development"
	// EnvStaging is for pre-production validation
	EnvStaging Environment = "staging"
	// EnvProduction is for production workloads with full secret resolution
	EnvProduction Environment = "production"
)

// String returns the string representation of the Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid returns true if the Environment is a valid known value
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// IsProduction returns true for production deployments
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}

// PlatformDefaults contains environment-specific settings that control
// secret resolution and operational strictness.
//
// Production requires real secret backends and encrypted object storage.
// Development allows env-var fallbacks so the platform runs without cloud access.
type PlatformDefaults struct {
	// Environment is the runtime environment (development, staging, production)
	Environment Environment `json:"environment"`

	// RequireSecretBackend rejects env-var secret fallbacks when true
	RequireSecretBackend bool `json:"require_secret_backend"`

	// RequireEncryption forces server-side encryption on object writes
	RequireEncryption bool `json:"require_encryption"`
}

// DefaultProductionSettings returns the default settings for production.
// Production enforces real secret backends and encrypted object storage.
func DefaultProductionSettings() PlatformDefaults {
	return PlatformDefaults{
		Environment:          EnvProduction,
		RequireSecretBackend: true,
		RequireEncryption:    true,
	}
}

// DefaultDevelopmentSettings returns the default settings for development.
// Development permits env-var secrets and unencrypted local stores.
func DefaultDevelopmentSettings() PlatformDefaults {
	return PlatformDefaults{
		Environment:          EnvDevelopment,
		RequireSecretBackend: false,
		RequireEncryption:    false,
	}
}

// DefaultsFor returns the settings for env. Staging carries production
// secret strictness without forced encryption; unknown environments get
// development settings.
func DefaultsFor(env Environment) PlatformDefaults {
	switch env {
	case EnvProduction:
		return DefaultProductionSettings()
	case EnvStaging:
		return PlatformDefaults{
			Environment:          EnvStaging,
			RequireSecretBackend: true,
		}
	default:
		return DefaultDevelopmentSettings()
	}
}
