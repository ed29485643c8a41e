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

// Package config loads and validates platform configuration.
//
// Values resolve in layers, later layers winning: built-in defaults,
// an optional YAML file (Load skips it, LoadFile reads it), environment
// variables, and finally an optional secrets bundle applied through
// ResolveSecrets. YAML files may reference the environment with ${VAR}
// or ${VAR:-fallback}.
//
// Secrets resolve through AWS Secrets Manager in deployed
// environments, cached in-process with a TTL so rotation does not
// require a restart. EnvSecrets is the development stand-in, reading
// the same bundle fields from prefixed environment variables.
package config
