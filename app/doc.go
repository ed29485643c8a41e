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

// Package app wires the platform: configuration in, facades out, plus
// the operational HTTP surface (/health, /ready, /metrics) and
// graceful shutdown.
//
// Backend selection follows the configuration: unset backends fall
// back to in-memory implementations, so a development instance boots
// with no cloud services, no database, and no Redis. Run is the
// blocking entry point used by cmd/platform.
package app
