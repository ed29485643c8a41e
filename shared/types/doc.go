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

/*
Package types provides shared type definitions used across CareBridge components.

# Overview

This package contains common types shared between the integration facades,
configuration loading, and service wiring. It provides a single source of
truth for the enumerations that select backends at startup.

# Cloud Providers

The object storage facade supports three backends, selected by CloudProvider:

	aws    Amazon S3
	gcp    Google Cloud Storage
	azure  Azure Blob Storage

# Environments

Environment controls operational strictness. Production requires a real
secret backend and server-side encryption on object writes; development
allows env-var fallbacks so the platform runs without cloud credentials:

	settings := types.DefaultProductionSettings()
	if settings.RequireEncryption {
		// object writes must carry SSE options
	}
*/
package types
