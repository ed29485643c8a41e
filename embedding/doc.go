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

// Package embedding generates vector embeddings for clinical text.
//
// The service layers three concerns over the model facade: text
// preparation (rune-exact truncation from the start, end, or middle of
// over-long inputs), vector post-processing (unit-magnitude
// normalization with a zero-vector guard, cosine similarity), and
// batch fan-out (fixed-size batches embedded concurrently with a
// pacing delay between batches).
//
// Batch results preserve input order and never abort on one bad item;
// each failed item carries its own error message. An optional Redis
// cache memoizes vectors per tenant and model, keyed by text digest.
package embedding
