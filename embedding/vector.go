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
	"fmt"
	"math"

	"carebridge/platform/shared/fault"
)

// Normalize scales v to unit Euclidean magnitude. The zero vector has
// no direction and is returned unchanged.
func Normalize(v []float64) []float64 {
	mag := magnitude(v)
	if mag == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / mag
	}
	return out
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|). When either vector has
// zero magnitude the similarity is 0. Vectors of different lengths fail
// with a dimension-mismatch fault.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fault.DimensionMismatch("embedding", "CosineSimilarity",
			fmt.Sprintf("vector lengths differ: %d vs %d", len(a), len(b)))
	}

	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}

	magA := magnitude(a)
	magB := magnitude(b)
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (magA * magB), nil
}

func magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
