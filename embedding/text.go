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

// TruncationStrategy selects which part of an over-long text survives
// truncation.
type TruncationStrategy string

const (
	// TruncateStart drops the head and keeps the tail.
	TruncateStart TruncationStrategy = "start"
	// TruncateEnd drops the tail and keeps the head.
	TruncateEnd TruncationStrategy = "end"
	// TruncateMiddle keeps the first and last max/2 runes joined by an
	// ellipsis marker.
	TruncateMiddle TruncationStrategy = "middle"
)

// Truncate shortens text to the configured maximum in runes. Text at or
// under the limit comes back unchanged; max <= 0 disables truncation.
//
// With strategy end the result is exactly the first max runes, with
// start exactly the last max. Middle keeps both edges: max/2 runes from
// each end around "...", so the result is 2*(max/2)+3 runes long.
// Unknown strategies fall back to end.
func Truncate(text string, max int, strategy TruncationStrategy) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	switch strategy {
	case TruncateStart:
		return string(runes[len(runes)-max:])
	case TruncateMiddle:
		half := max / 2
		return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
	default:
		return string(runes[:max])
	}
}
