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
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		max      int
		strategy TruncationStrategy
		want     string
	}{
		{"under limit unchanged", "short", 10, TruncateEnd, "short"},
		{"at limit unchanged", "exact", 5, TruncateEnd, "exact"},
		{"end keeps head", "abcdefghij", 4, TruncateEnd, "abcd"},
		{"start keeps tail", "abcdefghij", 4, TruncateStart, "ghij"},
		{"middle keeps both edges", "abcdefghij", 4, TruncateMiddle, "ab...ij"},
		{"middle rounds half down", "abcdefghij", 5, TruncateMiddle, "ab...ij"},
		{"zero max disables truncation", "abcdefghij", 0, TruncateEnd, "abcdefghij"},
		{"negative max disables truncation", "abcdefghij", -1, TruncateStart, "abcdefghij"},
		{"empty strategy behaves like end", "abcdefghij", 3, "", "abc"},
		{"unknown strategy behaves like end", "abcdefghij", 3, TruncationStrategy("weird"), "abc"},
		{"multibyte runes counted as one", "héllo wörld", 5, TruncateEnd, "héllo"},
		{"multibyte tail", "héllo wörld", 5, TruncateStart, "wörld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.max, tt.strategy); got != tt.want {
				t.Errorf("Truncate(%q, %d, %q) = %q, want %q", tt.text, tt.max, tt.strategy, got, tt.want)
			}
		})
	}
}

func TestTruncate_Lengths(t *testing.T) {
	text := strings.Repeat("x", 100)

	if got := Truncate(text, 10, TruncateEnd); len([]rune(got)) != 10 {
		t.Errorf("end length = %d, want 10", len([]rune(got)))
	}
	if got := Truncate(text, 10, TruncateStart); len([]rune(got)) != 10 {
		t.Errorf("start length = %d, want 10", len([]rune(got)))
	}
	if got := Truncate(text, 10, TruncateMiddle); len([]rune(got)) != 2*(10/2)+3 {
		t.Errorf("middle length = %d, want %d", len([]rune(got)), 2*(10/2)+3)
	}
}

func TestService_PrepareText(t *testing.T) {
	svc := NewService(&fakeEmbedClient{}, Config{MaxInputLength: 4, Truncation: TruncateMiddle})

	if got := svc.PrepareText("abcdefghij"); got != "ab...ij" {
		t.Errorf("PrepareText() = %q, want %q", got, "ab...ij")
	}

	unlimited := NewService(&fakeEmbedClient{}, Config{})
	if got := unlimited.PrepareText("abcdefghij"); got != "abcdefghij" {
		t.Errorf("PrepareText() with no limit = %q, want input unchanged", got)
	}
}
