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

package telemetry

import "time"

// StepStatus is the lifecycle state of a telemetry step.
type StepStatus string

const (
	// StepInProgress marks a step that has started and not yet finished.
	StepInProgress StepStatus = "in_progress"
	// StepCompleted marks a successfully finished step.
	StepCompleted StepStatus = "completed"
	// StepFailed marks a step that finished with an error.
	StepFailed StepStatus = "failed"
)

// Step records one tracked unit of work inside a session. CompletedAt is
// nil exactly while the step is in progress; a step reaches its terminal
// state once, and later completion calls are no-ops.
type Step struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	SessionID   string                 `json:"session_id"`
	Status      StepStatus             `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Duration returns how long the step ran: CompletedAt minus StartedAt
// once the step is terminal, zero while it is still in progress.
func (s *Step) Duration() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// IsTerminal reports whether the step has reached a final state.
func (s *Step) IsTerminal() bool {
	return s.Status == StepCompleted || s.Status == StepFailed
}

// complete marks the step successful. No-op if already terminal.
func (s *Step) complete(now time.Time) {
	if s.IsTerminal() {
		return
	}
	s.Status = StepCompleted
	s.CompletedAt = &now
}

// fail marks the step failed with a message. No-op if already terminal.
func (s *Step) fail(errorMessage string, now time.Time) {
	if s.IsTerminal() {
		return
	}
	s.Status = StepFailed
	s.ErrorMessage = errorMessage
	s.CompletedAt = &now
}
