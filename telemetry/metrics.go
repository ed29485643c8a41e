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

// SessionMetrics summarizes one session's recorded steps.
type SessionMetrics struct {
	TotalSteps          int           `json:"total_steps"`
	SuccessfulSteps     int           `json:"successful_steps"`
	FailedSteps         int           `json:"failed_steps"`
	TotalDuration       time.Duration `json:"total_duration"`
	AverageStepDuration time.Duration `json:"average_step_duration"`
	SuccessRate         float64       `json:"success_rate"`
}

// slowStepThreshold is the average step duration above which a session
// loses one rating star.
const slowStepThreshold = 30 * time.Second

// Metrics derives the session summary from the recorded steps. Duration
// sums cover terminal steps only; SuccessRate is 0 for an empty session.
func (tc *Context) Metrics() SessionMetrics {
	m := SessionMetrics{TotalSteps: len(tc.steps)}

	terminal := 0
	for _, step := range tc.steps {
		switch step.Status {
		case StepCompleted:
			m.SuccessfulSteps++
		case StepFailed:
			m.FailedSteps++
		}
		if step.IsTerminal() {
			terminal++
			m.TotalDuration += step.Duration()
		}
	}

	if terminal > 0 {
		m.AverageStepDuration = m.TotalDuration / time.Duration(terminal)
	}
	if m.TotalSteps > 0 {
		m.SuccessRate = float64(m.SuccessfulSteps) / float64(m.TotalSteps)
	}
	return m
}

// PerformanceRating grades the session 0-5 stars. Zero is reserved for
// sessions with no steps; any recorded step earns at least one star.
// The base grade follows the success rate and a slow average step
// duration costs one star:
//
//	1.0        5 stars
//	>= 0.9     4 stars
//	>= 0.7     3 stars
//	>= 0.5     2 stars
//	otherwise  1 star
func (tc *Context) PerformanceRating() int {
	m := tc.Metrics()
	if m.TotalSteps == 0 {
		return 0
	}

	var rating int
	switch {
	case m.SuccessRate == 1.0:
		rating = 5
	case m.SuccessRate >= 0.9:
		rating = 4
	case m.SuccessRate >= 0.7:
		rating = 3
	case m.SuccessRate >= 0.5:
		rating = 2
	default:
		rating = 1
	}

	if m.AverageStepDuration > slowStepThreshold && rating > 1 {
		rating--
	}
	return rating
}
