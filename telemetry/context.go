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

// Context owns the ordered step records of one session. It is mutated by
// the single logical session that owns it and is not safe for concurrent
// writers; callers that fan work out must serialize their step recording.
type Context struct {
	sessionID string
	steps     []*Step
	byName    map[string]*Step
}

// NewContext creates an empty telemetry context for a session.
func NewContext(sessionID string) *Context {
	return &Context{
		sessionID: sessionID,
		byName:    map[string]*Step{},
	}
}

// SessionID returns the session this context tracks.
func (tc *Context) SessionID() string {
	return tc.sessionID
}

// StartStep appends a new in-progress step. Re-using a name starts a
// fresh step; later completion calls for that name target the most
// recent one.
func (tc *Context) StartStep(name, description string) *Step {
	step := &Step{
		Name:        name,
		Description: description,
		SessionID:   tc.sessionID,
		Status:      StepInProgress,
		StartedAt:   time.Now().UTC(),
		Data:        map[string]interface{}{},
	}
	tc.steps = append(tc.steps, step)
	tc.byName[name] = step
	return step
}

// CompleteStep marks the most recent step with the given name
// successful. Unknown names and already-terminal steps are no-ops.
func (tc *Context) CompleteStep(name string) {
	if step, ok := tc.byName[name]; ok {
		step.complete(time.Now().UTC())
	}
}

// FailStep marks the most recent step with the given name failed.
// Unknown names and already-terminal steps are no-ops.
func (tc *Context) FailStep(name, errorMessage string) {
	if step, ok := tc.byName[name]; ok {
		step.fail(errorMessage, time.Now().UTC())
	}
}

// AddStepData attaches a key/value datum to the most recent step with
// the given name.
func (tc *Context) AddStepData(name, key string, value interface{}) {
	if step, ok := tc.byName[name]; ok {
		if step.Data == nil {
			step.Data = map[string]interface{}{}
		}
		step.Data[key] = value
	}
}

// Complete reconciles the session: every still-in-progress step is
// forced to Completed when success is true, otherwise to Failed with the
// supplied message. Steps already terminal are untouched.
func (tc *Context) Complete(success bool, errorMessage string) {
	now := time.Now().UTC()
	for _, step := range tc.steps {
		if success {
			step.complete(now)
		} else {
			step.fail(errorMessage, now)
		}
	}
}

// Steps returns the recorded steps in start order. The returned slice is
// a copy; the steps themselves are shared.
func (tc *Context) Steps() []*Step {
	out := make([]*Step, len(tc.steps))
	copy(out, tc.steps)
	return out
}
