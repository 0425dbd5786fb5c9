// Copyright 2025 Poiesic Systems
//
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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidFilter indicates a search filter value that cannot be
	// interpreted (malformed timestamp, bad chain selector, and so on).
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrAmbiguousAgentID indicates an agent id without a chain prefix in a
	// search spanning more than one chain.
	ErrAmbiguousAgentID = errors.New("agent id requires a chain prefix in multi-chain searches")

	// ErrInvalidFeedbackID indicates a feedback id that is not of the form
	// "chainID:tokenID:reviewer:index".
	ErrInvalidFeedbackID = errors.New("invalid feedback id")
)
