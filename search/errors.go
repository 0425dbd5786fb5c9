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


package search

import "errors"

var (
	// ErrResolverRequired is returned when a chain resolver is not provided.
	ErrResolverRequired = errors.New("chain resolver required")

	// ErrRegistryRequired is returned when a backend registry is not provided.
	ErrRegistryRequired = errors.New("backend registry required")

	// ErrSemanticRequired is returned when a keyword query arrives without a
	// configured relevance service.
	ErrSemanticRequired = errors.New("keyword queries require a semantic searcher")

	// ErrUnboundedFeedbackQuery is returned when a feedback-absence filter
	// has no bounded candidate set to subtract from.
	ErrUnboundedFeedbackQuery = errors.New("feedback absence filters require other filters that bound the candidate set")
)
