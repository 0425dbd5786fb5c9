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

import (
	"fmt"
	"strings"
)

// ValidateSearchQuery validates a search request according to domain rules.
//
// Validation rules:
//   - TopK must not be negative
//   - MinScore must be within [0, 1]
//   - a metadata filter must name a key
//
// NOT validated (resolved later in the pipeline):
//   - chain selector entries (invalid entries are dropped at resolution)
//   - sort specs (unknown fields fall back to the mode default)
//   - agent-id chain prefixes (checked against the resolved chain set)
func ValidateSearchQuery(q *SearchQuery) error {
	if q == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidFilter)
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: topK must not be negative", ErrInvalidFilter)
	}
	if q.MinScore < 0 || q.MinScore > 1 {
		return fmt.Errorf("%w: minScore must be within [0, 1]", ErrInvalidFilter)
	}
	if f := q.Filters; f != nil && f.Metadata != nil && strings.TrimSpace(f.Metadata.Key) == "" {
		return fmt.Errorf("%w: metadata filter requires a key", ErrInvalidFilter)
	}
	return nil
}

// NormalizeAgentIDs buckets raw agent-id filter entries by chain.
//
// Entries with a numeric chain prefix keep it, even when the chain is not in
// the resolved set (such entries simply never match). Entries without a
// prefix are only meaningful when exactly one chain is being searched; they
// are prefixed with it. Entries with a malformed prefix are dropped
// silently. Returns ErrAmbiguousAgentID for prefix-less entries in
// multi-chain searches.
func NormalizeAgentIDs(raw []string, resolved []ChainID) (map[ChainID][]AgentID, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var single *ChainID
	if len(resolved) == 1 {
		single = &resolved[0]
	}

	buckets := make(map[ChainID][]AgentID)
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, ":") {
			id := AgentID(entry)
			chain, _, ok := id.Parse()
			if !ok {
				continue
			}
			buckets[chain] = append(buckets[chain], id)
			continue
		}
		if single == nil {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguousAgentID, entry)
		}
		buckets[*single] = append(buckets[*single], MakeAgentID(*single, entry))
	}
	return buckets, nil
}
