package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChainSelector names the chains a search runs against. The zero value means
// "no explicit selection" and lets the resolver fall back to the configured
// implicit chains. JSON accepts the string "all" or a list of chain ids
// (numbers or numeric strings).
type ChainSelector struct {
	all bool
	raw []string
}

// AllChains selects every chain that has a configured backend.
func AllChains() ChainSelector {
	return ChainSelector{all: true}
}

// Chains selects an explicit list of chain ids.
func Chains(ids ...ChainID) ChainSelector {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	return ChainSelector{raw: raw}
}

// ChainList selects an explicit list of raw chain-id entries. Entries that
// do not parse as chain ids are dropped at resolution time, not here.
func ChainList(entries ...string) ChainSelector {
	return ChainSelector{raw: entries}
}

// IsAll reports whether the selector asks for every configured chain.
func (s ChainSelector) IsAll() bool { return s.all }

// IsZero reports whether no selection was made.
func (s ChainSelector) IsZero() bool { return !s.all && s.raw == nil }

// Entries returns the raw entries of an explicit selection.
func (s ChainSelector) Entries() []string { return s.raw }

// MarshalJSON encodes "all" selections as the string "all" and explicit
// selections as an array of entries.
func (s ChainSelector) MarshalJSON() ([]byte, error) {
	if s.all {
		return json.Marshal("all")
	}
	if s.raw == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.raw)
}

// UnmarshalJSON accepts "all", null, or an array of numbers and strings.
func (s *ChainSelector) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ChainSelector{}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if strings.EqualFold(strings.TrimSpace(str), "all") {
			*s = AllChains()
			return nil
		}
		return fmt.Errorf("%w: chain selector %q", ErrInvalidFilter, str)
	}
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("%w: chain selector must be \"all\" or a list", ErrInvalidFilter)
	}
	raw := make([]string, 0, len(list))
	for _, v := range list {
		switch entry := v.(type) {
		case string:
			raw = append(raw, entry)
		case float64:
			raw = append(raw, strconv.FormatFloat(entry, 'f', -1, 64))
		default:
			return fmt.Errorf("%w: chain selector entry %v", ErrInvalidFilter, v)
		}
	}
	*s = ChainSelector{raw: raw}
	return nil
}

// Timestamp is a point in time carried as unix seconds. Filter inputs are
// permissive: unix seconds, RFC 3339 (with or without a zone; zoneless
// values are UTC), and bare dates (UTC midnight) are all accepted.
type Timestamp int64

// At converts a time.Time to a Timestamp.
func At(t time.Time) Timestamp { return Timestamp(t.Unix()) }

// Unix returns the timestamp as unix seconds.
func (t Timestamp) Unix() int64 { return int64(t) }

// Time returns the timestamp as a UTC time.Time.
func (t Timestamp) Time() time.Time { return time.Unix(int64(t), 0).UTC() }

// zoneless layouts are interpreted as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a permissive timestamp string.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrInvalidFilter)
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp(secs), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return At(t), nil
		}
	}
	return 0, fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidFilter, s)
}

// UnmarshalJSON accepts a unix-seconds number or a timestamp string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("%w: timestamp %q", ErrInvalidFilter, n.String())
		}
		*t = Timestamp(int64(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: timestamp must be a number or string", ErrInvalidFilter)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the timestamp as unix seconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(t), 10)), nil
}

// MetadataFilter restricts results to agents carrying an on-chain metadata
// entry. With only Key set it checks key presence; with Value set the
// stored value must equal it byte-for-byte.
type MetadataFilter struct {
	Key   string  `json:"key"`
	Value *string `json:"value,omitempty"`
}

// FeedbackQueryFilter restricts an agent search by the feedback left for
// each agent. Existence-only requests (HasFeedback or nothing else) can be
// answered by the structured backend directly; everything else requires a
// row-level feedback scan.
type FeedbackQueryFilter struct {
	HasFeedback   bool `json:"hasFeedback,omitempty"`
	HasNoFeedback bool `json:"hasNoFeedback,omitempty"`
	HasResponse   bool `json:"hasResponse,omitempty"`

	Reviewers []string `json:"reviewers,omitempty"`
	Endpoint  string   `json:"endpoint,omitempty"`
	Tag       string   `json:"tag,omitempty"`
	Tag1      string   `json:"tag1,omitempty"`
	Tag2      string   `json:"tag2,omitempty"`

	MinCount *int64   `json:"minCount,omitempty"`
	MaxCount *int64   `json:"maxCount,omitempty"`
	MinValue *float64 `json:"minValue,omitempty"`
	MaxValue *float64 `json:"maxValue,omitempty"`

	IncludeRevoked bool `json:"includeRevoked,omitempty"`
}

// constrained reports whether any row-level constraint is set.
func (f *FeedbackQueryFilter) constrained() bool {
	return f.HasResponse || len(f.Reviewers) > 0 || f.Endpoint != "" ||
		f.Tag != "" || f.Tag1 != "" || f.Tag2 != ""
}

// thresholded reports whether any count or value bound is set.
func (f *FeedbackQueryFilter) thresholded() bool {
	return f.MinCount != nil || f.MaxCount != nil || f.MinValue != nil || f.MaxValue != nil
}

// HasAny reports whether the filter constrains the search at all.
func (f *FeedbackQueryFilter) HasAny() bool {
	if f == nil {
		return false
	}
	return f.HasFeedback || f.HasNoFeedback || f.constrained() || f.thresholded()
}

// NeedsScan reports whether answering the filter requires reading feedback
// rows. HasNoFeedback always scans: its result is only meaningful as a
// subtraction from a bounded candidate universe.
func (f *FeedbackQueryFilter) NeedsScan() bool {
	if f == nil {
		return false
	}
	return f.HasNoFeedback || f.constrained() || f.thresholded()
}

// PushdownOnly reports whether the filter reduces to a total-feedback-count
// predicate the structured backend can evaluate by itself.
func (f *FeedbackQueryFilter) PushdownOnly() bool {
	if f == nil {
		return false
	}
	return f.HasFeedback && !f.NeedsScan()
}

// SearchFilters is the structured half of an agent search. Zero values mean
// "not filtered"; tri-state conditions use pointers.
type SearchFilters struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	ENS         string `json:"ens,omitempty"`
	DID         string `json:"did,omitempty"`

	AgentIDs    []string `json:"agentIds,omitempty"`
	Owners      []string `json:"owners,omitempty"`
	Operators   []string `json:"operators,omitempty"`
	AgentWallet string   `json:"agentWallet,omitempty"`

	Chains ChainSelector `json:"chains,omitempty"`

	Active              *bool `json:"active,omitempty"`
	X402Support         *bool `json:"x402support,omitempty"`
	HasRegistrationFile *bool `json:"hasRegistrationFile,omitempty"`
	HasMCP              *bool `json:"hasMCP,omitempty"`
	HasA2A              *bool `json:"hasA2A,omitempty"`
	HasWeb              *bool `json:"hasWeb,omitempty"`
	HasOASF             *bool `json:"hasOASF,omitempty"`
	HasEndpoints        *bool `json:"hasEndpoints,omitempty"`

	// Endpoint substring matches (case-insensitive).
	MCP string `json:"mcp,omitempty"`
	A2A string `json:"a2a,omitempty"`
	Web string `json:"web,omitempty"`

	SupportedTrusts []string `json:"supportedTrusts,omitempty"`
	A2ASkills       []string `json:"a2aSkills,omitempty"`
	MCPTools        []string `json:"mcpTools,omitempty"`
	MCPPrompts      []string `json:"mcpPrompts,omitempty"`
	MCPResources    []string `json:"mcpResources,omitempty"`
	OASFSkills      []string `json:"oasfSkills,omitempty"`
	OASFDomains     []string `json:"oasfDomains,omitempty"`

	RegisteredAfter  *Timestamp `json:"registeredAfter,omitempty"`
	RegisteredBefore *Timestamp `json:"registeredBefore,omitempty"`
	UpdatedAfter     *Timestamp `json:"updatedAfter,omitempty"`
	UpdatedBefore    *Timestamp `json:"updatedBefore,omitempty"`

	Metadata *MetadataFilter      `json:"metadata,omitempty"`
	Feedback *FeedbackQueryFilter `json:"feedback,omitempty"`
}

// SearchQuery is a full agent-search request. An empty Keyword runs a purely
// structured search; a non-empty one adds semantic candidate retrieval and
// switches the default sort to relevance order.
type SearchQuery struct {
	Keyword  string         `json:"keyword,omitempty"`
	Filters  *SearchFilters `json:"filters,omitempty"`
	Sort     []string       `json:"sort,omitempty"`
	TopK     int            `json:"topK,omitempty"`
	MinScore float64        `json:"minScore,omitempty"`
}

// FilterSet returns the query's filters, never nil.
func (q *SearchQuery) FilterSet() *SearchFilters {
	if q.Filters == nil {
		return &SearchFilters{}
	}
	return q.Filters
}

// FeedbackFilters selects feedback entries directly, independent of an
// agent search.
type FeedbackFilters struct {
	AgentIDs  []string      `json:"agentIds,omitempty"`
	Chains    ChainSelector `json:"chains,omitempty"`
	Reviewers []string      `json:"reviewers,omitempty"`
	Endpoint  string        `json:"endpoint,omitempty"`
	Tag       string        `json:"tag,omitempty"`
	Tag1      string        `json:"tag1,omitempty"`
	Tag2      string        `json:"tag2,omitempty"`

	MinValue *float64 `json:"minValue,omitempty"`
	MaxValue *float64 `json:"maxValue,omitempty"`

	IncludeRevoked bool `json:"includeRevoked,omitempty"`
	HasResponse    bool `json:"hasResponse,omitempty"`

	Limit int `json:"limit,omitempty"`
}
