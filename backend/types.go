package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Numeric is a backend scalar that may arrive as a JSON string or number.
// Subgraph big-int and big-decimal columns serialize as strings; other
// backends may send plain numbers. Coercion never fails: unparseable
// values read as zero.
type Numeric string

// UnmarshalJSON accepts strings, numbers and null.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*n = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = Numeric(s)
		return nil
	}
	*n = Numeric(data)
	return nil
}

// MarshalJSON encodes the scalar back as a string.
func (n Numeric) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(n))
}

// Float coerces the scalar to a float, 0 on failure.
func (n Numeric) Float() float64 {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0
	}
	return f
}

// Int coerces the scalar to an integer, truncating fractional values,
// 0 on failure.
func (n Numeric) Int() int64 {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i
	}
	return int64(n.Float())
}

// AgentRef is a nested reference to an agent row.
type AgentRef struct {
	ID string `json:"id"`
}

// Agent is one structured-backend agent row. ID is the canonical
// "<chainID>:<tokenID>" identifier; TokenID is the per-chain token id.
type Agent struct {
	ID           string   `json:"id"`
	ChainID      Numeric  `json:"chainId"`
	TokenID      Numeric  `json:"agentId"`
	AgentURI     string   `json:"agentURI"`
	AgentURIType string   `json:"agentURIType"`
	Owner        string   `json:"owner"`
	Operators    []string `json:"operators"`
	AgentWallet  string   `json:"agentWallet"`

	TotalFeedback Numeric `json:"totalFeedback"`
	CreatedAt     Numeric `json:"createdAt"`
	UpdatedAt     Numeric `json:"updatedAt"`
	LastActivity  Numeric `json:"lastActivity"`

	RegistrationFile *RegistrationFile `json:"registrationFile"`
}

// RegistrationFile is the indexed registration document of an agent.
type RegistrationFile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Active      bool   `json:"active"`
	X402Support bool   `json:"x402Support"`
	HasOASF     bool   `json:"hasOASF"`

	MCPEndpoint   string `json:"mcpEndpoint"`
	MCPVersion    string `json:"mcpVersion"`
	A2AEndpoint   string `json:"a2aEndpoint"`
	A2AVersion    string `json:"a2aVersion"`
	WebEndpoint   string `json:"webEndpoint"`
	EmailEndpoint string `json:"emailEndpoint"`
	ENS           string `json:"ens"`
	DID           string `json:"did"`

	SupportedTrusts []string `json:"supportedTrusts"`
	A2ASkills       []string `json:"a2aSkills"`
	MCPTools        []string `json:"mcpTools"`
	MCPPrompts      []string `json:"mcpPrompts"`
	MCPResources    []string `json:"mcpResources"`
	OASFSkills      []string `json:"oasfSkills"`
	OASFDomains     []string `json:"oasfDomains"`

	CreatedAt Numeric `json:"createdAt"`
}

// UnmarshalJSON folds schema-version variants into the canonical fields:
// older deployments expose x402support (lower case) and an oasfEndpoint
// column instead of the derived hasOASF boolean.
func (f *RegistrationFile) UnmarshalJSON(data []byte) error {
	type plain RegistrationFile
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var legacy struct {
		X402Lower    *bool  `json:"x402support"`
		OASFEndpoint string `json:"oasfEndpoint"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	if !p.X402Support && legacy.X402Lower != nil {
		p.X402Support = *legacy.X402Lower
	}
	if !p.HasOASF && legacy.OASFEndpoint != "" {
		p.HasOASF = true
	}
	*f = RegistrationFile(p)
	return nil
}

// MetadataEntry is one on-chain metadata row.
type MetadataEntry struct {
	ID    string   `json:"id"`
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Agent AgentRef `json:"agent"`
}

// FeedbackRow is one feedback entry as stored by the backend.
type FeedbackRow struct {
	ID            string        `json:"id"`
	Agent         AgentRef      `json:"agent"`
	ClientAddress string        `json:"clientAddress"`
	Value         Numeric       `json:"value"`
	Tag1          string        `json:"tag1"`
	Tag2          string        `json:"tag2"`
	Endpoint      string        `json:"endpoint"`
	FeedbackURI   string        `json:"feedbackURI"`
	IsRevoked     bool          `json:"isRevoked"`
	CreatedAt     Numeric       `json:"createdAt"`
	Responses     []ResponseRow `json:"responses"`
}

// HasResponse reports whether the agent answered this feedback.
func (r *FeedbackRow) HasResponse() bool {
	return len(r.Responses) > 0
}

// ResponseRow is an agent's answer to a feedback entry.
type ResponseRow struct {
	ID        string  `json:"id"`
	Responder string  `json:"responder"`
	URI       string  `json:"-"`
	CreatedAt Numeric `json:"createdAt"`
}

// UnmarshalJSON reads the response URI from either of its schema-version
// spellings (responseUri, responseURI).
func (r *ResponseRow) UnmarshalJSON(data []byte) error {
	type plain ResponseRow
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var uri struct {
		Modern string `json:"responseUri"`
		Legacy string `json:"responseURI"`
	}
	if err := json.Unmarshal(data, &uri); err != nil {
		return err
	}
	p.URI = uri.Modern
	if p.URI == "" {
		p.URI = uri.Legacy
	}
	*r = ResponseRow(p)
	return nil
}
