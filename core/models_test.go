package core

import (
	"testing"
)

func TestAgentID_Parse(t *testing.T) {
	tests := []struct {
		name      string
		id        AgentID
		wantChain ChainID
		wantToken string
		wantOK    bool
	}{
		{
			name:      "canonical id",
			id:        "1:42",
			wantChain: 1,
			wantToken: "42",
			wantOK:    true,
		},
		{
			name:      "large chain id",
			id:        "11155111:7",
			wantChain: 11155111,
			wantToken: "7",
			wantOK:    true,
		},
		{
			name:   "no prefix",
			id:     "42",
			wantOK: false,
		},
		{
			name:   "non-numeric prefix",
			id:     "mainnet:42",
			wantOK: false,
		},
		{
			name:   "negative prefix",
			id:     "-1:42",
			wantOK: false,
		},
		{
			name:   "empty token",
			id:     "1:",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, token, ok := tt.id.Parse()
			if ok != tt.wantOK {
				t.Fatalf("Parse() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if chain != tt.wantChain {
				t.Errorf("Parse() chain = %d, want %d", chain, tt.wantChain)
			}
			if token != tt.wantToken {
				t.Errorf("Parse() token = %q, want %q", token, tt.wantToken)
			}
		})
	}
}

func TestMakeAgentID(t *testing.T) {
	id := MakeAgentID(8453, "1001")
	if id != "8453:1001" {
		t.Errorf("MakeAgentID() = %q, want %q", id, "8453:1001")
	}
	if id.Chain() != 8453 {
		t.Errorf("Chain() = %d, want 8453", id.Chain())
	}
	if id.Token() != "1001" {
		t.Errorf("Token() = %q, want %q", id.Token(), "1001")
	}
}

func TestParseFeedbackID(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		wantAgent    AgentID
		wantReviewer string
		wantIndex    uint64
		wantErr      bool
	}{
		{
			name:         "canonical feedback id",
			id:           "1:42:0xAbCd:3",
			wantAgent:    "1:42",
			wantReviewer: "0xabcd",
			wantIndex:    3,
		},
		{
			name:    "missing index",
			id:      "1:42:0xabcd",
			wantErr: true,
		},
		{
			name:    "non-numeric chain",
			id:      "x:42:0xabcd:0",
			wantErr: true,
		},
		{
			name:    "non-numeric index",
			id:      "1:42:0xabcd:first",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, reviewer, index, err := ParseFeedbackID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFeedbackID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if agent != tt.wantAgent {
				t.Errorf("agent = %q, want %q", agent, tt.wantAgent)
			}
			if reviewer != tt.wantReviewer {
				t.Errorf("reviewer = %q, want %q", reviewer, tt.wantReviewer)
			}
			if index != tt.wantIndex {
				t.Errorf("index = %d, want %d", index, tt.wantIndex)
			}
		})
	}
}

func TestAgentSummary_DisplayName(t *testing.T) {
	named := &AgentSummary{AgentID: "1:7", Name: "translator"}
	if got := named.DisplayName(); got != "translator" {
		t.Errorf("DisplayName() = %q, want %q", got, "translator")
	}

	unnamed := &AgentSummary{AgentID: "1:7"}
	if got := unnamed.DisplayName(); got != "1:7" {
		t.Errorf("DisplayName() = %q, want %q", got, "1:7")
	}
}
