package regfile

import (
	"encoding/json"
	"strings"

	"github.com/poiesic/agentdex/core"
)

// File is a registration document as published at an agent's URI. Indexed
// backends flatten this document into per-endpoint columns; the raw file
// keeps endpoints as named entries.
type File struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Image         string     `json:"image"`
	WalletAddress string     `json:"walletAddress"`
	Endpoints     []Endpoint `json:"endpoints"`

	Active          bool     `json:"-"`
	X402Support     bool     `json:"-"`
	SupportedTrusts []string `json:"-"`
}

// Endpoint is one named endpoint entry of a registration file.
type Endpoint struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Version  string `json:"version"`
}

// UnmarshalJSON folds spelling variants into the canonical fields: active
// defaults to true when absent, x402 support has two spellings in the
// wild, and supported trusts appear under both a singular and a plural
// key.
func (f *File) UnmarshalJSON(data []byte) error {
	type plain File
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var aux struct {
		Active        *bool    `json:"active"`
		X402Upper     bool     `json:"x402Support"`
		X402Lower     bool     `json:"x402support"`
		TrustPlural   []string `json:"supportedTrusts"`
		TrustSingular []string `json:"supportedTrust"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Active = aux.Active == nil || *aux.Active
	p.X402Support = aux.X402Upper || aux.X402Lower
	p.SupportedTrusts = aux.TrustPlural
	if len(p.SupportedTrusts) == 0 {
		p.SupportedTrusts = aux.TrustSingular
	}
	*f = File(p)
	return nil
}

// Apply copies the document's fields onto an agent summary. Identity and
// chain bookkeeping fields are left untouched, so callers can fill those
// from the contract before or after applying.
func (f *File) Apply(summary *core.AgentSummary) {
	summary.Name = f.Name
	summary.Description = f.Description
	summary.Image = f.Image
	summary.WalletAddress = f.WalletAddress
	summary.Active = f.Active
	summary.X402Support = f.X402Support
	summary.SupportedTrusts = f.SupportedTrusts

	for _, ep := range f.Endpoints {
		value := strings.TrimSpace(ep.Endpoint)
		if value == "" {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(ep.Name)) {
		case "MCP":
			summary.MCPEndpoint = value
			summary.MCPVersion = ep.Version
		case "A2A":
			summary.A2AEndpoint = value
			summary.A2AVersion = ep.Version
		case "WEB":
			summary.WebEndpoint = value
		case "EMAIL":
			summary.EmailEndpoint = value
		case "ENS":
			summary.ENS = value
		case "DID":
			summary.DID = value
		case "OASF":
			summary.HasOASF = true
		}
	}
}
