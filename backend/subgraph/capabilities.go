package subgraph

import (
	"context"
)

// Capabilities records the schema-version differences between deployed
// subgraphs. Instead of rewriting queries when a backend rejects a field,
// the client discovers the deployment's vocabulary once and builds its
// queries from it.
type Capabilities struct {
	// X402Field is the registration-file column holding x402 support
	// ("x402Support", or "x402support" on older deployments).
	X402Field string

	// HasOASF reports whether the registration file carries the derived
	// hasOASF boolean. Older deployments only expose oasfEndpoint.
	HasOASF bool

	// AgentWallet reports whether the Agent entity carries the
	// agentWallet column.
	AgentWallet bool

	// ResponseURIField is the feedback-response URI column
	// ("responseURI", or "responseUri" on renamed deployments).
	ResponseURIField string

	// MetadataCollection is the root query field for on-chain metadata
	// ("agentMetadatas", or "agentMetadata_collection").
	MetadataCollection string
}

// DefaultCapabilities describes the current schema. Probe failures fall
// back to it.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		X402Field:          "x402Support",
		HasOASF:            true,
		AgentWallet:        true,
		ResponseURIField:   "responseURI",
		MetadataCollection: "agentMetadatas",
	}
}

// capabilityProbe lists the fields of the schema types whose vocabulary
// has drifted across deployments.
const capabilityProbe = `
query Schema {
  agent: __type(name: "Agent") { fields { name } }
  registration: __type(name: "AgentRegistrationFile") { fields { name } }
  response: __type(name: "FeedbackResponse") { fields { name } }
  root: __type(name: "Query") { fields { name } }
}`

type probedType struct {
	Fields []struct {
		Name string `json:"name"`
	} `json:"fields"`
}

func (t *probedType) has(name string) bool {
	if t == nil {
		return false
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (t *probedType) known() bool { return t != nil && len(t.Fields) > 0 }

// probeCapabilities asks the backend for its schema vocabulary. Types the
// introspection cannot see keep their default interpretation.
func (c *Client) probeCapabilities(ctx context.Context) (Capabilities, error) {
	var resp struct {
		Agent        *probedType `json:"agent"`
		Registration *probedType `json:"registration"`
		Response     *probedType `json:"response"`
		Root         *probedType `json:"root"`
	}
	if err := c.run(ctx, capabilityProbe, nil, &resp); err != nil {
		return Capabilities{}, err
	}

	caps := DefaultCapabilities()
	if resp.Registration.known() {
		if !resp.Registration.has("x402Support") && resp.Registration.has("x402support") {
			caps.X402Field = "x402support"
		}
		caps.HasOASF = resp.Registration.has("hasOASF")
	}
	if resp.Agent.known() {
		caps.AgentWallet = resp.Agent.has("agentWallet")
	}
	if resp.Response.known() {
		if !resp.Response.has("responseURI") && resp.Response.has("responseUri") {
			caps.ResponseURIField = "responseUri"
		}
	}
	if resp.Root.known() {
		if !resp.Root.has("agentMetadatas") && resp.Root.has("agentMetadata_collection") {
			caps.MetadataCollection = "agentMetadata_collection"
		}
	}
	return caps, nil
}
