package subgraph

import (
	"fmt"
	"strings"
)

// documents holds the query texts for one deployment, assembled once per
// client from its Capabilities.
type documents struct {
	agents       string
	agentByID    string
	metadata     string
	feedbacks    string
	feedbackByID string
}

func buildDocuments(caps Capabilities) documents {
	agent := agentSelection(caps)
	feedback := feedbackSelection(caps)
	return documents{
		agents: fmt.Sprintf(`
query Agents($where: Agent_filter, $first: Int!, $skip: Int!, $orderBy: Agent_orderBy!, $orderDirection: OrderDirection!) {
  agents(where: $where, first: $first, skip: $skip, orderBy: $orderBy, orderDirection: $orderDirection) {
%s
  }
}`, agent),
		agentByID: fmt.Sprintf(`
query AgentByID($id: ID!) {
  agent(id: $id) {
%s
  }
}`, agent),
		metadata: fmt.Sprintf(`
query Metadata($where: AgentMetadata_filter, $first: Int!, $skip: Int!) {
  entries: %s(where: $where, first: $first, skip: $skip) {
    id
    key
    value
    agent { id }
  }
}`, caps.MetadataCollection),
		feedbacks: fmt.Sprintf(`
query Feedbacks($where: Feedback_filter, $first: Int!, $skip: Int!, $orderBy: Feedback_orderBy!, $orderDirection: OrderDirection!) {
  feedbacks(where: $where, first: $first, skip: $skip, orderBy: $orderBy, orderDirection: $orderDirection) {
%s
  }
}`, feedback),
		feedbackByID: fmt.Sprintf(`
query FeedbackByID($id: ID!) {
  feedback(id: $id) {
%s
  }
}`, feedback),
	}
}

func agentSelection(caps Capabilities) string {
	lines := []string{
		"id",
		"chainId",
		"agentId",
		"agentURI",
		"agentURIType",
		"owner",
		"operators",
	}
	if caps.AgentWallet {
		lines = append(lines, "agentWallet")
	}
	lines = append(lines,
		"totalFeedback",
		"createdAt",
		"updatedAt",
		"lastActivity",
	)

	reg := []string{
		"name",
		"description",
		"image",
		"active",
		caps.X402Field,
		"mcpEndpoint",
		"mcpVersion",
		"a2aEndpoint",
		"a2aVersion",
		"webEndpoint",
		"emailEndpoint",
		"ens",
		"did",
		"oasfEndpoint",
		"supportedTrusts",
		"a2aSkills",
		"mcpTools",
		"mcpPrompts",
		"mcpResources",
		"oasfSkills",
		"oasfDomains",
		"createdAt",
	}
	if caps.HasOASF {
		reg = append(reg, "hasOASF")
	}

	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "    %s\n", l)
	}
	b.WriteString("    registrationFile {\n")
	for _, l := range reg {
		fmt.Fprintf(&b, "      %s\n", l)
	}
	b.WriteString("    }")
	return b.String()
}

func feedbackSelection(caps Capabilities) string {
	return fmt.Sprintf(`    id
    agent { id }
    clientAddress
    value
    tag1
    tag2
    endpoint
    feedbackURI
    isRevoked
    createdAt
    responses(first: 5) {
      id
      responder
      %s
      createdAt
    }`, caps.ResponseURIField)
}
