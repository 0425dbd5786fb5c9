package backend

import "github.com/poiesic/agentdex/core"

// Summary flattens the row into the public summary shape. chain is the
// fallback when the row carries no usable chain id of its own. The
// registration file may be missing; its fields then stay zero.
func (a Agent) Summary(chain core.ChainID) core.AgentSummary {
	id := core.AgentID(a.ID)
	if c := a.ChainID.Int(); c > 0 {
		chain = core.ChainID(c)
	} else if c, _, ok := id.Parse(); ok {
		chain = c
	}

	s := core.AgentSummary{
		ChainID:       chain,
		AgentID:       id,
		Operators:     a.Operators,
		WalletAddress: a.AgentWallet,
		AgentURI:      a.AgentURI,
		AgentURIType:  a.AgentURIType,
		CreatedAt:     a.CreatedAt.Int(),
		UpdatedAt:     a.UpdatedAt.Int(),
		LastActivity:  a.LastActivity.Int(),
		FeedbackCount: a.TotalFeedback.Int(),
	}
	if a.Owner != "" {
		s.Owners = []string{a.Owner}
	}

	file := a.RegistrationFile
	if file == nil {
		return s
	}
	s.Name = file.Name
	s.Description = file.Description
	s.Image = file.Image
	s.Active = file.Active
	s.X402Support = file.X402Support
	s.HasOASF = file.HasOASF
	s.MCPEndpoint = file.MCPEndpoint
	s.MCPVersion = file.MCPVersion
	s.A2AEndpoint = file.A2AEndpoint
	s.A2AVersion = file.A2AVersion
	s.WebEndpoint = file.WebEndpoint
	s.EmailEndpoint = file.EmailEndpoint
	s.ENS = file.ENS
	s.DID = file.DID
	s.SupportedTrusts = file.SupportedTrusts
	s.A2ASkills = file.A2ASkills
	s.MCPTools = file.MCPTools
	s.MCPPrompts = file.MCPPrompts
	s.MCPResources = file.MCPResources
	s.OASFSkills = file.OASFSkills
	s.OASFDomains = file.OASFDomains
	return s
}

// Feedback flattens the row into the public feedback shape.
func (r FeedbackRow) Feedback() core.Feedback {
	f := core.Feedback{
		ID:        r.ID,
		AgentID:   core.AgentID(r.Agent.ID),
		Reviewer:  r.ClientAddress,
		Value:     r.Value.Float(),
		Tag1:      r.Tag1,
		Tag2:      r.Tag2,
		Endpoint:  r.Endpoint,
		URI:       r.FeedbackURI,
		IsRevoked: r.IsRevoked,
		CreatedAt: r.CreatedAt.Int(),
	}
	for _, resp := range r.Responses {
		f.Answers = append(f.Answers, core.FeedbackAnswer{
			Responder: resp.Responder,
			URI:       resp.URI,
			CreatedAt: resp.CreatedAt.Int(),
		})
	}
	return f
}
