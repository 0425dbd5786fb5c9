package badger

import (
	"fmt"
	"strings"

	"github.com/poiesic/agentdex/core"
)

// Key prefixes for different data types
const (
	agentSnapPrefix = "agsnap"
	cursorPrefix    = "cursor"
)

// makeAgentKey generates a key for an agent snapshot by its chain-qualified
// id. The id already embeds the chain ("1:42"), so snapshots of one chain
// share a common key prefix.
func makeAgentKey(id core.AgentID) []byte {
	return []byte(agentSnapPrefix + ":" + string(id))
}

// makeChainPrefix generates the key prefix shared by every snapshot on one
// chain. The trailing separator keeps chain 1 from matching chain 11155111.
func makeChainPrefix(chain core.ChainID) []byte {
	return []byte(agentSnapPrefix + ":" + chain.String() + ":")
}

// agentIDFromKey extracts the agent id from a snapshot key.
func agentIDFromKey(key []byte) core.AgentID {
	return core.AgentID(strings.TrimPrefix(string(key), agentSnapPrefix+":"))
}

// makeCursorKey generates a key for a job cursor.
func makeCursorKey(job string) []byte {
	return []byte(fmt.Sprintf("%s:%s", cursorPrefix, job))
}
