package refresh

import "errors"

var (
	// ErrStoreRequired is returned when an agent store is not provided.
	ErrStoreRequired = errors.New("agent store required")

	// ErrUnqualifiedAgentID is returned when an agent id has no chain prefix.
	ErrUnqualifiedAgentID = errors.New("agent id requires a chain prefix")

	// ErrNoSource is returned when an agent is reachable through neither a
	// backend row nor a contract read.
	ErrNoSource = errors.New("no data source for agent")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
