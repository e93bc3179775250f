package economy

import "github.com/xraph/economy/id"

// ID is the primary identifier type for all economy entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
