package economy

import "github.com/xraph/economy/types"

// Re-export common types for convenience so users don't have to import types package.

// Entity is re-exported from types package.
type Entity = types.Entity

// Window is re-exported from types package.
type Window = types.Window

// WindowKind is re-exported from types package.
type WindowKind = types.WindowKind

// Re-export reporting windows
const (
	WindowAll   = types.WindowAll
	WindowDay   = types.WindowDay
	WindowWeek  = types.WindowWeek
	WindowMonth = types.WindowMonth
	WindowYear  = types.WindowYear
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
