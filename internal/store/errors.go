package store

import (
	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the error codespace for the persistence layer.
const ModuleName = "store"

var (
	ErrAgentExists       = errorsmod.Register(ModuleName, 1, "agent already registered")
	ErrAgentNotFound     = errorsmod.Register(ModuleName, 2, "agent not found")
	ErrInsufficientFunds = errorsmod.Register(ModuleName, 3, "insufficient funds")
	ErrUnknownDuelKind   = errorsmod.Register(ModuleName, 4, "unknown duel kind")
)
