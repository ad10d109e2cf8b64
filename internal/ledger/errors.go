package ledger

import (
	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the error codespace for the ledger.
const ModuleName = "ledger"

var (
	ErrUnknownCurrency = errorsmod.Register(ModuleName, 1, "unknown currency")
	ErrInvalidAmount   = errorsmod.Register(ModuleName, 2, "invalid amount")
	ErrBelowMinDeposit = errorsmod.Register(ModuleName, 3, "deposit below minimum")
	ErrRateLimited     = errorsmod.Register(ModuleName, 4, "withdrawal rate limit reached")
	ErrInvalidAgent    = errorsmod.Register(ModuleName, 5, "invalid agent")
)
