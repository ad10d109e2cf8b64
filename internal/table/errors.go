package table

import errorsmod "cosmossdk.io/errors"

const ModuleName = "table"

// Table sentinel errors.
var (
	ErrInvalidConfig  = errorsmod.Register(ModuleName, 1, "invalid table configuration")
	ErrTableHalted    = errorsmod.Register(ModuleName, 2, "table halted")
	ErrTableFull      = errorsmod.Register(ModuleName, 3, "no free seat")
	ErrAlreadySeated  = errorsmod.Register(ModuleName, 4, "already seated at table")
	ErrBuyInRange     = errorsmod.Register(ModuleName, 5, "buy-in out of range")
	ErrNotSeated      = errorsmod.Register(ModuleName, 6, "not seated at table")
	ErrHandInProgress = errorsmod.Register(ModuleName, 7, "hand in progress")
	ErrNoActiveHand   = errorsmod.Register(ModuleName, 8, "no active hand")
	ErrNotYourTurn    = errorsmod.Register(ModuleName, 9, "not your turn")
	ErrIllegalAction  = errorsmod.Register(ModuleName, 10, "illegal action")
	ErrUnknownAction  = errorsmod.Register(ModuleName, 11, "unknown action")
	ErrInvalidAmount  = errorsmod.Register(ModuleName, 12, "invalid amount")
)
