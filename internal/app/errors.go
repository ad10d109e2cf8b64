package app

import errorsmod "cosmossdk.io/errors"

const ModuleName = "casino"

var (
	ErrTableNotFound = errorsmod.Register(ModuleName, 1, "table not found")
	ErrTableExists   = errorsmod.Register(ModuleName, 2, "table id already in use")
)
