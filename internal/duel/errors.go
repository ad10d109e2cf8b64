package duel

import (
	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the error codespace for head-to-head games.
const ModuleName = "duel"

var (
	ErrGameNotFound      = errorsmod.Register(ModuleName, 1, "game not found")
	ErrInvalidStake      = errorsmod.Register(ModuleName, 2, "invalid stake")
	ErrInvalidRounds     = errorsmod.Register(ModuleName, 3, "rounds must be odd and within bounds")
	ErrKindMismatch      = errorsmod.Register(ModuleName, 4, "wrong game kind")
	ErrNotOpen           = errorsmod.Register(ModuleName, 5, "game is not open")
	ErrOwnGame           = errorsmod.Register(ModuleName, 6, "cannot accept your own game")
	ErrNotParticipant    = errorsmod.Register(ModuleName, 7, "agent is not a participant")
	ErrNotCreator        = errorsmod.Register(ModuleName, 8, "only the creator can cancel")
	ErrPhaseMismatch     = errorsmod.Register(ModuleName, 9, "action does not fit the game phase")
	ErrAlreadyCommitted  = errorsmod.Register(ModuleName, 10, "already committed this round")
	ErrAlreadyRevealed   = errorsmod.Register(ModuleName, 11, "already revealed this round")
	ErrInvalidCommitment = errorsmod.Register(ModuleName, 12, "commitment must be 64 hex characters")
	ErrInvalidChoice     = errorsmod.Register(ModuleName, 13, "choice must be rock, paper or scissors")
	ErrRevealMismatch    = errorsmod.Register(ModuleName, 14, "reveal does not match commitment")
)
