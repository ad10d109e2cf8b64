package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RobotsMakeThings/clawcasino/internal/app"
	"github.com/RobotsMakeThings/clawcasino/internal/config"
	"github.com/RobotsMakeThings/clawcasino/internal/duel"
	"github.com/RobotsMakeThings/clawcasino/internal/ledger"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
	"github.com/RobotsMakeThings/clawcasino/internal/table"
)

// Error kinds on the wire. Every engine sentinel maps to exactly one.
const (
	codeValidation        = "VALIDATION"
	codeNotFound          = "NOT_FOUND"
	codeConflict          = "CONFLICT"
	codeInsufficientFunds = "INSUFFICIENT_FUNDS"
	codeRateLimited       = "RATE_LIMITED"
	codeForfeit           = "FORFEIT"
	codeInternal          = "INTERNAL"
)

var statusByCode = map[string]int{
	codeValidation:        http.StatusBadRequest,
	codeNotFound:          http.StatusNotFound,
	codeConflict:          http.StatusConflict,
	codeInsufficientFunds: http.StatusPaymentRequired,
	codeRateLimited:       http.StatusTooManyRequests,
	codeForfeit:           http.StatusConflict,
	codeInternal:          http.StatusInternalServerError,
}

var codeByErr = []struct {
	err  error
	code string
}{
	{ledger.ErrInvalidAgent, codeValidation},
	{ledger.ErrInvalidAmount, codeValidation},
	{ledger.ErrUnknownCurrency, codeValidation},
	{ledger.ErrBelowMinDeposit, codeValidation},
	{table.ErrInvalidConfig, codeValidation},
	{table.ErrInvalidAmount, codeValidation},
	{table.ErrBuyInRange, codeValidation},
	{table.ErrUnknownAction, codeValidation},
	{duel.ErrInvalidStake, codeValidation},
	{duel.ErrInvalidRounds, codeValidation},
	{duel.ErrKindMismatch, codeValidation},
	{duel.ErrInvalidCommitment, codeValidation},
	{duel.ErrInvalidChoice, codeValidation},
	{config.ErrInvalid, codeValidation},

	{app.ErrTableNotFound, codeNotFound},
	{duel.ErrGameNotFound, codeNotFound},
	{store.ErrAgentNotFound, codeNotFound},

	{app.ErrTableExists, codeConflict},
	{table.ErrTableHalted, codeConflict},
	{table.ErrTableFull, codeConflict},
	{table.ErrAlreadySeated, codeConflict},
	{table.ErrNotSeated, codeConflict},
	{table.ErrHandInProgress, codeConflict},
	{table.ErrNoActiveHand, codeConflict},
	{table.ErrNotYourTurn, codeConflict},
	{table.ErrIllegalAction, codeConflict},
	{duel.ErrNotOpen, codeConflict},
	{duel.ErrOwnGame, codeConflict},
	{duel.ErrNotParticipant, codeConflict},
	{duel.ErrNotCreator, codeConflict},
	{duel.ErrPhaseMismatch, codeConflict},
	{duel.ErrAlreadyCommitted, codeConflict},
	{duel.ErrAlreadyRevealed, codeConflict},
	{store.ErrAgentExists, codeConflict},

	{store.ErrInsufficientFunds, codeInsufficientFunds},
	{ledger.ErrRateLimited, codeRateLimited},
	{duel.ErrRevealMismatch, codeForfeit},
}

func errCode(err error) string {
	for _, m := range codeByErr {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return codeInternal
}

// fail writes the uniform error body. Unmapped errors are server faults
// and keep their detail out of the response.
func (s *Server) fail(c *gin.Context, err error) {
	code := errCode(err)
	msg := err.Error()
	if code == codeInternal {
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(statusByCode[code], gin.H{"error": gin.H{
		"code":    code,
		"message": msg,
	}})
}

// invalid rejects malformed request input before it reaches the core.
func (s *Server) invalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": gin.H{
		"code":    codeValidation,
		"message": msg,
	}})
}
