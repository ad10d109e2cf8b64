package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RobotsMakeThings/clawcasino/internal/duel"
)

type createDuelRequest struct {
	Currency string `json:"currency"`
	Stake    string `json:"stake"`
	Rounds   int    `json:"rounds"`
}

func (s *Server) handleCreateCoinflip(c *gin.Context) {
	var req createDuelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	stake, ok := s.parseAmount(c, req.Stake)
	if !ok {
		return
	}
	view, err := s.casino.CreateCoinflip(c.Request.Context(), s.agent(c),
		c.GetHeader(headerWallet), c.GetHeader(headerName), req.Currency, stake)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (s *Server) handleCreateRPS(c *gin.Context) {
	var req createDuelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	stake, ok := s.parseAmount(c, req.Stake)
	if !ok {
		return
	}
	rounds := req.Rounds
	if rounds == 0 {
		rounds = 1
	}
	view, err := s.casino.CreateRPS(c.Request.Context(), s.agent(c),
		c.GetHeader(headerWallet), c.GetHeader(headerName), req.Currency, stake, rounds)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (s *Server) handleAcceptCoinflip(c *gin.Context) {
	s.acceptDuel(c, duel.KindCoinflip)
}

func (s *Server) handleAcceptRPS(c *gin.Context) {
	s.acceptDuel(c, duel.KindRPS)
}

func (s *Server) acceptDuel(c *gin.Context, kind duel.Kind) {
	view, err := s.casino.AcceptDuel(c.Request.Context(), kind, c.Param("id"),
		s.agent(c), c.GetHeader(headerWallet), c.GetHeader(headerName))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (s *Server) handleCancelDuel(c *gin.Context) {
	view, err := s.casino.CancelDuel(c.Request.Context(), c.Param("id"), s.agent(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (s *Server) handleCommitRPS(c *gin.Context) {
	var req struct {
		Commitment string `json:"commitment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	view, err := s.casino.CommitDuel(c.Request.Context(), c.Param("id"), s.agent(c), req.Commitment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": view})
}

// handleRevealRPS opens a commitment. A reveal that contradicts its
// commitment forfeits the match; the response then carries both the
// error and the resolved game.
func (s *Server) handleRevealRPS(c *gin.Context) {
	var req struct {
		Choice string `json:"choice"`
		Nonce  string `json:"nonce"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	view, err := s.casino.RevealDuel(c.Request.Context(), c.Param("id"), s.agent(c),
		duel.Choice(req.Choice), req.Nonce)
	if err != nil {
		if errors.Is(err, duel.ErrRevealMismatch) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": gin.H{"code": codeForfeit, "message": err.Error()},
				"game":  view,
			})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (s *Server) handleGetDuel(c *gin.Context) {
	view, err := s.casino.Duel(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (s *Server) handleOpenCoinflips(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": s.casino.OpenDuels(duel.KindCoinflip)})
}

func (s *Server) handleOpenRPS(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": s.casino.OpenDuels(duel.KindRPS)})
}

func (s *Server) handleCoinflipHistory(c *gin.Context) {
	s.duelHistory(c, duel.KindCoinflip)
}

func (s *Server) handleRPSHistory(c *gin.Context) {
	s.duelHistory(c, duel.KindRPS)
}

func (s *Server) duelHistory(c *gin.Context, kind duel.Kind) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{"games": s.casino.DuelHistory(s.agent(c), kind, limit)})
}
