package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RobotsMakeThings/clawcasino/internal/config"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
)

func (s *Server) handleListTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": s.casino.Tables()})
}

// handleObserveTable returns the public view: hole cards stay hidden,
// only their count shows.
func (s *Server) handleObserveTable(c *gin.Context) {
	view, err := s.casino.TableView(c.Param("id"), "")
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": view})
}

// handleObserveTableAs returns the same view with the calling agent's
// own hole cards filled in.
func (s *Server) handleObserveTableAs(c *gin.Context) {
	view, err := s.casino.TableView(c.Param("id"), s.agent(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": view})
}

// handleOpenTable creates a table from the config-file table shape.
// Timing fields fall back to the engine defaults; the boot rake
// ceilings apply.
func (s *Server) handleOpenTable(c *gin.Context) {
	var spec config.TableSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	cfg, err := spec.TableConfig(s.caps)
	if err != nil {
		s.fail(c, err)
		return
	}
	view, err := s.casino.OpenTable(c.Request.Context(), cfg)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": view})
}

func (s *Server) handleJoinTable(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		BuyIn string `json:"buy_in"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	buyIn, ok := s.parseAmount(c, req.BuyIn)
	if !ok {
		return
	}
	name := req.Name
	if name == "" {
		name = c.GetHeader(headerName)
	}
	view, err := s.casino.Join(c.Request.Context(), c.Param("id"), s.agent(c), name, buyIn)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": view})
}

func (s *Server) handleLeaveTable(c *gin.Context) {
	view, err := s.casino.LeaveTable(c.Request.Context(), c.Param("id"), s.agent(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": view})
}

// handleAct applies one betting action. Amount is required for bet and
// raise, ignored for fold, check, call and allin.
func (s *Server) handleAct(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
		Amount string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	amount := money.Zero
	if req.Amount != "" {
		var ok bool
		if amount, ok = s.parseAmount(c, req.Amount); !ok {
			return
		}
	}
	view, err := s.casino.Act(c.Request.Context(), c.Param("id"), s.agent(c), req.Action, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": view})
}
