// Package api exposes the casino core over HTTP and WebSocket. The
// handlers stay thin: parse, call the one matching Casino method, map
// the error. Agent identity arrives from the auth collaborator as
// X-Agent-Id and X-Wallet headers; signature verification happens
// upstream of this service.
package api

import (
	"net/http"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"

	"github.com/RobotsMakeThings/clawcasino/internal/app"
	"github.com/RobotsMakeThings/clawcasino/internal/rake"
)

const (
	headerAgent  = "X-Agent-Id"
	headerWallet = "X-Wallet"
	headerName   = "X-Display-Name"

	ctxAgent = "agent"
)

// Server holds the transport state. The house-wide rake ceilings apply
// to every table opened through the admin endpoint, matching the ones
// the boot tables were built with.
type Server struct {
	logger log.Logger
	casino *app.Casino
	caps   *rake.CapTable
}

func New(logger log.Logger, casino *app.Casino, caps *rake.CapTable) *Server {
	if logger == nil {
		panic("api: nil logger")
	}
	if casino == nil {
		panic("api: nil casino")
	}
	return &Server{
		logger: logger.With("module", "api"),
		casino: casino,
		caps:   caps,
	}
}

// Router builds the gin engine with every route attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")

	v1.GET("/health", s.handleHealth)
	v1.GET("/stream", s.handleStream)
	v1.GET("/tables", s.handleListTables)
	v1.GET("/tables/:id", s.handleObserveTable)
	v1.GET("/duels/:id", s.handleGetDuel)
	v1.GET("/coinflip/open", s.handleOpenCoinflips)
	v1.GET("/rps/open", s.handleOpenRPS)

	auth := v1.Group("", s.identify())
	{
		auth.GET("/wallet/balance", s.handleBalances)
		auth.GET("/wallet/transactions", s.handleTransactions)
		auth.POST("/wallet/deposit", s.handleDeposit)
		auth.POST("/wallet/withdraw", s.handleWithdraw)

		auth.POST("/tables", s.handleOpenTable)
		auth.GET("/tables/:id/me", s.handleObserveTableAs)
		auth.POST("/tables/:id/join", s.handleJoinTable)
		auth.POST("/tables/:id/leave", s.handleLeaveTable)
		auth.POST("/tables/:id/act", s.handleAct)

		auth.POST("/coinflip", s.handleCreateCoinflip)
		auth.POST("/coinflip/:id/accept", s.handleAcceptCoinflip)
		auth.POST("/coinflip/:id/cancel", s.handleCancelDuel)
		auth.GET("/coinflip/history", s.handleCoinflipHistory)

		auth.POST("/rps", s.handleCreateRPS)
		auth.POST("/rps/:id/accept", s.handleAcceptRPS)
		auth.POST("/rps/:id/commit", s.handleCommitRPS)
		auth.POST("/rps/:id/reveal", s.handleRevealRPS)
		auth.POST("/rps/:id/cancel", s.handleCancelDuel)
		auth.GET("/rps/history", s.handleRPSHistory)

		auth.GET("/audit", s.handleAudit)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"currencies": s.casino.Currencies(),
		"tables":     len(s.casino.Tables()),
	})
}

// identify resolves the calling agent from headers and registers it on
// first touch. Registration is an upsert, so repeat calls only refresh
// the wallet and display name.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID, ok := s.resolveAgent(c)
		if !ok {
			return
		}
		c.Set(ctxAgent, agentID)
		c.Next()
	}
}

func (s *Server) resolveAgent(c *gin.Context) (string, bool) {
	agentID := c.GetHeader(headerAgent)
	wallet := c.GetHeader(headerWallet)
	if agentID == "" || wallet == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{
			"code":    "UNAUTHENTICATED",
			"message": "X-Agent-Id and X-Wallet headers are required",
		}})
		return "", false
	}
	if _, err := s.casino.Register(c.Request.Context(), agentID, wallet, c.GetHeader(headerName)); err != nil {
		s.fail(c, err)
		return "", false
	}
	return agentID, true
}

func (s *Server) agent(c *gin.Context) string {
	return c.GetString(ctxAgent)
}
