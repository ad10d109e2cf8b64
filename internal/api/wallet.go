package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
)

type txnBody struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Currency  string    `json:"currency"`
	Amount    string    `json:"amount"`
	Balance   string    `json:"balance"`
	Reference string    `json:"reference,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newTxnBody(t store.Transaction) txnBody {
	return txnBody{
		ID:        t.ID.String(),
		Kind:      string(t.Kind),
		Currency:  t.Currency,
		Amount:    money.Format(t.Amount),
		Balance:   money.Format(t.Balance),
		Reference: t.Reference,
		Note:      t.Note,
		CreatedAt: t.CreatedAt,
	}
}

func (s *Server) handleBalances(c *gin.Context) {
	balances, err := s.casino.Balances(c.Request.Context(), s.agent(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make(map[string]string, len(balances))
	for currency, amount := range balances {
		out[currency] = money.Format(amount)
	}
	c.JSON(http.StatusOK, gin.H{"agent": s.agent(c), "balances": out})
}

func (s *Server) handleTransactions(c *gin.Context) {
	currency := c.Query("currency")
	if currency == "" {
		s.invalid(c, "currency query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	txns, err := s.casino.History(c.Request.Context(), s.agent(c), currency, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]txnBody, 0, len(txns))
	for _, t := range txns {
		out = append(out, newTxnBody(t))
	}
	c.JSON(http.StatusOK, gin.H{"agent": s.agent(c), "transactions": out})
}

func (s *Server) handleDeposit(c *gin.Context) {
	var req struct {
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	amount, ok := s.parseAmount(c, req.Amount)
	if !ok {
		return
	}
	txn, err := s.casino.Deposit(c.Request.Context(), s.agent(c), req.Currency, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": newTxnBody(txn)})
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req struct {
		Currency    string `json:"currency"`
		Amount      string `json:"amount"`
		Destination string `json:"destination"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, "invalid request body")
		return
	}
	amount, ok := s.parseAmount(c, req.Amount)
	if !ok {
		return
	}
	txn, err := s.casino.Withdraw(c.Request.Context(), s.agent(c), req.Currency, amount, req.Destination)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": newTxnBody(txn)})
}

func (s *Server) handleAudit(c *gin.Context) {
	currency := c.Query("currency")
	if currency == "" {
		s.invalid(c, "currency query parameter is required")
		return
	}
	audit, err := s.casino.Audit(c.Request.Context(), currency)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"currency":     audit.Currency,
		"deposits":     money.Format(audit.Deposits),
		"withdrawals":  money.Format(audit.Withdrawals),
		"wallets":      money.Format(audit.Wallets),
		"table_chips":  money.Format(audit.TableChips),
		"duel_escrows": money.Format(audit.DuelEscrows),
		"rake":         money.Format(audit.Rake),
		"difference":   money.Format(audit.Difference),
		"balanced":     audit.Balanced,
	})
}

func (s *Server) parseAmount(c *gin.Context, raw string) (decimal.Decimal, bool) {
	if raw == "" {
		s.invalid(c, "amount is required")
		return decimal.Zero, false
	}
	amount, err := money.Parse(raw)
	if err != nil {
		s.invalid(c, err.Error())
		return decimal.Zero, false
	}
	return amount, true
}
