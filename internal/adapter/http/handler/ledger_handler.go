package handler

import (
	"strconv"

	"settlement-ledger/internal/adapter/http/dto"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles read-only ledger endpoints.
type LedgerHandler struct {
	ledger ports.LedgerReader
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger ports.LedgerReader) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// GetBalance handles GET /api/v1/wallets/:name/balance.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	name := c.Param("name")

	balance, err := h.ledger.WalletBalance(name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Wallet:    name,
		Available: balance.Available,
		Hold:      balance.Hold,
	})
}

// ListTransactions handles GET /api/v1/transactions.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	txs := h.ledger.Transactions()

	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, dto.FromTransaction(tx))
	}
	response.OK(c, out)
}

// GetTransaction handles GET /api/v1/transactions/:id.
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("transaction id must be an integer"))
		return
	}

	tx, err := h.ledger.Transaction(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromTransaction(tx))
}

// CheckIntegrity handles GET /api/v1/ledger/integrity.
func (h *LedgerHandler) CheckIntegrity(c *gin.Context) {
	if err := h.ledger.CheckIntegrity(); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.IntegrityResponse{
		Status:       "consistent",
		Transactions: len(h.ledger.Transactions()),
	})
}
