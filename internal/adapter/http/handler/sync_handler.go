package handler

import (
	"strconv"

	"settlement-ledger/internal/adapter/http/dto"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// SyncHandler handles reconciliation endpoints.
type SyncHandler struct {
	reconcileSvc ports.ReconciliationService
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(reconcileSvc ports.ReconciliationService) *SyncHandler {
	return &SyncHandler{reconcileSvc: reconcileSvc}
}

// Sync handles POST /api/v1/sync.
func (h *SyncHandler) Sync(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.reconcileSvc.SyncHistory(req.ToHistory()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"status": "synced"})
}

// Confirm handles POST /api/v1/transactions/:id/confirm.
func (h *SyncHandler) Confirm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("transaction id must be an integer"))
		return
	}

	newID, err := h.reconcileSvc.ConfirmTransaction(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.TransferResponse{TransactionID: newID})
}

// Revert handles POST /api/v1/transactions/:id/revert.
func (h *SyncHandler) Revert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("transaction id must be an integer"))
		return
	}

	newID, err := h.reconcileSvc.RevertTransaction(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.TransferResponse{TransactionID: newID})
}
