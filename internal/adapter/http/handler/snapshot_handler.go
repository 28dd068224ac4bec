package handler

import (
	"time"

	"settlement-ledger/internal/adapter/http/dto"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// SnapshotHandler handles snapshot persistence endpoints.
type SnapshotHandler struct {
	snapshotSvc ports.SnapshotService
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(snapshotSvc ports.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotSvc: snapshotSvc}
}

// Save handles POST /api/v1/snapshots.
func (h *SnapshotHandler) Save(c *gin.Context) {
	rec, err := h.snapshotSvc.Save(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.SnapshotResponse{
		SnapshotID: rec.ID.String(),
		Version:    rec.Version,
		Bytes:      len(rec.Payload),
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	})
}
