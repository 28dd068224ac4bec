package domain

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotRecord is a persisted, versioned ledger snapshot. Payload is the
// opaque serialized ledger document; stores never look inside it.
type SnapshotRecord struct {
	ID        uuid.UUID `json:"id"`
	Version   int       `json:"version"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
