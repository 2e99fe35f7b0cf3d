package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RepairEntityAccount  = "account"
	RepairEntityCategory = "category"
)

// RepairItem marks an account or category whose maintained counters could not
// be corrected in-request and are waiting for the background repair worker.
type RepairItem struct {
	ID         int64     `db:"id"`
	EntityType string    `db:"entity_type"`
	EntityID   uuid.UUID `db:"entity_id"`
	Attempts   int64     `db:"attempts"`
	LastError  string    `db:"last_error"`
	EnqueuedAt time.Time `db:"enqueued_at"`
}
