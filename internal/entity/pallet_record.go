package entity

import (
	"time"

	"github.com/google/uuid"
)

// PalletRecord is one identifier found on one page of one document.
type PalletRecord struct {
	ID           uuid.UUID `json:"id"`
	PalletID     string    `json:"pallet_id"`
	DocumentName string    `json:"document_name"`
	PageNumber   int       `json:"page_number"`
	RunID        uuid.UUID `json:"run_id"`
	Strategy     string    `json:"strategy"`
	CreatedAt    time.Time `json:"created_at"`
}

// Failure describes a file or page that could not be fully processed.
// Page is 0 when the whole file failed.
type Failure struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}
