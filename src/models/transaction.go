package models

// Transaction represents a single financial transaction persisted in the store.
// Timestamps are ISO 8601 strings, exactly as stored; parsing is the caller's
// concern. Amount sign encodes direction: positive for income, negative for
// expense. Amount and Currency are stored as received, never converted.
type Transaction struct {
	ID              int64      `json:"id,omitempty"`     // Database primary key
	TransactionTime string     `json:"transaction_time"` // ISO 8601 format timestamp
	Description     NullString `json:"description"`      // Description of the transaction
	Amount          float64    `json:"amount"`           // Positive for income, negative for expense
	Currency        string     `json:"currency"`         // 3-letter currency code (e.g., USD, NZD, KRW)
	Source          string     `json:"source"`           // Where the data came from (e.g., "wise", "anz", "ocr")
	SourceID        NullString `json:"source_id"`        // Unique ID from the source system - dedup key
	Category        NullString `json:"category"`         // Assigned spending category (e.g., "Groceries", "Rent")
	RawData         NullString `json:"raw_data"`         // Original JSON/CSV row data for reference/debugging
	CreatedAt       string     `json:"created_at,omitempty"`
	UpdatedAt       string     `json:"updated_at,omitempty"`
}

// Known transaction sources. The source column is free-form; these are the
// values the ingestion adapters currently emit.
const (
	SourceWise = "wise"
	SourceANZ  = "anz"
	SourceOCR  = "ocr"
)
