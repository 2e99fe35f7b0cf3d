package dto

type TransactionRequest struct {
	TransactionDate string  `json:"transactionDate"`
	FromAccount     string  `json:"fromAccount"`
	ToAccount       *string `json:"toAccount"`
	Category        *string `json:"category"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description"`
	Notes           string  `json:"notes"`
	Type            string  `json:"type"`
	LastModifiedBy  string  `json:"lastModifiedBy"`
}

type TransactionRecord struct {
	ID              string  `json:"id"`
	TransactionDate string  `json:"transactionDate"`
	FromAccount     string  `json:"fromAccount"`
	ToAccount       *string `json:"toAccount"`
	Category        *string `json:"category"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description"`
	Notes           string  `json:"notes"`
	Type            string  `json:"type"`
	IsDeleted       bool    `json:"isDeleted"`
	DeletedAt       *string `json:"deletedAt"`
	UpdatedAt       int64   `json:"updatedAt"`
	SyncVersion     int64   `json:"syncVersion"`
	LastModifiedBy  string  `json:"lastModifiedBy"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	Hash            string  `json:"hash,omitempty"`
}
