package dto

// AccountRequest carries client-editable account fields for create and update.
type AccountRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Balance        float64 `json:"balance"`
	Type           string  `json:"type"`
	Icon           string  `json:"icon"`
	Color          string  `json:"color"`
	IncludeInTotal *bool   `json:"includeInTotal"`
	CreditLimit    float64 `json:"creditLimit"`
	LastModifiedBy string  `json:"lastModifiedBy"`
}

// AccountRecord is the wire shape of an account, shared by the CRUD and sync
// surfaces. Hash is only populated on sync records.
type AccountRecord struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Balance        float64 `json:"balance"`
	Type           string  `json:"type"`
	Icon           string  `json:"icon"`
	Color          string  `json:"color"`
	IncludeInTotal bool    `json:"includeInTotal"`
	CreditLimit    float64 `json:"creditLimit"`
	IsDeleted      bool    `json:"isDeleted"`
	UpdatedAt      int64   `json:"updatedAt"`
	SyncVersion    int64   `json:"syncVersion"`
	LastModifiedBy string  `json:"lastModifiedBy"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	Hash           string  `json:"hash,omitempty"`
}

// AccountBalanceResponse is the on-demand aggregation result for one account.
// Zero matching transactions yields all-zero fields, never an error.
type AccountBalanceResponse struct {
	Balance       float64 `json:"balance"`
	TotalIncoming float64 `json:"totalIncoming"`
	TotalOutgoing float64 `json:"totalOutgoing"`
}
