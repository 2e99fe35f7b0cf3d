package dto

type CategoryRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Icon           string  `json:"icon"`
	Color          string  `json:"color"`
	Type           string  `json:"type"`
	Parent         *string `json:"parent"`
	SortOrder      int64   `json:"order"`
	LastModifiedBy string  `json:"lastModifiedBy"`
}

type CategoryRecord struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	Description            string  `json:"description"`
	Icon                   string  `json:"icon"`
	Color                  string  `json:"color"`
	Type                   string  `json:"type"`
	Parent                 *string `json:"parent"`
	SortOrder              int64   `json:"order"`
	Balance                float64 `json:"balance"`
	DirectBalance          float64 `json:"directBalance"`
	TransactionCount       int64   `json:"transactionCount"`
	DirectTransactionCount int64   `json:"directTransactionCount"`
	IsDeleted              bool    `json:"isDeleted"`
	UpdatedAt              int64   `json:"updatedAt"`
	SyncVersion            int64   `json:"syncVersion"`
	LastModifiedBy         string  `json:"lastModifiedBy"`
	CreatedAt              string  `json:"createdAt,omitempty"`
	Hash                   string  `json:"hash,omitempty"`
}

type Totals struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// CategoryTransactionsResponse reports on-demand totals for one category:
// transactions assigned directly, transactions anywhere in the subtree below
// it, and the two combined.
type CategoryTransactionsResponse struct {
	Direct        Totals `json:"direct"`
	Subcategories Totals `json:"subcategories"`
	All           Totals `json:"all"`
}
