package dto

import "encoding/json"

// SyncPullRequest asks for everything changed after LastSyncTimestamp.
// Hashes, when supplied, lets the server skip records the client already holds
// unchanged despite a bumped timestamp.
type SyncPullRequest struct {
	LastSyncTimestamp int64             `json:"lastSyncTimestamp"`
	Hashes            map[string]string `json:"hashes,omitempty"`
}

type AccountPullResponse struct {
	Records    []AccountRecord `json:"records"`
	ServerTime int64           `json:"serverTime"`
}

type CategoryPullResponse struct {
	Records    []CategoryRecord `json:"records"`
	ServerTime int64            `json:"serverTime"`
}

type TransactionPullResponse struct {
	Records    []TransactionRecord `json:"records"`
	ServerTime int64               `json:"serverTime"`
}

type AccountPushRequest struct {
	Records []AccountRecord `json:"records"`
}

type CategoryPushRequest struct {
	Records []CategoryRecord `json:"records"`
}

type TransactionPushRequest struct {
	Records []TransactionRecord `json:"records"`
}

// SyncRecordError reports a per-record hard failure in an entity push.
type SyncRecordError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// SyncPushResult reports per-record outcomes of a last-writer-wins push.
// Skipped records lost the timestamp comparison and the server copy stands;
// rejected records failed outright (malformed or a storage error) and should
// be retried or repaired client-side.
type SyncPushResult struct {
	Accepted []string          `json:"accepted"`
	Skipped  []string          `json:"skipped"`
	Rejected []SyncRecordError `json:"rejected"`
}

const (
	SyncOpCreate = "CREATE"
	SyncOpUpdate = "UPDATE"
	SyncOpDelete = "DELETE"
)

const (
	SyncResourceAccount     = "account"
	SyncResourceCategory    = "category"
	SyncResourceTransaction = "transaction"
)

type SyncOperation struct {
	Type           string          `json:"type"`
	Resource       string          `json:"resource"`
	Data           json.RawMessage `json:"data"`
	LocalTimestamp int64           `json:"localTimestamp"`
	OperationID    string          `json:"operationId"`
}

type SyncOperationsRequest struct {
	Operations []SyncOperation `json:"operations"`
}

type SyncConflict struct {
	OperationID  string      `json:"operationId"`
	Resource     string      `json:"resource"`
	ServerRecord interface{} `json:"serverRecord"`
}

type SyncRejection struct {
	OperationID string `json:"operationId"`
	Error       string `json:"error"`
}

// SyncOperationsResult places every pushed operation in exactly one of the
// three sets: accepted (applied), rejected (hard error), conflicts (server
// version won).
type SyncOperationsResult struct {
	Accepted  []string        `json:"accepted"`
	Rejected  []SyncRejection `json:"rejected"`
	Conflicts []SyncConflict  `json:"conflicts"`
}

type SyncChangesResponse struct {
	Accounts     []AccountRecord     `json:"accounts"`
	Categories   []CategoryRecord    `json:"categories"`
	Transactions []TransactionRecord `json:"transactions"`
	ServerTime   int64               `json:"serverTime"`
}

type SyncStatusResponse struct {
	Accounts     int64 `json:"accounts"`
	Categories   int64 `json:"categories"`
	Transactions int64 `json:"transactions"`
	ServerTime   int64 `json:"serverTime"`
}
