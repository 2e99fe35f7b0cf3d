package service

import (
	"context"
	"encoding/json"
	"testing"

	"fintrack/internal/dto"
	"fintrack/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestSyncService() (*SyncService, *memAccountRepo, *memCategoryRepo, *memTransactionRepo) {
	accounts := newMemAccountRepo()
	categories := newMemCategoryRepo()
	transactions := newMemTransactionRepo()
	repairs := newMemRepairRepo()
	maintainer := NewBalanceMaintainer(accounts, categories, transactions, repairs, zap.NewNop())
	s := NewSyncService(accounts, categories, transactions, maintainer, nil, zap.NewNop())
	return s, accounts, categories, transactions
}

func TestPullAccountsFiltersByTimestamp(t *testing.T) {
	s, accounts, _, _ := newTestSyncService()
	stale := seedTestAccount(t, accounts, 0)
	fresh := seedTestAccount(t, accounts, 0)
	setAccountUpdatedAt(t, accounts, stale.ID, 1000)
	setAccountUpdatedAt(t, accounts, fresh.ID, 5000)

	resp, err := s.PullAccounts(context.Background(), &dto.SyncPullRequest{LastSyncTimestamp: 2000})
	if err != nil {
		t.Fatalf("PullAccounts: %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(resp.Records))
	}
	if resp.Records[0].ID != fresh.ID.String() {
		t.Errorf("pulled %s, want %s", resp.Records[0].ID, fresh.ID)
	}
	if resp.Records[0].Hash == "" {
		t.Error("pulled record missing content hash")
	}
	if resp.ServerTime == 0 {
		t.Error("serverTime not set")
	}
}

func TestPullAccountsSkipsHashMatches(t *testing.T) {
	s, accounts, _, _ := newTestSyncService()
	account := seedTestAccount(t, accounts, 0)
	setAccountUpdatedAt(t, accounts, account.ID, 5000)

	stored, err := accounts.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}

	resp, err := s.PullAccounts(context.Background(), &dto.SyncPullRequest{
		LastSyncTimestamp: 2000,
		Hashes:            map[string]string{account.ID.String(): hashAccount(stored)},
	})
	if err != nil {
		t.Fatalf("PullAccounts: %v", err)
	}
	if len(resp.Records) != 0 {
		t.Errorf("got %d records, want 0 when hash matches", len(resp.Records))
	}
}

func TestPushAccountsLastWriterWins(t *testing.T) {
	tests := []struct {
		name            string
		serverUpdatedAt int64
		clientUpdatedAt int64
		changeContent   bool
		wantAccepted    bool
	}{
		{"newer client wins", 1000, 2000, true, true},
		{"older client skipped", 2000, 1000, true, false},
		{"tie with different content wins", 1000, 1000, true, true},
		{"tie with same content skipped", 1000, 1000, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, accounts, _, _ := newTestSyncService()
			server := seedTestAccount(t, accounts, 0)
			setAccountUpdatedAt(t, accounts, server.ID, tt.serverUpdatedAt)

			stored, err := accounts.GetByID(context.Background(), server.ID)
			if err != nil {
				t.Fatalf("get account: %v", err)
			}
			rec := accountToRecord(stored, false)
			rec.UpdatedAt = tt.clientUpdatedAt
			if tt.changeContent {
				rec.Name = "renamed by client"
			}

			result, err := s.PushAccounts(context.Background(), &dto.AccountPushRequest{Records: []dto.AccountRecord{rec}})
			if err != nil {
				t.Fatalf("PushAccounts: %v", err)
			}

			if tt.wantAccepted {
				if len(result.Accepted) != 1 || len(result.Skipped) != 0 {
					t.Fatalf("accepted=%v skipped=%v, want record accepted", result.Accepted, result.Skipped)
				}
				after, _ := accounts.GetByID(context.Background(), server.ID)
				if after.Name != "renamed by client" {
					t.Errorf("server record not overwritten: %q", after.Name)
				}
				if after.SyncVersion != stored.SyncVersion+1 {
					t.Errorf("syncVersion = %d, want %d", after.SyncVersion, stored.SyncVersion+1)
				}
			} else {
				if len(result.Skipped) != 1 || len(result.Accepted) != 0 {
					t.Fatalf("accepted=%v skipped=%v, want record skipped", result.Accepted, result.Skipped)
				}
				after, _ := accounts.GetByID(context.Background(), server.ID)
				if after.Name != stored.Name {
					t.Errorf("skipped push still changed server record: %q", after.Name)
				}
			}
		})
	}
}

func TestPushAccountsInsertsUnknown(t *testing.T) {
	s, accounts, _, _ := newTestSyncService()

	rec := dto.AccountRecord{
		ID:        uuid.New().String(),
		Name:      "imported",
		Type:      string(models.AccountTypeDebit),
		UpdatedAt: 1234,
	}
	result, err := s.PushAccounts(context.Background(), &dto.AccountPushRequest{Records: []dto.AccountRecord{rec}})
	if err != nil {
		t.Fatalf("PushAccounts: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("accepted = %v, want the new record", result.Accepted)
	}

	stored, err := accounts.GetByID(context.Background(), uuid.MustParse(rec.ID))
	if err != nil {
		t.Fatalf("inserted record not found: %v", err)
	}
	if stored.SyncVersion != 1 {
		t.Errorf("syncVersion = %d, want 1", stored.SyncVersion)
	}
}

func TestPushAccountsMalformedRecordIsolated(t *testing.T) {
	s, accounts, _, _ := newTestSyncService()

	good := dto.AccountRecord{ID: uuid.New().String(), Name: "ok", Type: string(models.AccountTypeDebit), UpdatedAt: 10}
	bad := dto.AccountRecord{ID: "not-a-uuid", Name: "broken", Type: string(models.AccountTypeDebit)}
	result, err := s.PushAccounts(context.Background(), &dto.AccountPushRequest{Records: []dto.AccountRecord{bad, good}})
	if err != nil {
		t.Fatalf("PushAccounts: %v", err)
	}
	if len(result.Accepted) != 1 || len(result.Rejected) != 1 {
		t.Fatalf("accepted=%v rejected=%v, want one of each", result.Accepted, result.Rejected)
	}
	if len(result.Skipped) != 0 {
		t.Errorf("skipped=%v, want hard failures reported as rejected, not skipped", result.Skipped)
	}
	if result.Rejected[0].ID != bad.ID || result.Rejected[0].Error == "" {
		t.Errorf("rejection = %+v, want id %q with an error message", result.Rejected[0], bad.ID)
	}
	if _, err := accounts.GetByID(context.Background(), uuid.MustParse(good.ID)); err != nil {
		t.Errorf("good record not applied: %v", err)
	}
}

func TestPushTransactionsMaintainsBalances(t *testing.T) {
	s, accounts, _, transactions := newTestSyncService()
	account := seedTestAccount(t, accounts, 0)

	tx := newTestTransaction(models.TransactionTypeIncome, account.ID, nil, nil, 120)
	tx.UpdatedAt = 1000
	rec := transactionToRecord(tx, false)

	result, err := s.PushTransactions(context.Background(), &dto.TransactionPushRequest{Records: []dto.TransactionRecord{rec}})
	if err != nil {
		t.Fatalf("PushTransactions: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("accepted = %v, want the record", result.Accepted)
	}
	if _, err := transactions.GetByID(context.Background(), tx.ID); err != nil {
		t.Fatalf("pushed transaction not stored: %v", err)
	}
	if got := accountBalance(t, accounts, account.ID); got != 120 {
		t.Errorf("balance = %v, want 120 after pushed income", got)
	}
}

func TestPushTransactionsSoftDeleteReversesBalance(t *testing.T) {
	s, accounts, _, transactions := newTestSyncService()
	account := seedTestAccount(t, accounts, 0)

	tx := newTestTransaction(models.TransactionTypeIncome, account.ID, nil, nil, 120)
	tx.UpdatedAt = 1000
	first := transactionToRecord(tx, false)
	if _, err := s.PushTransactions(context.Background(), &dto.TransactionPushRequest{Records: []dto.TransactionRecord{first}}); err != nil {
		t.Fatalf("initial push: %v", err)
	}

	second := first
	second.IsDeleted = true
	second.UpdatedAt = 2000
	result, err := s.PushTransactions(context.Background(), &dto.TransactionPushRequest{Records: []dto.TransactionRecord{second}})
	if err != nil {
		t.Fatalf("delete push: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("accepted = %v, want the deletion", result.Accepted)
	}

	stored, err := transactions.GetByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("record hard-deleted by sync: %v", err)
	}
	if !stored.IsDeleted {
		t.Error("record not marked deleted")
	}
	if got := accountBalance(t, accounts, account.ID); got != 0 {
		t.Errorf("balance = %v, want 0 after synced deletion", got)
	}
}

func TestPushOperationsDisjointOutcomes(t *testing.T) {
	s, accounts, _, _ := newTestSyncService()
	existing := seedTestAccount(t, accounts, 0)
	setAccountUpdatedAt(t, accounts, existing.ID, 5000)

	stored, _ := accounts.GetByID(context.Background(), existing.ID)
	existingRec := accountToRecord(stored, false)

	newRec := dto.AccountRecord{ID: uuid.New().String(), Name: "fresh", Type: string(models.AccountTypeDebit), UpdatedAt: 100}
	missingRec := dto.AccountRecord{ID: uuid.New().String(), Name: "ghost", Type: string(models.AccountTypeDebit), UpdatedAt: 100}

	ops := []dto.SyncOperation{
		{Type: dto.SyncOpCreate, Resource: dto.SyncResourceAccount, Data: mustJSON(t, newRec), LocalTimestamp: 100, OperationID: "op-create"},
		{Type: dto.SyncOpCreate, Resource: dto.SyncResourceAccount, Data: mustJSON(t, existingRec), LocalTimestamp: 100, OperationID: "op-create-collision"},
		{Type: dto.SyncOpUpdate, Resource: dto.SyncResourceAccount, Data: mustJSON(t, existingRec), LocalTimestamp: 1000, OperationID: "op-update-stale"},
		{Type: dto.SyncOpUpdate, Resource: dto.SyncResourceAccount, Data: mustJSON(t, missingRec), LocalTimestamp: 9000, OperationID: "op-update-missing"},
		{Type: dto.SyncOpDelete, Resource: "martian", Data: mustJSON(t, existingRec), LocalTimestamp: 9000, OperationID: "op-bad-resource"},
	}

	result := s.PushOperations(context.Background(), &dto.SyncOperationsRequest{Operations: ops})

	if got := opIDs(result.Accepted); !got["op-create"] || len(got) != 1 {
		t.Errorf("accepted = %v, want only op-create", result.Accepted)
	}
	conflicts := map[string]bool{}
	for _, c := range result.Conflicts {
		conflicts[c.OperationID] = true
		if c.ServerRecord == nil {
			t.Errorf("conflict %s missing server record", c.OperationID)
		}
	}
	if !conflicts["op-create-collision"] || !conflicts["op-update-stale"] || len(conflicts) != 2 {
		t.Errorf("conflicts = %v, want collision and stale update", result.Conflicts)
	}
	rejected := map[string]bool{}
	for _, r := range result.Rejected {
		rejected[r.OperationID] = true
		if r.Error == "" {
			t.Errorf("rejection %s missing error message", r.OperationID)
		}
	}
	if !rejected["op-update-missing"] || !rejected["op-bad-resource"] || len(rejected) != 2 {
		t.Errorf("rejected = %v, want missing update and bad resource", result.Rejected)
	}
}

func TestPushOperationsDeleteConflictLeavesRecord(t *testing.T) {
	s, accounts, _, _ := newTestSyncService()
	account := seedTestAccount(t, accounts, 0)
	setAccountUpdatedAt(t, accounts, account.ID, 5000)

	op := dto.SyncOperation{
		Type:           dto.SyncOpDelete,
		Resource:       dto.SyncResourceAccount,
		Data:           mustJSON(t, map[string]string{"id": account.ID.String()}),
		LocalTimestamp: 1000,
		OperationID:    "op-stale-delete",
	}
	result := s.PushOperations(context.Background(), &dto.SyncOperationsRequest{Operations: []dto.SyncOperation{op}})

	if len(result.Conflicts) != 1 {
		t.Fatalf("conflicts = %v, want the stale delete", result.Conflicts)
	}
	stored, err := accounts.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if stored.IsDeleted {
		t.Error("conflicting delete still removed the record")
	}
}

func TestPushOperationsDeleteAccepted(t *testing.T) {
	s, accounts, _, _ := newTestSyncService()
	account := seedTestAccount(t, accounts, 0)
	setAccountUpdatedAt(t, accounts, account.ID, 1000)

	op := dto.SyncOperation{
		Type:           dto.SyncOpDelete,
		Resource:       dto.SyncResourceAccount,
		Data:           mustJSON(t, map[string]string{"id": account.ID.String()}),
		LocalTimestamp: 5000,
		OperationID:    "op-delete",
	}
	result := s.PushOperations(context.Background(), &dto.SyncOperationsRequest{Operations: []dto.SyncOperation{op}})

	if len(result.Accepted) != 1 {
		t.Fatalf("accepted = %v, want the delete", result.Accepted)
	}
	stored, err := accounts.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("sync hard-deleted the record: %v", err)
	}
	if !stored.IsDeleted {
		t.Error("record not soft-deleted")
	}
}

func TestChangesCollectsAllEntities(t *testing.T) {
	s, accounts, categories, transactions := newTestSyncService()
	account := seedTestAccount(t, accounts, 0)
	setAccountUpdatedAt(t, accounts, account.ID, 5000)
	category := seedTestCategory(t, categories, "food", nil)
	if err := categories.SetCounters(context.Background(), category.ID, 0, 0, 0, 0, 5000); err != nil {
		t.Fatalf("bump category: %v", err)
	}
	tx := newTestTransaction(models.TransactionTypeExpense, account.ID, nil, nil, 5)
	tx.UpdatedAt = 5000
	if err := transactions.Create(context.Background(), tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	resp, err := s.Changes(context.Background(), 2000)
	if err != nil {
		t.Fatalf("Changes: %v", err)
	}
	if len(resp.Accounts) != 1 || len(resp.Categories) != 1 || len(resp.Transactions) != 1 {
		t.Errorf("changes = %d/%d/%d, want 1/1/1", len(resp.Accounts), len(resp.Categories), len(resp.Transactions))
	}
}

func TestStatusCountsActiveRecords(t *testing.T) {
	s, accounts, categories, transactions := newTestSyncService()
	active := seedTestAccount(t, accounts, 0)
	deleted := seedTestAccount(t, accounts, 0)
	if err := accounts.SoftDelete(context.Background(), deleted.ID, 10); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	seedTestCategory(t, categories, "food", nil)
	tx := newTestTransaction(models.TransactionTypeExpense, active.ID, nil, nil, 5)
	if err := transactions.Create(context.Background(), tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	resp, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if resp.Accounts != 1 {
		t.Errorf("accounts = %d, want 1 (deleted excluded)", resp.Accounts)
	}
	if resp.Categories != 1 || resp.Transactions != 1 {
		t.Errorf("categories/transactions = %d/%d, want 1/1", resp.Categories, resp.Transactions)
	}
	if resp.ServerTime == 0 {
		t.Error("serverTime not set")
	}
}

func TestPushCategoriesRejectsParentCycle(t *testing.T) {
	s, _, categories, _ := newTestSyncService()
	root := seedTestCategory(t, categories, "root", nil)
	child := seedTestCategory(t, categories, "child", &root.ID)

	rec := categoryToRecord(root, false)
	parent := child.ID.String()
	rec.Parent = &parent
	rec.UpdatedAt = nowMillis() + 1000

	result, err := s.PushCategories(context.Background(), &dto.CategoryPushRequest{Records: []dto.CategoryRecord{rec}})
	if err != nil {
		t.Fatalf("PushCategories: %v", err)
	}
	if len(result.Rejected) != 1 || len(result.Accepted) != 0 {
		t.Fatalf("accepted=%v rejected=%v, want the cycle-closing record rejected", result.Accepted, result.Rejected)
	}
	server := categoryState(t, categories, root.ID)
	if server.ParentID != nil {
		t.Errorf("cycle-closing parent was persisted")
	}
}

func TestPushCategoriesRejectsSelfParent(t *testing.T) {
	s, _, categories, _ := newTestSyncService()
	root := seedTestCategory(t, categories, "root", nil)

	rec := categoryToRecord(root, false)
	parent := root.ID.String()
	rec.Parent = &parent
	rec.UpdatedAt = nowMillis() + 1000

	result, err := s.PushCategories(context.Background(), &dto.CategoryPushRequest{Records: []dto.CategoryRecord{rec}})
	if err != nil {
		t.Fatalf("PushCategories: %v", err)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("rejected=%v, want the self-parent record rejected", result.Rejected)
	}
}

func TestPushOperationsCategoryCycleRejected(t *testing.T) {
	s, _, categories, _ := newTestSyncService()
	root := seedTestCategory(t, categories, "root", nil)
	child := seedTestCategory(t, categories, "child", &root.ID)

	rec := categoryToRecord(root, false)
	parent := child.ID.String()
	rec.Parent = &parent

	result := s.PushOperations(context.Background(), &dto.SyncOperationsRequest{Operations: []dto.SyncOperation{{
		Type:           dto.SyncOpUpdate,
		Resource:       dto.SyncResourceCategory,
		Data:           mustJSON(t, rec),
		LocalTimestamp: nowMillis() + 1000,
		OperationID:    "op-cycle",
	}}})
	if len(result.Rejected) != 1 || result.Rejected[0].OperationID != "op-cycle" {
		t.Fatalf("rejected=%v, want op-cycle rejected", result.Rejected)
	}
	server := categoryState(t, categories, root.ID)
	if server.ParentID != nil {
		t.Errorf("cycle-closing parent was persisted")
	}
}

func TestPushCategoriesSoftDeleteUpdatesAncestorTotals(t *testing.T) {
	s, accounts, categories, transactions := newTestSyncService()
	account := seedTestAccount(t, accounts, 0)
	root := seedTestCategory(t, categories, "root", nil)
	child := seedTestCategory(t, categories, "child", &root.ID)

	tx := newTestTransaction(models.TransactionTypeExpense, account.ID, nil, &child.ID, 30)
	if err := transactions.Create(context.Background(), tx); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	s.maintainer.OnTransactionCreated(context.Background(), tx)

	server := categoryState(t, categories, child.ID)
	rec := categoryToRecord(server, false)
	rec.IsDeleted = true
	rec.UpdatedAt = server.UpdatedAt + 1000

	result, err := s.PushCategories(context.Background(), &dto.CategoryPushRequest{Records: []dto.CategoryRecord{rec}})
	if err != nil {
		t.Fatalf("PushCategories: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("accepted=%v, want the deletion applied", result.Accepted)
	}
	rootState := categoryState(t, categories, root.ID)
	if rootState.Balance != 0 || rootState.TransactionCount != 0 {
		t.Errorf("root totals = %v/%d, want 0/0 after subtree deletion", rootState.Balance, rootState.TransactionCount)
	}
}

func TestPushCategoriesInsertZeroesCounters(t *testing.T) {
	s, _, categories, _ := newTestSyncService()

	rec := dto.CategoryRecord{
		ID:               uuid.New().String(),
		Name:             "imported",
		Type:             string(models.CategoryTypeExpense),
		Balance:          999,
		TransactionCount: 9,
		UpdatedAt:        1000,
	}
	result, err := s.PushCategories(context.Background(), &dto.CategoryPushRequest{Records: []dto.CategoryRecord{rec}})
	if err != nil {
		t.Fatalf("PushCategories: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("accepted=%v, want the insert applied", result.Accepted)
	}
	stored := categoryState(t, categories, uuid.MustParse(rec.ID))
	if stored.Balance != 0 || stored.TransactionCount != 0 {
		t.Errorf("stored counters = %v/%d, want zeroed on insert", stored.Balance, stored.TransactionCount)
	}
}

func setAccountUpdatedAt(t *testing.T, repo *memAccountRepo, id uuid.UUID, updatedAt int64) {
	t.Helper()
	account, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	account.UpdatedAt = updatedAt
	if err := repo.Update(context.Background(), account); err != nil {
		t.Fatalf("update account: %v", err)
	}
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func opIDs(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
