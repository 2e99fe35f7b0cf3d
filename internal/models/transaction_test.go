package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestAccountDeltas(t *testing.T) {
	from := uuid.New()
	to := uuid.New()

	tests := []struct {
		name     string
		tx       Transaction
		wantFrom float64
		wantTo   float64
	}{
		{"income credits the account", Transaction{Type: TransactionTypeIncome, FromAccountID: from, Amount: 100}, 100, 0},
		{"expense debits the account", Transaction{Type: TransactionTypeExpense, FromAccountID: from, Amount: 40}, -40, 0},
		{"transfer moves the amount", Transaction{Type: TransactionTypeTransfer, FromAccountID: from, ToAccountID: &to, Amount: 25}, -25, 25},
		{"transfer without target only debits", Transaction{Type: TransactionTypeTransfer, FromAccountID: from, Amount: 25}, -25, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltas := tt.tx.AccountDeltas()
			if got := deltas[from]; got != tt.wantFrom {
				t.Errorf("from delta = %v, want %v", got, tt.wantFrom)
			}
			if got := deltas[to]; got != tt.wantTo {
				t.Errorf("to delta = %v, want %v", got, tt.wantTo)
			}
		})
	}
}

func TestAccountDeltasSelfTransfer(t *testing.T) {
	id := uuid.New()
	tx := Transaction{Type: TransactionTypeTransfer, FromAccountID: id, ToAccountID: &id, Amount: 50}

	if got := tx.AccountDeltas()[id]; got != 0 {
		t.Errorf("self transfer delta = %v, want 0", got)
	}
}
