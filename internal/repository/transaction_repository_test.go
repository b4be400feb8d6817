package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
	"github.com/nido-app/nido-backend/internal/testutil"
)

// TestTransactionRepository_SequenceAndVersion tests the ledger_version row.
//
// WHY: The per-user sequence is the tie-break that makes aggregation
// deterministic, and the version is what invalidates derived-holdings
// caches. Both live in one row claimed inside the append transaction; if
// either stops moving, stale holdings or ambiguous ordering follow.
func TestTransactionRepository_SequenceAndVersion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	userID := testutil.MakeUserID()

	t.Run("fresh user starts at version zero", func(t *testing.T) {
		version, err := repo.GetLedgerVersion(userID)
		if err != nil {
			t.Fatalf("GetLedgerVersion() returned unexpected error: %v", err)
		}
		if version != 0 {
			t.Errorf("Expected version 0, got %d", version)
		}
	})

	t.Run("every mutation moves the version", func(t *testing.T) {
		tx := testutil.NewTransaction(userID).Build(t, db)

		v1, _ := repo.GetLedgerVersion(userID)
		if v1 != 1 {
			t.Fatalf("Expected version 1 after append, got %d", v1)
		}

		tx.Units = decimal.NewFromInt(5)
		if err := repo.UpdateTransaction(context.Background(), tx); err != nil {
			t.Fatalf("UpdateTransaction() returned unexpected error: %v", err)
		}
		v2, _ := repo.GetLedgerVersion(userID)
		if v2 != 2 {
			t.Fatalf("Expected version 2 after update, got %d", v2)
		}

		if err := repo.DeleteTransaction(context.Background(), userID, tx.ID); err != nil {
			t.Fatalf("DeleteTransaction() returned unexpected error: %v", err)
		}
		v3, _ := repo.GetLedgerVersion(userID)
		if v3 != 3 {
			t.Fatalf("Expected version 3 after delete, got %d", v3)
		}
	})

	t.Run("sequence keeps climbing across deletes", func(t *testing.T) {
		first := testutil.NewTransaction(userID).Build(t, db)
		if err := repo.DeleteTransaction(context.Background(), userID, first.ID); err != nil {
			t.Fatalf("DeleteTransaction() returned unexpected error: %v", err)
		}

		second := testutil.NewTransaction(userID).Build(t, db)
		if second.Seq <= first.Seq {
			t.Errorf("Expected sequence to keep climbing, got %d after %d", second.Seq, first.Seq)
		}
	})
}

// TestTransactionRepository_RoundTrip tests persistence fidelity.
//
// WHY: Decimals are stored as TEXT; any lossy conversion on the way in or
// out would quietly corrupt cost bases. A value with many fractional digits
// must come back identical.
func TestTransactionRepository_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	userID := testutil.MakeUserID()

	stored := testutil.NewTransaction(userID).
		WithUnits("0.123456789").
		WithPricePerUnit("12500.000001").
		WithFees("1.99").
		WithMilestone("first-bike").
		Build(t, db)

	loaded, err := repo.GetTransaction(stored.ID)
	if err != nil {
		t.Fatalf("GetTransaction() returned unexpected error: %v", err)
	}

	if !loaded.Units.Equal(decimal.RequireFromString("0.123456789")) {
		t.Errorf("Units lost precision: %s", loaded.Units)
	}
	if !loaded.PricePerUnit.Equal(decimal.RequireFromString("12500.000001")) {
		t.Errorf("PricePerUnit lost precision: %s", loaded.PricePerUnit)
	}
	if !loaded.TotalAmount.Equal(stored.TotalAmount) {
		t.Errorf("TotalAmount changed: %s vs %s", loaded.TotalAmount, stored.TotalAmount)
	}
	if loaded.MilestoneTag != "first-bike" {
		t.Errorf("Expected milestone tag, got %q", loaded.MilestoneTag)
	}
	if loaded.Seq != stored.Seq {
		t.Errorf("Expected seq %d, got %d", stored.Seq, loaded.Seq)
	}
}

// TestTransactionRepository_Scoping tests user scoping on reads and writes.
func TestTransactionRepository_Scoping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	alice := testutil.MakeUserID()
	bob := testutil.MakeUserID()

	tx := testutil.NewTransaction(alice).Build(t, db)
	testutil.NewTransaction(bob).Build(t, db)

	t.Run("listing is scoped to one user", func(t *testing.T) {
		listed, err := repo.GetTransactionsForUser(alice, model.TransactionFilter{})
		if err != nil {
			t.Fatalf("GetTransactionsForUser() returned unexpected error: %v", err)
		}
		if len(listed) != 1 {
			t.Fatalf("Expected 1 transaction for alice, got %d", len(listed))
		}
	})

	t.Run("delete requires the owning user", func(t *testing.T) {
		err := repo.DeleteTransaction(context.Background(), bob, tx.ID)
		if !errors.Is(err, apperrors.ErrTransactionNotFound) {
			t.Fatalf("Expected ErrTransactionNotFound for foreign delete, got %v", err)
		}
	})

	t.Run("ListUserIDs sees every ledger", func(t *testing.T) {
		userIDs, err := repo.ListUserIDs()
		if err != nil {
			t.Fatalf("ListUserIDs() returned unexpected error: %v", err)
		}
		if len(userIDs) != 2 {
			t.Errorf("Expected 2 users, got %d", len(userIDs))
		}
	})

	t.Run("missing transaction yields the sentinel", func(t *testing.T) {
		_, err := repo.GetTransaction(testutil.MakeID())
		if !errors.Is(err, apperrors.ErrTransactionNotFound) {
			t.Fatalf("Expected ErrTransactionNotFound, got %v", err)
		}
	})
}
