package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/shopspring/decimal"
)

func at(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func seedAccount(t *testing.T, s LedgerStore, number string, balance int64) *models.Account {
	t.Helper()
	a := &models.Account{AccountNumber: number, AccountType: "SAVINGS", ClientKey: "CLI-1", Balance: decimal.NewFromInt(balance)}
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func seedMovement(t *testing.T, s LedgerStore, accountID int64, date time.Time, amount int64) *models.Movement {
	t.Helper()
	m := &models.Movement{AccountID: accountID, MovementDate: date, Amount: decimal.NewFromInt(amount)}
	err := s.WithAccountLocks(context.Background(), []int64{accountID}, func(tx LedgerTx) error {
		return tx.InsertMovement(context.Background(), m)
	})
	if err != nil {
		t.Fatalf("InsertMovement: %v", err)
	}
	return m
}

func movementIDs(ms []models.Movement) []int64 {
	ids := make([]int64, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func TestLockOrder(t *testing.T) {
	got := lockOrder([]int64{7, 3, 7, 1})
	if want := []int64{1, 3, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("lockOrder = %v, want %v", got, want)
	}
}

func TestMemoryStoreAccountNumberUnique(t *testing.T) {
	s := NewMemoryStore()
	a := seedAccount(t, s, "100001", 0)
	seedAccount(t, s, "100002", 0)

	dup := &models.Account{AccountNumber: "100001"}
	if err := s.CreateAccount(context.Background(), dup); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("create duplicate: %v", err)
	}

	a.AccountNumber = "100002"
	if err := s.UpdateAccount(context.Background(), a); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("update to taken number: %v", err)
	}
}

func TestMemoryStoreUpdateAccountKeepsBalance(t *testing.T) {
	s := NewMemoryStore()
	a := seedAccount(t, s, "100001", 50)

	a.Balance = decimal.NewFromInt(999)
	a.AccountType = "CHECKING"
	if err := s.UpdateAccount(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetAccount(context.Background(), a.ID)
	if got.AccountType != "CHECKING" || !got.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryStoreMovementOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "100001", 0)

	m1 := seedMovement(t, s, a.ID, at(5), 1)
	m2 := seedMovement(t, s, a.ID, at(1), 1)
	m3 := seedMovement(t, s, a.ID, at(5), 1)
	m4 := seedMovement(t, s, a.ID, at(9), 1)

	desc, _ := s.ListMovementsByAccount(ctx, a.ID)
	if got, want := movementIDs(desc), []int64{m4.ID, m3.ID, m1.ID, m2.ID}; !reflect.DeepEqual(got, want) {
		t.Errorf("descending = %v, want %v", got, want)
	}

	// both bounds are inclusive
	asc, _ := s.ListMovementsInRange(ctx, a.ID, at(1), at(5))
	if got, want := movementIDs(asc), []int64{m2.ID, m1.ID, m3.ID}; !reflect.DeepEqual(got, want) {
		t.Errorf("in range = %v, want %v", got, want)
	}

	err := s.WithAccountLocks(ctx, []int64{a.ID}, func(tx LedgerTx) error {
		latest, err := tx.LatestMovement(ctx, a.ID)
		if err != nil {
			return err
		}
		if latest.ID != m4.ID {
			t.Errorf("latest = %d, want %d", latest.ID, m4.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMemoryStoreRollback(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "100001", 10)
	boom := errors.New("boom")

	err := s.WithAccountLocks(ctx, []int64{a.ID}, func(tx LedgerTx) error {
		m := &models.Movement{AccountID: a.ID, MovementDate: at(1), Amount: decimal.NewFromInt(5), Balance: decimal.NewFromInt(15)}
		if err := tx.InsertMovement(ctx, m); err != nil {
			return err
		}
		if err := tx.SetAccountBalance(ctx, a.ID, decimal.NewFromInt(15)); err != nil {
			return err
		}

		// staged writes are visible inside the transaction
		n, _ := tx.CountMovements(ctx, a.ID)
		acc, _ := tx.GetAccount(ctx, a.ID)
		if n != 1 || !acc.Balance.Equal(decimal.NewFromInt(15)) {
			t.Errorf("staged view: count %d balance %s", n, acc.Balance)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	got, _ := s.GetAccount(ctx, a.ID)
	if !got.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance = %s after rollback", got.Balance)
	}
	if ms, _ := s.ListMovements(ctx); len(ms) != 0 {
		t.Errorf("%d movements after rollback", len(ms))
	}
}

func TestMemoryStoreRejectsUnlockedWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "100001", 10)
	b := seedAccount(t, s, "100002", 10)

	err := s.WithAccountLocks(ctx, []int64{a.ID}, func(tx LedgerTx) error {
		return tx.SetAccountBalance(ctx, b.ID, decimal.Zero)
	})
	if err == nil {
		t.Fatal("write to an unlocked account succeeded")
	}
	got, _ := s.GetAccount(ctx, b.ID)
	if !got.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance = %s", got.Balance)
	}
}

func TestMemoryStoreLockUnknownAccount(t *testing.T) {
	s := NewMemoryStore()
	called := false
	err := s.WithAccountLocks(context.Background(), []int64{42}, func(LedgerTx) error {
		called = true
		return nil
	})
	if !errors.Is(err, apperrors.ErrNotFound) || called {
		t.Errorf("err = %v, called = %v", err, called)
	}
}

func TestMemoryStoreLocksOnlyStoredAccounts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "478758", 100)

	for id := int64(1000); id < 1100; id++ {
		if err := s.WithAccountLocks(ctx, []int64{id}, func(LedgerTx) error { return nil }); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("account %d: err = %v", id, err)
		}
	}
	if err := s.WithAccountLocks(ctx, []int64{a.ID, 5000}, func(LedgerTx) error { return nil }); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("mixed ids: err = %v", err)
	}
	if err := s.WithAccountLocks(ctx, []int64{a.ID}, func(LedgerTx) error { return nil }); err != nil {
		t.Fatalf("stored account: %v", err)
	}

	s.locksMu.Lock()
	n := len(s.accountLocks)
	s.locksMu.Unlock()
	if n != 1 {
		t.Errorf("lock table holds %d entries, want 1", n)
	}
}
