package cqrs

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateClientCommand struct {
	ClientKey string
	Name      string
	Gender    string
	Age       int
	IDNumber  string
	Address   string
	Phone     string
	State     string
}

// UpdateClientCommand replaces every profile field of the client identified
// by ClientKey. The key itself is immutable.
type UpdateClientCommand struct {
	ClientKey string
	Name      string
	Gender    string
	Age       int
	IDNumber  string
	Address   string
	Phone     string
	State     string
}

type DeleteClientCommand struct {
	ID int64
}

type CreateAccountCommand struct {
	AccountNumber  string
	AccountType    string
	ClientKey      string
	InitialBalance decimal.Decimal
	State          string
}

type UpdateAccountCommand struct {
	AccountID     int64
	AccountNumber string
	AccountType   string
	ClientKey     string
	State         string
}

type DeleteAccountCommand struct {
	AccountID int64
}

type CreateMovementCommand struct {
	AccountID    int64
	MovementDate time.Time
	MovementType string
	Amount       decimal.Decimal
	State        string
}

// UpdateMovementCommand edits a movement in place. A different AccountID
// re-targets the movement to that account.
type UpdateMovementCommand struct {
	MovementID   int64
	AccountID    int64
	MovementDate time.Time
	MovementType string
	Amount       decimal.Decimal
	State        string
}

type DeleteMovementCommand struct {
	MovementID int64
}
