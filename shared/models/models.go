package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ClientStateActive   = "ACTIVE"
	ClientStateInactive = "INACTIVE"
	ClientStateUnknown  = "UNKNOWN"

	AccountStateActive  = "ACTIVE"
	MovementStateActive = "ACTIVE"
)

// Client is owned by the client service. Every mutation of it emits a
// client event; other services only ever see snapshots of it.
type Client struct {
	ID        int64     `json:"id"`
	ClientKey string    `json:"clientKey"`
	Name      string    `json:"name"`
	Gender    string    `json:"gender"`
	Age       int       `json:"age"`
	IDNumber  string    `json:"idNumber"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"createdTimestamp"`
	UpdatedAt time.Time `json:"updatedTimestamp"`
}

// Account holds the denormalized running balance. Balance always equals the
// balance of the account's most recent movement, or the opening balance
// when there are no movements yet.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	AccountType   string          `json:"accountType"`
	ClientKey     string          `json:"clientKey"`
	Balance       decimal.Decimal `json:"balance"`
	State         string          `json:"state"`
	CreatedAt     time.Time       `json:"createdTimestamp"`
	UpdatedAt     time.Time       `json:"updatedTimestamp"`
}

// Movement is an entry appended to an account. Amount is signed: positive
// credits, negative debits. Balance is the account balance right after it.
type Movement struct {
	ID             int64           `json:"id"`
	AccountID      int64           `json:"accountId"`
	MovementNumber int64           `json:"movementNumber"`
	MovementDate   time.Time       `json:"movementDate"`
	MovementType   string          `json:"movementType"`
	Amount         decimal.Decimal `json:"amount"`
	Balance        decimal.Decimal `json:"balance"`
	State          string          `json:"state"`
}
