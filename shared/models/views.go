package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedClient is the snapshot of a client's public fields that the ledger
// side keeps in its cache. It is always written as a whole record.
type CachedClient struct {
	ID        int64  `json:"id"`
	ClientKey string `json:"clientKey"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
	IDNumber  string `json:"idNumber"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	State     string `json:"state"`

	// Placeholder marks a synthesized record returned by the best-effort
	// resolution path. Placeholders are never cached.
	Placeholder bool `json:"-"`
}

// ClientToCached projects the owning service's record onto the cached snapshot.
func ClientToCached(c *Client) *CachedClient {
	return &CachedClient{
		ID:        c.ID,
		ClientKey: c.ClientKey,
		Name:      c.Name,
		Gender:    c.Gender,
		Age:       c.Age,
		IDNumber:  c.IDNumber,
		Address:   c.Address,
		Phone:     c.Phone,
		State:     c.State,
	}
}

// AccountView is an account enriched with an advisory client name for
// display. ClientName may come from a placeholder and must not be used for
// validation.
type AccountView struct {
	Account
	ClientName string `json:"clientName"`
}

// Statement is the account statement of one client over a date window.
type Statement struct {
	ReportDate time.Time          `json:"reportDate"`
	Client     StatementClient    `json:"client"`
	Accounts   []StatementAccount `json:"accounts"`
	Summary    StatementSummary   `json:"summary"`
}

type StatementClient struct {
	ClientKey  string `json:"clientKey"`
	ClientName string `json:"clientName"`
}

type StatementAccount struct {
	AccountID      int64               `json:"accountId"`
	AccountNumber  string              `json:"accountNumber"`
	AccountType    string              `json:"accountType"`
	ClientKey      string              `json:"clientKey"`
	InitialBalance decimal.Decimal     `json:"initialBalance"`
	FinalBalance   decimal.Decimal     `json:"finalBalance"`
	Movements      []StatementMovement `json:"movements"`
}

type StatementMovement struct {
	MovementID     int64           `json:"movementId"`
	MovementNumber int64           `json:"movementNumber"`
	MovementDate   time.Time       `json:"movementDate"`
	MovementType   string          `json:"movementType"`
	Amount         decimal.Decimal `json:"amount"`
	Balance        decimal.Decimal `json:"balance"`
	State          string          `json:"state"`
}

type StatementSummary struct {
	TotalAccounts    int             `json:"totalAccounts"`
	TotalMovements   int             `json:"totalMovements"`
	TotalDeposits    decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals decimal.Decimal `json:"totalWithdrawals"`
	NetChange        decimal.Decimal `json:"netChange"`
}
