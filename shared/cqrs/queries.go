package cqrs

import "time"

// ---------- Client queries ----------

type GetClientQuery struct {
	ID int64
}

// GetClientByKeyQuery is the lookup other services use to resolve a client.
type GetClientByKeyQuery struct {
	ClientKey string
}

// ---------- Account queries ----------

type GetAccountQuery struct {
	AccountID int64
}

type GetAccountByNumberQuery struct {
	AccountNumber string
}

// ListAccountsQuery lists every account, or only the client's when ClientKey is set.
type ListAccountsQuery struct {
	ClientKey string
}

// ---------- Movement queries ----------

type GetMovementQuery struct {
	MovementID int64
}

// ListMovementsQuery lists every movement, or one account's when AccountID is set.
type ListMovementsQuery struct {
	AccountID int64
}

// ---------- Reports ----------

// StatementQuery covers [StartDate, EndDate], both inclusive.
type StatementQuery struct {
	ClientKey string
	StartDate time.Time
	EndDate   time.Time
}
