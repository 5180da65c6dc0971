/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP surface. They decouple the domain model from
  the API contract. Validation happens in handlers; DTOs are pure carriers.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreateAccountRequest struct {
	OwnerID  string `json:"owner_id"`
	Currency string `json:"currency"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	ToEmail       string          `json:"to_email"`
	Amount        decimal.Decimal `json:"amount"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type AccountDTO struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

func toAccountDTO(a wallet.Account) AccountDTO {
	return AccountDTO{
		ID:        string(a.ID),
		OwnerID:   a.OwnerID,
		Balance:   a.Balance,
		Currency:  a.Currency,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

type TransferDTO struct {
	From AccountDTO `json:"from"`
	To   AccountDTO `json:"to"`
}

type ErrorDTO struct {
	Error string `json:"error"`
}
