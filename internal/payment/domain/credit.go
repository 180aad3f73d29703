package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a credit history record.
// Credit adds to the customer balance, debit consumes it.
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "DEBIT"
	TransactionTypeCredit TransactionType = "CREDIT"
)

// CreditEntry is the current credit balance of a customer.
// Version guards concurrent payments against lost updates.
type CreditEntry struct {
	ID                uuid.UUID
	CustomerID        uuid.UUID
	TotalCreditAmount decimal.Decimal
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AddCreditAmount returns credit to the balance during compensation.
func (c *CreditEntry) AddCreditAmount(amount decimal.Decimal) {
	c.TotalCreditAmount = c.TotalCreditAmount.Add(amount)
}

// SubtractCreditAmount consumes credit from the balance.
func (c *CreditEntry) SubtractCreditAmount(amount decimal.Decimal) {
	c.TotalCreditAmount = c.TotalCreditAmount.Sub(amount)
}

// CreditHistory is the append-only record of credit movements for a customer.
// The history must always reconcile with the credit entry balance.
type CreditHistory struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	Amount          decimal.Decimal
	TransactionType TransactionType
	CreatedAt       time.Time
}

// NewCreditHistory creates a credit movement record.
func NewCreditHistory(customerID uuid.UUID, amount decimal.Decimal, transactionType TransactionType) *CreditHistory {
	return &CreditHistory{
		ID:              uuid.Must(uuid.NewV7()),
		CustomerID:      customerID,
		Amount:          amount,
		TransactionType: transactionType,
	}
}
