package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
)

// CreditPolicy decides whether a customer's balance covers a payment.
// The default policy requires the full amount upfront; alternative policies
// (overdraft, customer tiers) plug in here without touching the saga flow.
type CreditPolicy interface {
	HasEnoughCredit(creditEntry *CreditEntry, payment *Payment) bool
}

// DefaultCreditPolicy requires the balance to cover the full payment price.
type DefaultCreditPolicy struct{}

// HasEnoughCredit reports whether the balance covers the payment price.
func (DefaultCreditPolicy) HasEnoughCredit(creditEntry *CreditEntry, payment *Payment) bool {
	return creditEntry.TotalCreditAmount.GreaterThanOrEqual(payment.Price)
}

// ValidateAndInitiatePayment validates the payment against the customer
// credit, debits the balance, records the movement in the history and settles
// the payment status: completed when no failures were found, failed otherwise.
// Balance and history changes only apply on success.
func ValidateAndInitiatePayment(
	payment *Payment,
	creditEntry *CreditEntry,
	creditHistories []*CreditHistory,
	policy CreditPolicy,
) (*CreditHistory, []string) {
	if policy == nil {
		policy = DefaultCreditPolicy{}
	}

	var failureMessages []string
	payment.Validate(&failureMessages)
	validateCreditEntry(payment, creditEntry, policy, &failureMessages)

	if len(failureMessages) > 0 {
		payment.Fail()
		return nil, failureMessages
	}

	creditEntry.SubtractCreditAmount(payment.Price)
	history := NewCreditHistory(payment.CustomerID, payment.Price, TransactionTypeDebit)
	validateCreditHistory(creditEntry, append(creditHistories, history), &failureMessages)

	if len(failureMessages) > 0 {
		payment.Fail()
		return nil, failureMessages
	}

	payment.Complete()
	return history, nil
}

// ValidateAndCancelPayment compensates a completed payment: the amount goes
// back to the balance and a credit movement is recorded. Only a completed
// payment holds a debit to return; cancelling from any other status is an
// illegal transition and leaves the balance untouched.
func ValidateAndCancelPayment(
	payment *Payment,
	creditEntry *CreditEntry,
) (*CreditHistory, error) {
	if payment.Status != PaymentStatusCompleted {
		return nil, apperrors.Wrap(apperrors.ErrIllegalState,
			fmt.Sprintf("payment with status %s cannot be cancelled", payment.Status))
	}

	creditEntry.AddCreditAmount(payment.Price)
	history := NewCreditHistory(payment.CustomerID, payment.Price, TransactionTypeCredit)

	payment.Cancel()
	return history, nil
}

// validateCreditEntry checks the balance against the payment price.
func validateCreditEntry(
	payment *Payment,
	creditEntry *CreditEntry,
	policy CreditPolicy,
	failureMessages *[]string,
) {
	if !policy.HasEnoughCredit(creditEntry, payment) {
		*failureMessages = append(*failureMessages,
			fmt.Sprintf("Customer with id=%s doesn't have enough credit for payment!", payment.CustomerID))
	}
}

// validateCreditHistory reconciles the balance with the movement history.
// The invariant: sum of credits minus sum of debits equals the current balance.
func validateCreditHistory(
	creditEntry *CreditEntry,
	creditHistories []*CreditHistory,
	failureMessages *[]string,
) {
	totalCredit := historyTotal(creditHistories, TransactionTypeCredit)
	totalDebit := historyTotal(creditHistories, TransactionTypeDebit)

	if totalDebit.GreaterThan(totalCredit) {
		*failureMessages = append(*failureMessages,
			fmt.Sprintf("Customer with id=%s doesn't have enough credit according to credit history!",
				creditEntry.CustomerID))
		return
	}

	if !creditEntry.TotalCreditAmount.Equal(totalCredit.Sub(totalDebit)) {
		*failureMessages = append(*failureMessages,
			fmt.Sprintf("Credit history total is not equal to current credit for customer id=%s!",
				creditEntry.CustomerID))
	}
}

func historyTotal(creditHistories []*CreditHistory, transactionType TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, history := range creditHistories {
		if history.TransactionType == transactionType {
			total = total.Add(history.Amount)
		}
	}
	return total
}
