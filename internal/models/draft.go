// Package models provides the data structures used throughout the application.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TransactionKind tells whether a transaction takes money out or brings it in.
type TransactionKind string

const (
	KindExpense TransactionKind = "expense"
	KindIncome  TransactionKind = "income"
)

// ParseTransactionKind converts a stored tag back to a TransactionKind.
func ParseTransactionKind(tag string) (TransactionKind, error) {
	switch TransactionKind(strings.ToLower(strings.TrimSpace(tag))) {
	case KindExpense, "":
		return KindExpense, nil
	case KindIncome:
		return KindIncome, nil
	default:
		return "", fmt.Errorf("unknown transaction kind: %s", tag)
	}
}

// PaymentMethod is how an expense was paid.
type PaymentMethod string

const (
	PaymentUnset  PaymentMethod = ""
	PaymentPix    PaymentMethod = "pix"
	PaymentDebit  PaymentMethod = "debit"
	PaymentCredit PaymentMethod = "credit"
)

// ParsePaymentMethod converts a stored tag back to a PaymentMethod.
func ParsePaymentMethod(tag string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(tag))); m {
	case PaymentUnset, PaymentPix, PaymentDebit, PaymentCredit:
		return m, nil
	default:
		return PaymentUnset, fmt.Errorf("unknown payment method: %s", tag)
	}
}

// Label returns the user-facing name of the payment method.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentPix:
		return "Pix"
	case PaymentDebit:
		return "Débito"
	case PaymentCredit:
		return "Crédito"
	default:
		return "Não informado"
	}
}

// DefaultDescriptionMaxLength caps descriptions when no limit is configured.
const DefaultDescriptionMaxLength = 100

// TransactionDraft is the entry under construction during a flow.
type TransactionDraft struct {
	Amount        decimal.Decimal
	Description   string
	Category      *Category
	PaymentMethod PaymentMethod
	CardID        string
	Installments  int
	Kind          TransactionKind
	ValueDate     *time.Time
}

// SetDescription trims the description and caps it to maxLen runes.
func (d *TransactionDraft) SetDescription(description string, maxLen int) {
	d.Description = CleanDescription(description, maxLen)
}

// SetPaymentMethod changes the method and keeps the installment invariant:
// only credit transactions carry a card or more than one installment.
func (d *TransactionDraft) SetPaymentMethod(method PaymentMethod) {
	d.PaymentMethod = method
	if method != PaymentCredit {
		d.CardID = ""
		d.Installments = 1
	}
}

// IsIncome reports whether the draft is an income.
func (d TransactionDraft) IsIncome() bool {
	return d.Kind == KindIncome
}

// InstallmentValue is the value of each installment, rounded to cents.
func (d TransactionDraft) InstallmentValue() decimal.Decimal {
	if d.Installments <= 1 {
		return d.Amount
	}
	return d.Amount.DivRound(decimal.NewFromInt(int64(d.Installments)), 2)
}

// Clone returns a deep copy of the draft.
func (d TransactionDraft) Clone() TransactionDraft {
	out := d
	if d.Category != nil {
		c := *d.Category
		out.Category = &c
	}
	if d.ValueDate != nil {
		t := *d.ValueDate
		out.ValueDate = &t
	}
	return out
}

// CleanDescription trims whitespace, collapses inner runs of spaces and caps
// the result to maxLen runes.
func CleanDescription(description string, maxLen int) string {
	description = strings.Join(strings.Fields(description), " ")
	if maxLen <= 0 {
		maxLen = DefaultDescriptionMaxLength
	}
	if utf8.RuneCountInString(description) > maxLen {
		runes := []rune(description)
		description = strings.TrimSpace(string(runes[:maxLen]))
	}
	return description
}
