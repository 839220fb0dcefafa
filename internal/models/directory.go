package models

import (
	"strings"
	"time"

	"fjacquet/finchat/internal/textutils"

	"github.com/shopspring/decimal"
)

// Card is a credit card registered by a user. DueDay is the day of month the
// statement is due; zero when unknown.
type Card struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	DueDay int    `json:"due_day,omitempty" yaml:"due_day,omitempty"`
}

// Category represents a transaction category owned by a user
type Category struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	IsIncome bool   `json:"is_income" yaml:"is_income"`
}

// IsDefault reports whether the category is the neutral placeholder shared by
// both classes.
func (c Category) IsDefault() bool {
	return IsDefaultCategoryName(c.Name)
}

// MatchesKind reports whether the category may be attached to a transaction
// of the given kind. The neutral default matches both.
func (c Category) MatchesKind(kind TransactionKind) bool {
	if c.IsDefault() {
		return true
	}
	return c.IsIncome == (kind == KindIncome)
}

// IsDefaultCategoryName reports whether name designates the neutral default.
func IsDefaultCategoryName(name string) bool {
	folded := textutils.Fold(name)
	return folded == textutils.Fold(CategoryDefault) ||
		folded == textutils.Fold(CategoryUncategorized) ||
		folded == "other" || folded == "outro"
}

// FilterCategories keeps the categories valid for kind, dropping the neutral default.
func FilterCategories(categories []Category, kind TransactionKind) []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.IsDefault() || !c.MatchesKind(kind) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Entry is a finalized transaction handed to the entry registration collaborator.
type Entry struct {
	UserID        string
	Amount        decimal.Decimal
	Description   string
	CategoryID    string
	CategoryName  string
	PaymentMethod PaymentMethod
	CardID        string
	Installments  int
	Kind          TransactionKind
	ValueDate     time.Time
	Origin        string
}

// PersistedEntry is an entry after registration.
type PersistedEntry struct {
	ID       string
	Entry    Entry
	Category Category
}

// HistoryRecord maps a past description to the category it was filed under.
// Records without a user apply to every user.
type HistoryRecord struct {
	UserID      string `csv:"user_id" yaml:"user_id,omitempty"`
	Description string `csv:"description" yaml:"description"`
	Category    string `csv:"category" yaml:"category"`
}

// SplitExpense is a bill shared among several participants.
type SplitExpense struct {
	Total         decimal.Decimal
	Participants  int
	Description   string
	PaymentMethod PaymentMethod
	Installments  int
}

// CategoryNames returns the names of the given categories.
func CategoryNames(categories []Category) []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names
}

// CardNames returns the names of the given cards.
func CardNames(cards []Card) []string {
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, strings.TrimSpace(c.Name))
	}
	return names
}
