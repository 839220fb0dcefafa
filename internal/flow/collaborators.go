package flow

import (
	"context"

	"fjacquet/finchat/internal/models"

	"github.com/shopspring/decimal"
)

// CardDirectory lists the credit cards a user registered.
type CardDirectory interface {
	ListCards(ctx context.Context, userID string) ([]models.Card, error)
}

// CategoryDirectory reads and creates user categories.
type CategoryDirectory interface {
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
	// FindByName looks a category up ignoring case and accents.
	FindByName(ctx context.Context, userID, name string) (models.Category, bool, error)
	Create(ctx context.Context, userID, name string, income bool) (models.Category, error)
}

// HistoryLookup returns the description to category pairs a user filed before.
type HistoryLookup interface {
	DescriptionToCategoryMap(ctx context.Context, userID string) ([]models.HistoryRecord, error)
}

// EntryRegistrar persists finalized entries.
type EntryRegistrar interface {
	Register(ctx context.Context, userID string, entry models.Entry) (models.PersistedEntry, error)
}

// AnomalyChecker returns an alert text when amount is unusual for the
// category, or "" when it is not.
type AnomalyChecker interface {
	CheckAnomaly(ctx context.Context, userID, categoryID string, amount decimal.Decimal) (string, error)
}

// BudgetChecker returns an alert text when amount pushes the category past
// its monthly limit, or "" when it does not.
type BudgetChecker interface {
	CheckLimit(ctx context.Context, userID, categoryID string, amount decimal.Decimal) (string, error)
}

// TagStore attaches hashtags to a registered entry.
type TagStore interface {
	SaveTags(ctx context.Context, entryID, userID string, tags []string) error
}

// Keyboard publishes the quick-reply options of the next reply.
type Keyboard interface {
	Offer(conversationID string, options []string)
}

// CategorySuggester ranks a likely category among candidates.
type CategorySuggester interface {
	Suggest(ctx context.Context, userID, description string, kind models.TransactionKind, candidates []models.Category) (models.Suggestion, bool)
}

// ExpiryListener is told which conversations lost their flow to the idle
// timeout, so copies kept elsewhere can be dropped too.
type ExpiryListener interface {
	FlowsExpired(ctx context.Context, conversationIDs []string)
}
