package categorizer

import (
	"context"

	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"
)

// CategorizationStrategy defines a method for suggesting a category.
// Each strategy implements a specific approach (history, keywords).
type CategorizationStrategy interface {
	// Categorize attempts to find a category for the query. The returned
	// Match is only meaningful when found is true.
	Categorize(ctx context.Context, q Query) (match Match, found bool, err error)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}

// Query is what a strategy categorizes: a description typed by a user for a
// transaction of a given kind. When Candidates is set, only those categories
// may be suggested.
type Query struct {
	UserID      string
	Description string
	Kind        models.TransactionKind
	Candidates  []models.Category
}

// Match is a category proposed by a strategy with its confidence.
type Match struct {
	Category   models.Category
	Confidence float64
}

// resolve maps a category name to the category the query allows. Without
// candidates any non-default name is accepted and takes the query's class.
func (q Query) resolve(name string) (models.Category, bool) {
	if name == "" || models.IsDefaultCategoryName(name) {
		return models.Category{}, false
	}
	if len(q.Candidates) == 0 {
		return models.Category{Name: name, IsIncome: q.Kind == models.KindIncome}, true
	}
	folded := textutils.Fold(name)
	for _, c := range q.Candidates {
		if textutils.Fold(c.Name) == folded {
			return c, true
		}
	}
	return models.Category{}, false
}
