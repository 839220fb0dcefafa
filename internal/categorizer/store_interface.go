package categorizer

import (
	"context"

	"fjacquet/finchat/internal/models"
)

// KeywordSource provides the keyword dictionary.
type KeywordSource interface {
	LoadCategories() ([]models.CategoryConfig, error)
}

// HistorySource provides a user's past description to category mapping,
// oldest first.
type HistorySource interface {
	DescriptionToCategoryMap(ctx context.Context, userID string) ([]models.HistoryRecord, error)
}
