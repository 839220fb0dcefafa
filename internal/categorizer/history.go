package categorizer

import (
	"context"
	"fmt"

	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"
)

// Confidence of history matches.
const (
	ExactHistoryConfidence     = 1.0
	SubstringHistoryConfidence = 0.7
)

// minSubstringLength keeps tiny descriptions ("a", "99") from matching everything.
const minSubstringLength = 3

// HistoryStrategy suggests the category a user filed the same description
// under before: an exact folded match first, then a whole-word substring
// match in either direction.
type HistoryStrategy struct {
	source HistorySource
	logger logging.Logger
}

// NewHistoryStrategy creates a new HistoryStrategy instance.
func NewHistoryStrategy(source HistorySource, logger logging.Logger) *HistoryStrategy {
	return &HistoryStrategy{source: source, logger: logger}
}

// Name returns the name of this strategy for logging and debugging.
func (s *HistoryStrategy) Name() string {
	return "History"
}

// Categorize looks the description up in the user's history. Recent records
// win over older ones.
func (s *HistoryStrategy) Categorize(ctx context.Context, q Query) (Match, bool, error) {
	description := textutils.Fold(q.Description)
	if description == "" || s.source == nil {
		return Match{}, false, nil
	}

	records, err := s.source.DescriptionToCategoryMap(ctx, q.UserID)
	if err != nil {
		return Match{}, false, fmt.Errorf("loading history: %w", err)
	}

	for i := len(records) - 1; i >= 0; i-- {
		if textutils.Fold(records[i].Description) != description {
			continue
		}
		if category, ok := q.resolve(records[i].Category); ok {
			s.logMatch(q, category, "exact")
			return Match{Category: category, Confidence: ExactHistoryConfidence}, true, nil
		}
	}

	if len([]rune(description)) < minSubstringLength {
		return Match{}, false, nil
	}

	var (
		best    models.Category
		bestLen int
	)
	for i := len(records) - 1; i >= 0; i-- {
		past := textutils.Fold(records[i].Description)
		if len([]rune(past)) < minSubstringLength || len(past) <= bestLen {
			continue
		}
		if !textutils.ContainsPhrase(description, past) && !textutils.ContainsPhrase(past, description) {
			continue
		}
		if category, ok := q.resolve(records[i].Category); ok {
			best, bestLen = category, len(past)
		}
	}
	if bestLen == 0 {
		return Match{}, false, nil
	}

	s.logMatch(q, best, "substring")
	return Match{Category: best, Confidence: SubstringHistoryConfidence}, true, nil
}

func (s *HistoryStrategy) logMatch(q Query, category models.Category, mode string) {
	s.logger.WithFields(
		logging.F(logging.FieldStrategy, s.Name()),
		logging.F(logging.FieldUserID, q.UserID),
		logging.F(logging.FieldCategory, category.Name),
		logging.F("match", mode),
	).Debug("Category suggested from history")
}
