// Package categorizer ranks a likely category for a transaction description.
// Strategies run from the most to the least specific:
// 1. the user's own history, exact then substring match
// 2. the keyword dictionary (YAML file plus a built-in table)
// Every strategy is scoped to the categories of the transaction's class.
package categorizer

import (
	"context"

	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
)

// Suggester orchestrates the categorization strategies.
type Suggester struct {
	strategies []CategorizationStrategy
	logger     logging.Logger
}

// NewSuggester creates a Suggester with the history and keyword strategies.
func NewSuggester(history HistorySource, keywords KeywordSource, logger logging.Logger) *Suggester {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return NewSuggesterWithStrategies(logger,
		NewHistoryStrategy(history, logger),
		NewKeywordStrategy(keywords, logger),
	)
}

// NewSuggesterWithStrategies creates a Suggester running the given strategies in order.
func NewSuggesterWithStrategies(logger logging.Logger, strategies ...CategorizationStrategy) *Suggester {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Suggester{strategies: strategies, logger: logger}
}

// Suggest returns the first category a strategy finds for the description
// among candidates. Strategy failures are logged and skipped: a suggestion
// is a convenience, never a reason to fail the flow.
func (s *Suggester) Suggest(ctx context.Context, userID, description string, kind models.TransactionKind, candidates []models.Category) (models.Suggestion, bool) {
	q := Query{UserID: userID, Description: description, Kind: kind, Candidates: candidates}

	for _, strategy := range s.strategies {
		match, found, err := strategy.Categorize(ctx, q)
		if err != nil {
			s.logger.WithError(err).Warn("Categorization strategy failed",
				logging.F(logging.FieldStrategy, strategy.Name()),
				logging.F(logging.FieldUserID, userID))
			continue
		}
		if found {
			return models.Suggestion{
				Category:   match.Category,
				Strategy:   strategy.Name(),
				Confidence: match.Confidence,
			}, true
		}
	}
	return models.Suggestion{}, false
}

// Evaluate runs every strategy and reports each outcome. Used to explain a
// suggestion from the command line.
func (s *Suggester) Evaluate(ctx context.Context, q Query) StrategyResults {
	results := StrategyResults{Results: make([]StrategyResult, 0, len(s.strategies))}
	for _, strategy := range s.strategies {
		match, found, err := strategy.Categorize(ctx, q)
		results.Results = append(results.Results, StrategyResult{
			Strategy: strategy.Name(),
			Match:    match,
			Found:    found,
			Error:    err,
		})
	}
	return results
}
