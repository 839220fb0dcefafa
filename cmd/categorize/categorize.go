// Package categorize suggests a category for a transaction description
package categorize

import (
	"context"
	"fmt"
	"io"

	"fjacquet/finchat/cmd/root"
	"fjacquet/finchat/internal/categorizer"
	"fjacquet/finchat/internal/models"

	"github.com/spf13/cobra"
)

var (
	userID      string
	description string
	income      bool
	explain     bool
)

// Cmd represents the categorize command
var Cmd = &cobra.Command{
	Use:   "categorize",
	Short: "Suggest a category for a transaction description",
	Long: `Suggest a category for a transaction description, the way the bot does
while asking for a category: the user's history first, then the keyword dictionary.`,
	RunE: categorizeFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "User whose categories and history are used")
	Cmd.Flags().StringVarP(&description, "description", "d", "", "Transaction description to categorize")
	Cmd.Flags().BoolVarP(&income, "income", "i", false, "Categorize an income (default: expense)")
	Cmd.Flags().BoolVarP(&explain, "explain", "e", false, "Show the outcome of every strategy")
	_ = Cmd.MarkFlagRequired("description")
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	c, err := root.NewContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	kind := models.KindExpense
	if income {
		kind = models.KindIncome
	}
	return Suggest(cmd.Context(), c.GetDirectory(), c.GetSuggester(), categorizer.Query{
		UserID:      userID,
		Description: description,
		Kind:        kind,
	}, explain, cmd.OutOrStdout())
}

// CategoryLister lists the categories of a user.
type CategoryLister interface {
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
}

// Evaluator runs every categorization strategy.
type Evaluator interface {
	Evaluate(ctx context.Context, q categorizer.Query) categorizer.StrategyResults
}

// Suggest writes the category suggested for q to out. Candidates are the
// user's categories of the query's class; a user without any is matched
// against every name the strategies know.
func Suggest(ctx context.Context, categories CategoryLister, evaluator Evaluator, q categorizer.Query, explain bool, out io.Writer) error {
	if q.UserID != "" {
		list, err := categories.ListCategories(ctx, q.UserID)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}
		q.Candidates = models.FilterCategories(list, q.Kind)
	}

	results := evaluator.Evaluate(ctx, q)
	if explain {
		fmt.Fprintln(out, results.Summary())
	}
	best, ok := results.GetBestResult()
	if !ok {
		fmt.Fprintf(out, "No category found for %q\n", q.Description)
		return nil
	}
	fmt.Fprintf(out, "%s (%s, confidence %.2f)\n", best.Match.Category.Name, best.Strategy, best.Match.Confidence)
	return nil
}
