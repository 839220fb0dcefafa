// Package history imports and exports the description history as CSV
package history

import (
	"fmt"

	"fjacquet/finchat/cmd/root"
	"fjacquet/finchat/internal/config"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/store"
	"fjacquet/finchat/internal/validation"

	"github.com/spf13/cobra"
)

var (
	delimiter string
	userID    string
)

// Cmd represents the history command
var Cmd = &cobra.Command{
	Use:   "history",
	Short: "Import or export the description history",
	Long: `Import or export the description history the category suggestions learn from.
The CSV header is user_id,description,category.`,
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Merge a CSV file into the history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		added, err := Import(newStore(), args[0], root.Log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d records added\n", added)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file.csv>",
	Short: "Write the history to a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sep, err := validation.Delimiter(delimiter)
		if err != nil {
			return err
		}
		n, err := Export(newStore(), args[0], userID, sep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d records exported\n", n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "CSV delimiter")
	exportCmd.Flags().StringVarP(&userID, "user", "u", "", "Only export the records of this user")
	Cmd.AddCommand(importCmd, exportCmd)
}

func newStore() *store.CategoryStore {
	cfg := root.Cfg
	if cfg == nil {
		cfg = &config.Config{}
	}
	return store.NewCategoryStore(cfg.Categories.KeywordsFile, cfg.Categories.HistoryFile, cfg.Categories.WorkspaceFile, root.Log)
}

// HistoryStore loads and saves the description history.
type HistoryStore interface {
	LoadHistory() ([]models.HistoryRecord, error)
	SaveHistory(records []models.HistoryRecord) error
}

// Import merges the records of a CSV file into the stored history and
// returns how many were new.
func Import(st HistoryStore, path string, logger logging.Logger) (int, error) {
	if err := validation.InputFile(path, ".csv"); err != nil {
		return 0, err
	}
	incoming, err := store.ImportHistoryCSV(path)
	if err != nil {
		return 0, err
	}
	existing, err := st.LoadHistory()
	if err != nil {
		return 0, fmt.Errorf("failed to load history: %w", err)
	}

	merged, added := store.MergeHistory(existing, incoming)
	if err := st.SaveHistory(merged); err != nil {
		return 0, fmt.Errorf("failed to save history: %w", err)
	}
	logger.Info("History imported",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldCount, added))
	return added, nil
}

// Export writes the stored history to a CSV file, optionally keeping only the
// records of userID, and returns how many were written.
func Export(st HistoryStore, path, userID string, delimiter rune) (int, error) {
	records, err := st.LoadHistory()
	if err != nil {
		return 0, fmt.Errorf("failed to load history: %w", err)
	}
	if userID != "" {
		kept := records[:0]
		for _, r := range records {
			if r.UserID == userID {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	if err := store.ExportHistoryCSV(path, records, delimiter); err != nil {
		return 0, err
	}
	return len(records), nil
}
