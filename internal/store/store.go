// Package store loads and saves the file-backed data of the application: the
// keyword dictionary, the description history and the workspace seed.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// CategoryStore manages loading and saving of category data
type CategoryStore struct {
	KeywordsFile  string
	HistoryFile   string
	WorkspaceFile string
	logger        logging.Logger
}

// NewCategoryStore creates a new store for category-related data
func NewCategoryStore(keywordsFile, historyFile, workspaceFile string, logger logging.Logger) *CategoryStore {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &CategoryStore{
		KeywordsFile:  keywordsFile,
		HistoryFile:   historyFile,
		WorkspaceFile: workspaceFile,
		logger:        logger,
	}
}

// FindConfigFile looks for a configuration file in standard locations
func (s *CategoryStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join("data", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".finchat", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// readOptional reads a config file, returning nil data when it does not exist.
func (s *CategoryStore) readOptional(filename, fallback string) ([]byte, string, error) {
	if filename == "" {
		filename = fallback
	}
	path, err := s.FindConfigFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("Optional data file not found", logging.F(logging.FieldFile, filename))
			return nil, filename, nil
		}
		return nil, filename, fmt.Errorf("error resolving %s: %w", filename, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("error reading %s: %w", path, err)
	}
	return data, path, nil
}

// LoadCategories loads the keyword dictionary. Both the "categories:" wrapper
// and a bare list are accepted. A missing file yields an empty dictionary.
func (s *CategoryStore) LoadCategories() ([]models.CategoryConfig, error) {
	data, path, err := s.readOptional(s.KeywordsFile, "categories.yaml")
	if err != nil || data == nil {
		return []models.CategoryConfig{}, err
	}

	var wrapped models.CategoriesConfig
	if err := yaml.Unmarshal(data, &wrapped); err == nil && len(wrapped.Categories) > 0 {
		s.logger.Debug("Loaded keyword dictionary", logging.F(logging.FieldFile, path), logging.F(logging.FieldCount, len(wrapped.Categories)))
		return wrapped.Categories, nil
	}

	var list []models.CategoryConfig
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("error parsing keyword dictionary %s: %w", path, err)
	}
	s.logger.Debug("Loaded keyword dictionary", logging.F(logging.FieldFile, path), logging.F(logging.FieldCount, len(list)))
	return list, nil
}

// LoadHistory loads the description history. A missing file yields no records.
func (s *CategoryStore) LoadHistory() ([]models.HistoryRecord, error) {
	data, path, err := s.readOptional(s.HistoryFile, "history.yaml")
	if err != nil || data == nil {
		return []models.HistoryRecord{}, err
	}

	var history models.HistoryConfig
	if err := yaml.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("error parsing history %s: %w", path, err)
	}
	s.logger.Debug("Loaded history", logging.F(logging.FieldFile, path), logging.F(logging.FieldCount, len(history.History)))
	return history.History, nil
}

// SaveHistory writes the description history, replacing the file.
func (s *CategoryStore) SaveHistory(records []models.HistoryRecord) error {
	filename := s.HistoryFile
	if filename == "" {
		filename = "history.yaml"
	}

	filePath, err := s.FindConfigFile(filename)
	if err != nil {
		filePath = filename
		if !filepath.IsAbs(filename) {
			filePath = filepath.Join("data", filename)
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	data, err := yaml.Marshal(models.HistoryConfig{History: records})
	if err != nil {
		return fmt.Errorf("error marshaling history: %w", err)
	}
	if err := os.WriteFile(filePath, data, models.PermissionConfigFile); err != nil {
		return fmt.Errorf("error writing history: %w", err)
	}

	s.logger.Debug("Saved history", logging.F(logging.FieldFile, filePath), logging.F(logging.FieldCount, len(records)))
	return nil
}

// LoadWorkspace loads the workspace seed. A missing file yields an empty workspace.
func (s *CategoryStore) LoadWorkspace() (models.Workspace, error) {
	data, path, err := s.readOptional(s.WorkspaceFile, "workspace.yaml")
	if err != nil || data == nil {
		return models.Workspace{}, err
	}

	var ws models.Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return models.Workspace{}, fmt.Errorf("error parsing workspace %s: %w", path, err)
	}
	s.logger.Debug("Loaded workspace", logging.F(logging.FieldFile, path), logging.F(logging.FieldCount, len(ws.Users)))
	return ws, nil
}

// ImportHistoryCSV reads history records from a CSV file with the header
// user_id,description,category.
func ImportHistoryCSV(path string) ([]models.HistoryRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var rows []models.HistoryRecord
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("error parsing CSV file: %w", err)
	}

	out := rows[:0]
	for _, r := range rows {
		if r.Description == "" || r.Category == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ExportHistoryCSV writes history records to a CSV file.
func ExportHistoryCSV(path string, records []models.HistoryRecord, delimiter rune) error {
	if records == nil {
		records = []models.HistoryRecord{}
	}
	if err := os.MkdirAll(filepath.Dir(path), models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	csvWriter := csv.NewWriter(file)
	if delimiter != 0 {
		csvWriter.Comma = delimiter
	}
	if err := gocsv.MarshalCSV(records, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// MergeHistory appends incoming records to existing ones, skipping records
// already present for the same user and description. Later records win on
// conflicts so an import can re-file a description.
func MergeHistory(existing, incoming []models.HistoryRecord) ([]models.HistoryRecord, int) {
	index := make(map[string]int, len(existing))
	out := append([]models.HistoryRecord(nil), existing...)
	for i, r := range out {
		index[historyKey(r)] = i
	}

	added := 0
	for _, r := range incoming {
		key := historyKey(r)
		if i, ok := index[key]; ok {
			out[i].Category = r.Category
			continue
		}
		index[key] = len(out)
		out = append(out, r)
		added++
	}
	return out, added
}

func historyKey(r models.HistoryRecord) string {
	return r.UserID + "\x00" + textutils.Fold(r.Description)
}
