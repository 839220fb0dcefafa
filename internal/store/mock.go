package store

import (
	"fjacquet/finchat/internal/models"
)

// MockStore is a mock implementation of CategoryStore for testing.
type MockStore struct {
	Categories []models.CategoryConfig
	History    []models.HistoryRecord
	Workspace  models.Workspace

	// Error flags for testing error conditions
	LoadCategoriesError error
	LoadHistoryError    error
	SaveHistoryError    error
	LoadWorkspaceError  error
}

// LoadCategories returns the mock keyword dictionary.
func (m *MockStore) LoadCategories() ([]models.CategoryConfig, error) {
	if m.LoadCategoriesError != nil {
		return nil, m.LoadCategoriesError
	}
	return m.Categories, nil
}

// LoadHistory returns a copy of the mock history.
func (m *MockStore) LoadHistory() ([]models.HistoryRecord, error) {
	if m.LoadHistoryError != nil {
		return nil, m.LoadHistoryError
	}
	return append([]models.HistoryRecord(nil), m.History...), nil
}

// SaveHistory replaces the mock history.
func (m *MockStore) SaveHistory(records []models.HistoryRecord) error {
	if m.SaveHistoryError != nil {
		return m.SaveHistoryError
	}
	m.History = append([]models.HistoryRecord(nil), records...)
	return nil
}

// LoadWorkspace returns the mock workspace.
func (m *MockStore) LoadWorkspace() (models.Workspace, error) {
	if m.LoadWorkspaceError != nil {
		return models.Workspace{}, m.LoadWorkspaceError
	}
	return m.Workspace, nil
}
