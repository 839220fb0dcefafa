package models

// CategoryConfig represents a keyword dictionary entry in the YAML file
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Income   bool     `yaml:"income"`
	Keywords []string `yaml:"keywords"`
}

// CategoriesConfig represents the structure of the keyword dictionary YAML file
type CategoriesConfig struct {
	Categories []CategoryConfig `yaml:"categories"`
}

// HistoryConfig represents the structure of the history YAML file
type HistoryConfig struct {
	History []HistoryRecord `yaml:"history"`
}

// Suggestion is a ranked category proposal for a description.
type Suggestion struct {
	Category Category
	Strategy string
	// Confidence is 1.0 for exact history matches and lower for fuzzier ones.
	Confidence float64
}
