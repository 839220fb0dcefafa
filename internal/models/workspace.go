package models

// Workspace seeds the in-memory directories: the cards, categories and
// monthly limits of each user.
type Workspace struct {
	Users []WorkspaceUser `yaml:"users"`
}

// WorkspaceUser is one user of a Workspace.
type WorkspaceUser struct {
	ID         string              `yaml:"id"`
	Cards      []Card              `yaml:"cards"`
	Categories []WorkspaceCategory `yaml:"categories"`
}

// WorkspaceCategory is a category seed. MonthlyLimit is a pt-BR amount
// such as "800,00"; empty means no budget.
type WorkspaceCategory struct {
	Name         string `yaml:"name"`
	Income       bool   `yaml:"income"`
	MonthlyLimit string `yaml:"monthly_limit,omitempty"`
}
