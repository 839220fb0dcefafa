package models

// Neutral default categories. They are valid for both expenses and income
// and always trigger category resolution in a flow.
const (
	CategoryDefault       = "Outros"
	CategoryUncategorized = "Sem categoria"
)

// Built-in category names used by the keyword dictionary
const (
	CategoryFood          = "Alimentação"
	CategoryGroceries     = "Mercado"
	CategoryRestaurants   = "Restaurantes"
	CategoryTransport     = "Transporte"
	CategoryHousing       = "Moradia"
	CategoryHealth        = "Saúde"
	CategoryEducation     = "Educação"
	CategoryLeisure       = "Lazer"
	CategoryShopping      = "Compras"
	CategorySubscriptions = "Assinaturas"
	CategorySalary        = "Salário"
	CategoryFreelance     = "Freelance"
	CategoryInvestments   = "Investimentos"
	CategoryRefunds       = "Reembolsos"
)

// Origins tag where a flow was started from
const (
	OriginChat  = "chat"
	OriginAPI   = "api"
	OriginSplit = "split"
)

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
)
