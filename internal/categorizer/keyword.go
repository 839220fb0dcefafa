package categorizer

import (
	"context"
	"sort"

	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"
)

// Confidence of keyword matches.
const (
	DictionaryConfidence = 0.5
	BuiltinConfidence    = 0.4
)

type keywordRule struct {
	keyword    string
	category   string
	income     bool
	confidence float64
	words      int
}

// KeywordStrategy implements categorization using keyword matching against
// the YAML dictionary and a built-in Brazilian Portuguese table. Only rules of
// the query's class are considered.
type KeywordStrategy struct {
	rules  []keywordRule
	store  KeywordSource
	logger logging.Logger
}

// NewKeywordStrategy creates a new KeywordStrategy instance.
func NewKeywordStrategy(store KeywordSource, logger logging.Logger) *KeywordStrategy {
	strategy := &KeywordStrategy{
		store:  store,
		logger: logger,
	}
	strategy.loadCategories()
	return strategy
}

// Name returns the name of this strategy for logging and debugging.
func (s *KeywordStrategy) Name() string {
	return "Keyword"
}

// Categorize returns the category of the most specific keyword found in the
// description. Multi-word keywords beat single words, and dictionary rules
// beat built-in ones.
func (s *KeywordStrategy) Categorize(ctx context.Context, q Query) (Match, bool, error) {
	if textutils.Fold(q.Description) == "" {
		return Match{}, false, nil
	}
	income := q.Kind == models.KindIncome

	for _, rule := range s.rules {
		if rule.income != income || !textutils.ContainsPhrase(q.Description, rule.keyword) {
			continue
		}
		category, ok := q.resolve(rule.category)
		if !ok {
			continue
		}
		s.logger.WithFields(
			logging.F(logging.FieldStrategy, s.Name()),
			logging.F("keyword", rule.keyword),
			logging.F(logging.FieldCategory, category.Name),
		).Debug("Category suggested from keyword")
		return Match{Category: category, Confidence: rule.confidence}, true, nil
	}
	return Match{}, false, nil
}

// loadCategories loads the dictionary from the store and merges it with the
// built-in table.
func (s *KeywordStrategy) loadCategories() {
	var rules []keywordRule

	if s.store != nil {
		categories, err := s.store.LoadCategories()
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load keyword dictionary, using built-in keywords only")
		}
		for _, c := range categories {
			for _, kw := range c.Keywords {
				rules = append(rules, newRule(kw, c.Name, c.Income, DictionaryConfidence))
			}
		}
		s.logger.WithField(logging.FieldCount, len(categories)).Debug("Loaded categories for KeywordStrategy")
	}

	for category, keywords := range builtinExpenseKeywords {
		for _, kw := range keywords {
			rules = append(rules, newRule(kw, category, false, BuiltinConfidence))
		}
	}
	for category, keywords := range builtinIncomeKeywords {
		for _, kw := range keywords {
			rules = append(rules, newRule(kw, category, true, BuiltinConfidence))
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.words != b.words {
			return a.words > b.words
		}
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		if len(a.keyword) != len(b.keyword) {
			return len(a.keyword) > len(b.keyword)
		}
		if a.keyword != b.keyword {
			return a.keyword < b.keyword
		}
		return a.category < b.category
	})
	s.rules = rules
}

// ReloadCategories reloads the dictionary from the store.
func (s *KeywordStrategy) ReloadCategories() {
	s.loadCategories()
}

func newRule(keyword, category string, income bool, confidence float64) keywordRule {
	return keywordRule{
		keyword:    textutils.Fold(keyword),
		category:   category,
		income:     income,
		confidence: confidence,
		words:      len(textutils.Words(keyword)),
	}
}

var builtinExpenseKeywords = map[string][]string{
	models.CategoryGroceries: {"supermercado", "mercado", "atacadao", "assai", "carrefour", "pao de acucar",
		"hortifruti", "sacolao", "feira", "quitanda"},
	models.CategoryRestaurants: {"restaurante", "ifood", "rappi", "lanchonete", "pizzaria", "pizza", "hamburguer",
		"burger", "sushi", "churrascaria", "almoco", "jantar", "delivery"},
	models.CategoryFood: {"padaria", "cafe", "cafeteria", "lanche", "acougue", "sorvete", "doceria"},
	models.CategoryTransport: {"uber", "99", "taxi", "onibus", "metro", "combustivel", "gasolina", "etanol",
		"posto", "estacionamento", "pedagio", "passagem"},
	models.CategoryHousing: {"aluguel", "condominio", "conta de luz", "energia", "conta de agua", "gas",
		"internet", "iptu", "faxina", "diarista"},
	models.CategoryHealth: {"farmacia", "drogaria", "remedio", "medico", "consulta", "exame", "hospital",
		"dentista", "plano de saude", "academia"},
	models.CategoryEducation: {"escola", "faculdade", "curso", "livro", "livraria", "mensalidade escolar", "material escolar"},
	models.CategoryLeisure: {"cinema", "show", "teatro", "viagem", "hotel", "pousada", "ingresso", "parque", "bar", "balada"},
	models.CategoryShopping: {"amazon", "mercado livre", "shopee", "magalu", "roupa", "roupas", "sapato",
		"loja", "shopping", "presente"},
	models.CategorySubscriptions: {"netflix", "spotify", "disney", "hbo", "prime video", "youtube premium",
		"assinatura", "deezer", "globoplay"},
}

var builtinIncomeKeywords = map[string][]string{
	models.CategorySalary:      {"salario", "holerite", "contracheque", "ordenado", "decimo terceiro", "ferias"},
	models.CategoryFreelance:   {"freela", "freelance", "projeto", "consultoria", "servico prestado", "bico"},
	models.CategoryInvestments: {"dividendos", "dividendo", "rendimento", "rendimentos", "juros", "cdb", "tesouro", "aluguel recebido"},
	models.CategoryRefunds:     {"reembolso", "estorno", "devolucao", "cashback", "ressarcimento"},
}
