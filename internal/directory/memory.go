// Package directory provides in-process bindings for the collaborators of the
// transaction-entry flow: cards, categories, history, the entry ledger, tags,
// monthly budgets and anomaly detection. Memory keeps everything in maps and
// can be seeded from a workspace file; CachedDirectory puts a ristretto cache
// in front of the card and category listings.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fjacquet/finchat/internal/currencyutils"
	"fjacquet/finchat/internal/dateutils"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Defaults of the anomaly check
const (
	DefaultAnomalyFactor     = 3.0
	DefaultAnomalyMinSamples = 3
)

// budgetWarningPercent is the share of a monthly limit that triggers a warning.
var budgetWarningPercent = decimal.NewFromInt(80)

// Options tunes Memory. Zero values fall back to the defaults.
type Options struct {
	AnomalyFactor     float64
	AnomalyMinSamples int
	Clock             func() time.Time
}

type userData struct {
	cards      []models.Card
	categories []models.Category
	limits     map[string]decimal.Decimal // category id -> monthly limit
	entries    []models.PersistedEntry
}

// Memory is a thread-safe in-memory directory and ledger.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*userData
	history    []models.HistoryRecord
	tags       map[string][]string // entry id -> tags
	factor     decimal.Decimal
	minSamples int
	now        func() time.Time
	logger     logging.Logger
}

// NewMemory creates an empty Memory.
func NewMemory(opts Options, logger logging.Logger) *Memory {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if opts.AnomalyFactor <= 1 {
		opts.AnomalyFactor = DefaultAnomalyFactor
	}
	if opts.AnomalyMinSamples < 1 {
		opts.AnomalyMinSamples = DefaultAnomalyMinSamples
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Memory{
		users:      make(map[string]*userData),
		tags:       make(map[string][]string),
		factor:     decimal.NewFromFloat(opts.AnomalyFactor),
		minSamples: opts.AnomalyMinSamples,
		now:        opts.Clock,
		logger:     logger,
	}
}

// user returns the data of userID, creating it with the neutral default
// category. Callers hold the write lock.
func (m *Memory) user(userID string) *userData {
	u, ok := m.users[userID]
	if !ok {
		u = &userData{
			categories: []models.Category{{ID: uuid.NewString(), Name: models.CategoryDefault}},
			limits:     make(map[string]decimal.Decimal),
		}
		m.users[userID] = u
	}
	return u
}

// Seed loads the cards, categories and monthly limits of a workspace.
// Seeding twice merges by name.
func (m *Memory) Seed(ws models.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, wu := range ws.Users {
		if strings.TrimSpace(wu.ID) == "" {
			return fmt.Errorf("workspace user without id")
		}
		u := m.user(wu.ID)

		for _, c := range wu.Cards {
			if findCard(u.cards, c.Name) >= 0 {
				continue
			}
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			u.cards = append(u.cards, c)
		}

		for _, wc := range wu.Categories {
			idx := findCategory(u.categories, wc.Name)
			if idx < 0 {
				u.categories = append(u.categories, models.Category{ID: uuid.NewString(), Name: wc.Name, IsIncome: wc.Income})
				idx = len(u.categories) - 1
			}
			if wc.MonthlyLimit == "" {
				continue
			}
			limit, err := currencyutils.ParsePositiveAmount(wc.MonthlyLimit)
			if err != nil {
				return fmt.Errorf("user %s, category %s: invalid monthly limit: %w", wu.ID, wc.Name, err)
			}
			u.limits[u.categories[idx].ID] = limit
		}
	}

	m.logger.Info("Workspace loaded", logging.F(logging.FieldCount, len(ws.Users)))
	return nil
}

// AddCard registers a card for userID.
func (m *Memory) AddCard(userID, name string, dueDay int) models.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Card{ID: uuid.NewString(), Name: name, DueDay: dueDay}
	u := m.user(userID)
	u.cards = append(u.cards, c)
	return c
}

// SetLimit sets the monthly limit of a category.
func (m *Memory) SetLimit(userID, categoryID string, limit decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).limits[categoryID] = limit
}

// SetHistory replaces the imported history. Registered entries are learned
// on top of it.
func (m *Memory) SetHistory(records []models.HistoryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append([]models.HistoryRecord(nil), records...)
}

// History returns the imported history followed by the registered entries.
func (m *Memory) History() []models.HistoryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]models.HistoryRecord(nil), m.history...)
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, e := range m.users[id].entries {
			out = append(out, models.HistoryRecord{UserID: id, Description: e.Entry.Description, Category: e.Category.Name})
		}
	}
	return out
}

// Entries returns the entries registered by userID, oldest first.
func (m *Memory) Entries(userID string) []models.PersistedEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	return append([]models.PersistedEntry(nil), u.entries...)
}

// Tags returns the tags of an entry.
func (m *Memory) Tags(entryID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.tags[entryID]...)
}

// ListCards returns the cards of userID.
func (m *Memory) ListCards(_ context.Context, userID string) ([]models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return append([]models.Card(nil), u.cards...), nil
}

// ListCategories returns the categories of userID, the default included.
func (m *Memory) ListCategories(_ context.Context, userID string) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Category(nil), m.user(userID).categories...), nil
}

// FindByName looks a category up ignoring case and accents.
func (m *Memory) FindByName(_ context.Context, userID, name string) (models.Category, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	if i := findCategory(u.categories, name); i >= 0 {
		return u.categories[i], true, nil
	}
	return models.Category{}, false, nil
}

// Create adds a category. Creating an existing name returns the existing one.
func (m *Memory) Create(_ context.Context, userID, name string, income bool) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, fmt.Errorf("category name is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	if i := findCategory(u.categories, name); i >= 0 {
		return u.categories[i], nil
	}
	c := models.Category{ID: uuid.NewString(), Name: name, IsIncome: income}
	u.categories = append(u.categories, c)
	m.logger.Debug("Category created", logging.F(logging.FieldUserID, userID), logging.F(logging.FieldCategory, name))
	return c, nil
}

// DescriptionToCategoryMap returns the history that applies to userID,
// oldest first: shared records, the user's imported records, then the
// user's own entries.
func (m *Memory) DescriptionToCategoryMap(_ context.Context, userID string) ([]models.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.HistoryRecord
	for _, r := range m.history {
		if r.UserID == "" || r.UserID == userID {
			out = append(out, r)
		}
	}
	if u, ok := m.users[userID]; ok {
		for _, e := range u.entries {
			out = append(out, models.HistoryRecord{UserID: userID, Description: e.Entry.Description, Category: e.Category.Name})
		}
	}
	return out, nil
}

// Register appends an entry to the ledger.
func (m *Memory) Register(_ context.Context, userID string, entry models.Entry) (models.PersistedEntry, error) {
	if !entry.Amount.IsPositive() {
		return models.PersistedEntry{}, fmt.Errorf("entry amount must be positive, got %s", entry.Amount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)

	category := models.Category{ID: entry.CategoryID, Name: entry.CategoryName}
	found := false
	for _, c := range u.categories {
		if c.ID == entry.CategoryID {
			category, found = c, true
			break
		}
	}
	if !found {
		return models.PersistedEntry{}, fmt.Errorf("unknown category %q for user %s", entry.CategoryID, userID)
	}
	if entry.CardID != "" && findCardByID(u.cards, entry.CardID) < 0 {
		return models.PersistedEntry{}, fmt.Errorf("unknown card %q for user %s", entry.CardID, userID)
	}

	entry.UserID = userID
	entry.CategoryName = category.Name
	p := models.PersistedEntry{ID: uuid.NewString(), Entry: entry, Category: category}
	u.entries = append(u.entries, p)
	return p, nil
}

// SaveTags attaches tags to a registered entry.
func (m *Memory) SaveTags(_ context.Context, entryID, userID string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("unknown user %s", userID)
	}
	for _, e := range u.entries {
		if e.ID == entryID {
			m.tags[entryID] = append([]string(nil), tags...)
			return nil
		}
	}
	return fmt.Errorf("unknown entry %s", entryID)
}

// CheckLimit compares the category's expenses of the current month, the
// latest entry included, with its monthly limit.
func (m *Memory) CheckLimit(_ context.Context, userID, categoryID string, _ decimal.Decimal) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return "", nil
	}
	limit, ok := u.limits[categoryID]
	if !ok || !limit.IsPositive() {
		return "", nil
	}

	now := m.now()
	from, to := dateutils.StartOfMonth(now), dateutils.EndOfMonth(now).AddDate(0, 0, 1)
	spent := decimal.Zero
	name := ""
	for _, e := range u.entries {
		if e.Category.ID != categoryID || e.Entry.Kind != models.KindExpense {
			continue
		}
		name = e.Category.Name
		d := e.Entry.ValueDate.In(now.Location())
		if d.Before(from) || !d.Before(to) {
			continue
		}
		spent = spent.Add(e.Entry.Amount)
	}

	used := currencyutils.Percent(spent, limit)
	switch {
	case spent.GreaterThan(limit):
		return fmt.Sprintf("⚠️ Você ultrapassou o limite mensal de %s: %s gastos de %s.",
			name, currencyutils.FormatBRL(spent), currencyutils.FormatBRL(limit)), nil
	case used.GreaterThanOrEqual(budgetWarningPercent):
		return fmt.Sprintf("⚠️ Você já usou %s%% do limite mensal de %s (%s de %s).",
			used.StringFixed(0), name, currencyutils.FormatBRL(spent), currencyutils.FormatBRL(limit)), nil
	default:
		return "", nil
	}
}

// CheckAnomaly flags amount when it is at least factor times the mean of the
// category's earlier entries. The check runs after registration, so the
// latest entry of the category is left out of the mean.
func (m *Memory) CheckAnomaly(_ context.Context, userID, categoryID string, amount decimal.Decimal) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return "", nil
	}

	var samples []decimal.Decimal
	name := ""
	for _, e := range u.entries {
		if e.Category.ID == categoryID {
			samples = append(samples, e.Entry.Amount)
			name = e.Category.Name
		}
	}
	if len(samples) > 0 {
		samples = samples[:len(samples)-1]
	}
	if len(samples) < m.minSamples {
		return "", nil
	}

	mean := decimal.Avg(samples[0], samples[1:]...)
	if amount.LessThan(mean.Mul(m.factor)) {
		return "", nil
	}
	return fmt.Sprintf("🔎 Esse valor está bem acima da sua média em %s (%s).",
		name, currencyutils.FormatBRL(mean)), nil
}

func findCategory(categories []models.Category, name string) int {
	want := textutils.Fold(name)
	for i, c := range categories {
		if textutils.Fold(c.Name) == want {
			return i
		}
	}
	return -1
}

func findCard(cards []models.Card, name string) int {
	want := textutils.Fold(name)
	for i, c := range cards {
		if textutils.Fold(c.Name) == want {
			return i
		}
	}
	return -1
}

func findCardByID(cards []models.Card, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}
