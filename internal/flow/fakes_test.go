package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fjacquet/finchat/internal/keyboard"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/session"
	"fjacquet/finchat/internal/textutils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Sunday 18 October 2026, mid-afternoon
var refNow = time.Date(2026, time.October, 18, 15, 30, 0, 0, time.UTC)

const (
	testConv = "conv-1"
	testUser = "user-1"
)

var errBoom = errors.New("boom")

var (
	catMercado    = models.Category{ID: "c-mercado", Name: "Mercado"}
	catLazer      = models.Category{ID: "c-lazer", Name: "Lazer"}
	catTransporte = models.Category{ID: "c-transporte", Name: "Transporte"}
	catSalario    = models.Category{ID: "c-salario", Name: "Salário", IsIncome: true}
	catOutros     = models.Category{ID: "c-outros", Name: "Outros"}

	cardNubank = models.Card{ID: "card-nu", Name: "Nubank", DueDay: 10}
	cardInter  = models.Card{ID: "card-inter", Name: "Inter"}
)

// fakeDirectory implements every collaborator of the engine.
type fakeDirectory struct {
	mu sync.Mutex

	cards      []models.Card
	categories []models.Category
	history    []models.HistoryRecord

	cardsErr      error
	categoriesErr error
	createErr     error
	registerErr   error
	tagsErr       error
	anomalyErr    error
	budgetErr     error

	anomalyAlert string
	budgetAlert  string

	registered []models.Entry
	created    []models.Category
	tagged     map[string][]string
	budgetHits []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		cards:      []models.Card{cardNubank, cardInter},
		categories: []models.Category{catMercado, catLazer, catTransporte, catSalario, catOutros},
		tagged:     map[string][]string{},
	}
}

func (d *fakeDirectory) ListCards(_ context.Context, _ string) ([]models.Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cardsErr != nil {
		return nil, d.cardsErr
	}
	return append([]models.Card(nil), d.cards...), nil
}

func (d *fakeDirectory) ListCategories(_ context.Context, _ string) ([]models.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.categoriesErr != nil {
		return nil, d.categoriesErr
	}
	return append([]models.Category(nil), d.categories...), nil
}

func (d *fakeDirectory) FindByName(_ context.Context, _ string, name string) (models.Category, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.categoriesErr != nil {
		return models.Category{}, false, d.categoriesErr
	}
	for _, c := range d.categories {
		if textutils.Fold(c.Name) == textutils.Fold(name) {
			return c, true, nil
		}
	}
	return models.Category{}, false, nil
}

func (d *fakeDirectory) Create(_ context.Context, _ string, name string, income bool) (models.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return models.Category{}, d.createErr
	}
	c := models.Category{ID: fmt.Sprintf("c-new-%d", len(d.created)+1), Name: name, IsIncome: income}
	d.categories = append(d.categories, c)
	d.created = append(d.created, c)
	return c, nil
}

func (d *fakeDirectory) DescriptionToCategoryMap(_ context.Context, _ string) ([]models.HistoryRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.HistoryRecord(nil), d.history...), nil
}

func (d *fakeDirectory) Register(_ context.Context, _ string, entry models.Entry) (models.PersistedEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.registerErr != nil {
		return models.PersistedEntry{}, d.registerErr
	}
	d.registered = append(d.registered, entry)
	category := models.Category{ID: entry.CategoryID, Name: entry.CategoryName}
	for _, c := range d.categories {
		if c.ID == entry.CategoryID {
			category = c
		}
	}
	return models.PersistedEntry{ID: fmt.Sprintf("entry-%d", len(d.registered)), Entry: entry, Category: category}, nil
}

func (d *fakeDirectory) SaveTags(_ context.Context, entryID, _ string, tags []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tagsErr != nil {
		return d.tagsErr
	}
	d.tagged[entryID] = tags
	return nil
}

func (d *fakeDirectory) CheckAnomaly(_ context.Context, _, _ string, _ decimal.Decimal) (string, error) {
	return d.anomalyAlert, d.anomalyErr
}

func (d *fakeDirectory) CheckLimit(_ context.Context, _, categoryID string, _ decimal.Decimal) (string, error) {
	d.mu.Lock()
	d.budgetHits = append(d.budgetHits, categoryID)
	d.mu.Unlock()
	return d.budgetAlert, d.budgetErr
}

func (d *fakeDirectory) lastEntry(t *testing.T) models.Entry {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.registered, "no entry registered")
	return d.registered[len(d.registered)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingExpiry collects the conversations the engine expired.
type recordingExpiry struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingExpiry) FlowsExpired(_ context.Context, conversationIDs []string) {
	r.mu.Lock()
	r.ids = append(r.ids, conversationIDs...)
	r.mu.Unlock()
}

func (r *recordingExpiry) expired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type harness struct {
	engine   *Engine
	store    *session.MemoryStore
	keyboard *keyboard.Registry
	logger   *logging.MockLogger
	dir      *fakeDirectory
	clock    *testClock
	expiry   *recordingExpiry
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		store:    session.NewMemoryStore(time.Hour),
		keyboard: keyboard.NewRegistry(),
		logger:   logging.NewMockLogger(),
		dir:      newFakeDirectory(),
		clock:    &testClock{now: refNow},
		expiry:   &recordingExpiry{},
	}
	engine, err := NewEngine(Dependencies{
		Sessions:   h.store,
		Cards:      h.dir,
		Categories: h.dir,
		Registrar:  h.dir,
		History:    h.dir,
		Anomaly:    h.dir,
		Budget:     h.dir,
		Tags:       h.dir,
		Keyboard:   h.keyboard,
		Expiry:     h.expiry,
		Clock:      h.clock.Now,
		Logger:     h.logger,
	}, opts)
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) start(draft models.TransactionDraft) string {
	return h.engine.StartFlow(context.Background(), testConv, testUser, draft, models.OriginChat)
}

func (h *harness) send(t *testing.T, message string) string {
	t.Helper()
	reply, ok := h.engine.ProcessPendingStep(context.Background(), testConv, testUser, message)
	require.True(t, ok, "expected a pending flow for %q", message)
	return reply
}

func (h *harness) flow(t *testing.T) models.PendingFlow {
	t.Helper()
	f, ok := h.store.Get(testConv)
	require.True(t, ok, "expected a pending flow")
	return f
}

func (h *harness) state(t *testing.T) models.FlowState {
	t.Helper()
	return h.flow(t).State
}

// seed stores a flow waiting for confirmation.
func (h *harness) seed(draft models.TransactionDraft, state models.FlowState) {
	h.store.Set(models.PendingFlow{
		ConversationID: testConv,
		UserID:         testUser,
		Origin:         models.OriginChat,
		Draft:          draft,
		State:          state,
		StartedAt:      refNow,
		LastTouched:    refNow,
	})
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func categoryPtr(c models.Category) *models.Category {
	return &c
}

func readyDraft() models.TransactionDraft {
	return models.TransactionDraft{
		Amount:        amount("45.90"),
		Description:   "Mercado do bairro",
		Category:      categoryPtr(catMercado),
		PaymentMethod: models.PaymentDebit,
		Installments:  1,
		Kind:          models.KindExpense,
	}
}
