package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creditDraft() models.TransactionDraft {
	d := readyDraft()
	d.PaymentMethod = models.PaymentCredit
	d.Installments = 2
	return d
}

func TestRegisterEntry_CardResolution(t *testing.T) {
	tests := []struct {
		name     string
		cards    []models.Card
		pinned   string
		override string
		expected string
	}{
		{"override wins", []models.Card{cardNubank, cardInter}, "card-nu", "card-x", "card-x"},
		{"pinned card", []models.Card{cardNubank, cardInter}, "card-inter", "", "card-inter"},
		{"first card", []models.Card{cardNubank, cardInter}, "", "", "card-nu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.dir.cards = tt.cards
			draft := creditDraft()
			draft.CardID = tt.pinned

			_, err := h.engine.RegisterEntry(context.Background(), testUser, draft, models.OriginAPI, tt.override)

			require.NoError(t, err)
			entry := h.dir.lastEntry(t)
			assert.Equal(t, tt.expected, entry.CardID)
			assert.Equal(t, 2, entry.Installments)
			assert.Equal(t, models.OriginAPI, entry.Origin)
		})
	}
}

func TestRegisterEntry_NoCard(t *testing.T) {
	h := newHarness(t, Options{})
	h.dir.cards = nil

	_, err := h.engine.RegisterEntry(context.Background(), testUser, creditDraft(), "", "")

	var missing *flowerror.MissingPrerequisiteError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, msgNoCardGuidance, missing.Guidance)
	assert.Empty(t, h.dir.registered)
}

func TestRegisterEntry_NonCreditDropsCardAndInstallments(t *testing.T) {
	h := newHarness(t, Options{})
	draft := readyDraft()
	draft.CardID = "card-nu"
	draft.Installments = 5

	_, err := h.engine.RegisterEntry(context.Background(), testUser, draft, "", "card-inter")

	require.NoError(t, err)
	entry := h.dir.lastEntry(t)
	assert.Empty(t, entry.CardID)
	assert.Equal(t, 1, entry.Installments)
	assert.Equal(t, models.OriginChat, entry.Origin)
}

func TestRegisterEntry_ValueDateIsUTC(t *testing.T) {
	h := newHarness(t, Options{})
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	local := time.Date(2026, time.October, 17, 22, 0, 0, 0, saoPaulo)
	draft := readyDraft()
	draft.ValueDate = &local

	_, err := h.engine.RegisterEntry(context.Background(), testUser, draft, "", "")

	require.NoError(t, err)
	entry := h.dir.lastEntry(t)
	assert.Equal(t, time.UTC, entry.ValueDate.Location())
	assert.True(t, entry.ValueDate.Equal(local))
	assert.Equal(t, 18, entry.ValueDate.Day())
}

func TestRegisterEntry_CategoryFallback(t *testing.T) {
	tests := []struct {
		name     string
		kind     models.TransactionKind
		category *models.Category
		expected string
	}{
		{"keeps matching category", models.KindExpense, categoryPtr(catLazer), "c-lazer"},
		{"resolves by name", models.KindExpense, &models.Category{Name: "LAZER"}, "c-lazer"},
		{"missing category", models.KindExpense, nil, "c-outros"},
		{"income category on expense", models.KindExpense, categoryPtr(catSalario), "c-outros"},
		{"expense category on income", models.KindIncome, categoryPtr(catMercado), "c-outros"},
		{"unknown name", models.KindExpense, &models.Category{Name: "Inexistente"}, "c-outros"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			draft := readyDraft()
			draft.Kind = tt.kind
			draft.Category = tt.category

			_, err := h.engine.RegisterEntry(context.Background(), testUser, draft, "", "")

			require.NoError(t, err)
			assert.Equal(t, tt.expected, h.dir.lastEntry(t).CategoryID)
		})
	}
}

func TestRegisterEntry_DefaultCategoryCreatedOnDemand(t *testing.T) {
	h := newHarness(t, Options{})
	h.dir.categories = []models.Category{catMercado}
	draft := readyDraft()
	draft.Category = nil

	_, err := h.engine.RegisterEntry(context.Background(), testUser, draft, "", "")

	require.NoError(t, err)
	require.Len(t, h.dir.created, 1)
	assert.Equal(t, models.CategoryDefault, h.dir.created[0].Name)
	assert.Equal(t, h.dir.created[0].ID, h.dir.lastEntry(t).CategoryID)
}

func TestRegisterEntry_Rejections(t *testing.T) {
	h := newHarness(t, Options{})

	draft := readyDraft()
	draft.Amount = amount("0")
	_, err := h.engine.RegisterEntry(context.Background(), testUser, draft, "", "")
	assert.True(t, flowerror.IsInput(err))

	draft = readyDraft()
	draft.PaymentMethod = models.PaymentUnset
	_, err = h.engine.RegisterEntry(context.Background(), testUser, draft, "", "")
	assert.True(t, flowerror.IsInput(err))

	h.dir.registerErr = errBoom
	_, err = h.engine.RegisterEntry(context.Background(), testUser, readyDraft(), "", "")
	var collab *flowerror.CollaboratorError
	require.True(t, errors.As(err, &collab))
	assert.Equal(t, "entries", collab.Collaborator)
	assert.ErrorIs(t, err, errBoom)

	assert.Empty(t, h.dir.registered)
}

func TestRegisterEntry_Tags(t *testing.T) {
	h := newHarness(t, Options{})
	draft := readyDraft()
	draft.Description = "Jantar #viagem #Praia #viagem"

	_, err := h.engine.RegisterEntry(context.Background(), testUser, draft, "", "")

	require.NoError(t, err)
	assert.Equal(t, []string{"viagem", "praia"}, h.dir.tagged["entry-1"])
}

func TestRegisterEntry_TagFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, Options{})
	h.dir.tagsErr = errBoom
	draft := readyDraft()
	draft.Description = "Jantar #viagem"

	text, err := h.engine.RegisterEntry(context.Background(), testUser, draft, "", "")

	require.NoError(t, err)
	assert.Contains(t, text, "registrada")
	assert.True(t, h.logger.HasEntry("WARN", "Could not save tags"))
}

func TestRegisterEntry_Alerts(t *testing.T) {
	h := newHarness(t, Options{})
	h.dir.budgetAlert = "⚠️ Você passou do limite de Mercado."
	h.dir.anomalyAlert = "🔎 Valor bem acima do seu gasto usual em Mercado."

	text, err := h.engine.RegisterEntry(context.Background(), testUser, readyDraft(), "", "")

	require.NoError(t, err)
	assert.Contains(t, text, "✅ Despesa registrada")
	assert.Contains(t, text, h.dir.budgetAlert)
	assert.Contains(t, text, h.dir.anomalyAlert)
	assert.Equal(t, []string{"c-mercado"}, h.dir.budgetHits)
}

func TestRegisterEntry_IncomeSkipsBudget(t *testing.T) {
	h := newHarness(t, Options{})
	h.dir.budgetAlert = "limite"

	text, err := h.engine.RegisterEntry(context.Background(), testUser, models.TransactionDraft{
		Amount: amount("5000"), Description: "Salário", Category: categoryPtr(catSalario), Kind: models.KindIncome,
	}, "", "")

	require.NoError(t, err)
	assert.Contains(t, text, "✅ Receita registrada")
	assert.NotContains(t, text, "limite")
	assert.Empty(t, h.dir.budgetHits)
	assert.Equal(t, models.PaymentPix, h.dir.lastEntry(t).PaymentMethod)
}

func TestRegisterEntry_CheckFailuresAreSwallowed(t *testing.T) {
	h := newHarness(t, Options{})
	h.dir.budgetErr = errBoom
	h.dir.anomalyErr = errBoom

	text, err := h.engine.RegisterEntry(context.Background(), testUser, readyDraft(), "", "")

	require.NoError(t, err)
	assert.Contains(t, text, "registrada")
	assert.True(t, h.logger.HasEntry("WARN", "Budget check failed"))
	assert.True(t, h.logger.HasEntry("WARN", "Anomaly check failed"))
}

func TestProcessSplitExpense(t *testing.T) {
	h := newHarness(t, Options{})

	reply := h.engine.ProcessSplitExpense(context.Background(), testConv, testUser, models.SplitExpense{
		Total: amount("120"), Participants: 3, Description: "Pizza", PaymentMethod: models.PaymentPix,
	}, "")

	assert.Contains(t, reply, "🧾 Conta de R$ 120,00 dividida entre 3 pessoas: R$ 40,00 para cada.")
	f := h.flow(t)
	assert.Equal(t, "40.00", f.Draft.Amount.StringFixed(2))
	assert.Equal(t, "Pizza", f.Draft.Description)
	assert.Equal(t, models.OriginSplit, f.Origin)
	assert.Equal(t, models.StateAwaitingCategory, f.State)
}

func TestProcessSplitExpense_RoundsHalfUp(t *testing.T) {
	h := newHarness(t, Options{})

	reply := h.engine.ProcessSplitExpense(context.Background(), testConv, testUser, models.SplitExpense{
		Total: amount("100"), Participants: 3, Description: "Churrasco",
	}, models.OriginChat)

	assert.Contains(t, reply, "R$ 33,33 para cada")
	assert.Equal(t, "33.33", h.flow(t).Draft.Amount.StringFixed(2))
	assert.Equal(t, models.StateAwaitingPaymentMethod, h.flow(t).State)
}

func TestProcessSplitExpense_Rejections(t *testing.T) {
	h := newHarness(t, Options{})

	reply := h.engine.ProcessSplitExpense(context.Background(), testConv, testUser, models.SplitExpense{
		Total: amount("120"), Participants: 1, Description: "Pizza",
	}, "")
	assert.Contains(t, reply, "pelo menos 2 pessoas")

	reply = h.engine.ProcessSplitExpense(context.Background(), testConv, testUser, models.SplitExpense{
		Total: amount("0"), Participants: 2, Description: "Pizza",
	}, "")
	assert.Equal(t, msgInvalidAmount, reply)

	assert.False(t, h.engine.Has(testConv))
}
