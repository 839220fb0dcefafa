package flow

import (
	"testing"
	"time"

	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmation_EmbeddedValueEditStaysInConfirmation(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())
	require.Equal(t, models.StateAwaitingConfirmation, h.state(t))

	reply := h.send(t, "valor para 37,95")

	f := h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, models.CorrectNone, f.Correcting)
	assert.Equal(t, "37.95", f.Draft.Amount.StringFixed(2))
	assert.Contains(t, reply, "Confere o lançamento?")
	assert.Contains(t, reply, "R$ 37,95")

	var steps []string
	for _, entry := range h.logger.GetEntriesByLevel("DEBUG") {
		if entry.Message != "Flow step processed" {
			continue
		}
		next, _ := entry.FieldValue(logging.FieldNextState)
		steps = append(steps, next.(string))
	}
	assert.Equal(t, []string{string(models.StateAwaitingConfirmation)}, steps)
}

func TestConfirmation_InPlaceEdits(t *testing.T) {
	yesterday := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		message string
		check   func(t *testing.T, f models.PendingFlow)
	}{
		{"bare amount", "37,95", func(t *testing.T, f models.PendingFlow) {
			assert.Equal(t, "37.95", f.Draft.Amount.StringFixed(2))
		}},
		{"bare amount with symbol", "R$ 1.200,00", func(t *testing.T, f models.PendingFlow) {
			assert.Equal(t, "1200.00", f.Draft.Amount.StringFixed(2))
		}},
		{"bare date", "ontem", func(t *testing.T, f models.PendingFlow) {
			require.NotNil(t, f.Draft.ValueDate)
			assert.True(t, yesterday.Equal(*f.Draft.ValueDate))
		}},
		{"date edit", "data: 15/10", func(t *testing.T, f models.PendingFlow) {
			require.NotNil(t, f.Draft.ValueDate)
			assert.Equal(t, 15, f.Draft.ValueDate.Day())
		}},
		{"description edit", "descrição = Padaria do Zé", func(t *testing.T, f models.PendingFlow) {
			assert.Equal(t, "Padaria do Zé", f.Draft.Description)
		}},
		{"category edit", "categoria para Lazer", func(t *testing.T, f models.PendingFlow) {
			assert.Equal(t, catLazer, *f.Draft.Category)
		}},
		{"payment edit", "pagamento para pix", func(t *testing.T, f models.PendingFlow) {
			assert.Equal(t, models.PaymentPix, f.Draft.PaymentMethod)
		}},
		{"bare payment method", "pix", func(t *testing.T, f models.PendingFlow) {
			assert.Equal(t, models.PaymentPix, f.Draft.PaymentMethod)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.start(readyDraft())

			h.send(t, tt.message)

			f := h.flow(t)
			assert.Equal(t, models.StateAwaitingConfirmation, f.State)
			assert.Equal(t, models.CorrectNone, f.Correcting)
			tt.check(t, f)
		})
	}
}

func TestConfirmation_UnrecognizedNeverMutates(t *testing.T) {
	messages := []string{
		"banana",
		"???",
		"talvez amanhã eu veja",
		"valor para abc",
		"data: semana que vem",
		"0",
		"descrição = x",
		"categoria para 123",
	}

	for _, message := range messages {
		t.Run(message, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.start(readyDraft())
			before := h.flow(t)

			reply := h.send(t, message)

			after := h.flow(t)
			assert.NotEmpty(t, reply)
			assert.Equal(t, before.State, after.State)
			assert.Equal(t, before.Correcting, after.Correcting)
			assert.Equal(t, before.Draft, after.Draft)
			assert.Empty(t, h.dir.registered)
			assert.Empty(t, h.dir.created)
			assert.Equal(t, confirmOptions, h.keyboard.Peek(testConv))
		})
	}
}

func TestConfirmation_CreditWithoutInstallmentsCommitsOne(t *testing.T) {
	h := newHarness(t, Options{})
	draft := readyDraft()
	draft.PaymentMethod = models.PaymentCredit
	draft.CardID = "card-nu"
	draft.Installments = 0
	h.seed(draft, models.StateAwaitingConfirmation)

	reply := h.send(t, "sim")

	entry := h.dir.lastEntry(t)
	assert.Equal(t, 1, entry.Installments)
	assert.Equal(t, "card-nu", entry.CardID)
	assert.Contains(t, reply, "✅ Despesa registrada")
	assert.False(t, h.engine.Has(testConv))
}

func TestConfirmation_Commit(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())

	reply := h.send(t, "✅ Confirmar")

	entry := h.dir.lastEntry(t)
	assert.Equal(t, "45.90", entry.Amount.StringFixed(2))
	assert.Equal(t, "c-mercado", entry.CategoryID)
	assert.Equal(t, models.PaymentDebit, entry.PaymentMethod)
	assert.Equal(t, models.OriginChat, entry.Origin)
	assert.Equal(t, refNow, entry.ValueDate)
	assert.Contains(t, reply, "Mercado do bairro (R$ 45,90)")
	assert.False(t, h.engine.Has(testConv))
	assert.Empty(t, h.keyboard.Peek(testConv))
}

func TestConfirmation_RegistrationFailureDiscardsFlow(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())
	h.dir.registerErr = errBoom

	reply := h.send(t, "sim")

	assert.Equal(t, msgRegistrationFailed, reply)
	assert.False(t, h.engine.Has(testConv))
	assert.True(t, h.logger.HasEntry("ERROR", "Entry registration failed, flow discarded"))
}

func TestCorrection_MenuThenNewValue(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())

	reply := h.send(t, "não")
	assert.Equal(t, promptCorrection(), reply)
	assert.Equal(t, models.StateAwaitingCorrection, h.state(t))
	assert.Equal(t, correctionOptions, h.keyboard.Peek(testConv))

	reply = h.send(t, "2")
	assert.Equal(t, msgAskNewValue, reply)
	f := h.flow(t)
	assert.Equal(t, models.StateAwaitingNewValue, f.State)
	assert.Equal(t, models.CorrectValue, f.Correcting)

	reply = h.send(t, "abc")
	assert.Equal(t, msgRetryNewValue, reply)
	assert.Equal(t, models.StateAwaitingNewValue, h.state(t))

	reply = h.send(t, "-5")
	assert.Equal(t, msgRetryNewValue, reply)

	h.send(t, "40")
	f = h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, models.CorrectNone, f.Correcting)
	assert.Equal(t, "40.00", f.Draft.Amount.StringFixed(2))
}

func TestCorrection_FieldSelectors(t *testing.T) {
	tests := []struct {
		message string
		state   models.FlowState
		field   models.CorrectionTarget
	}{
		{"1", models.StateAwaitingNewDescription, models.CorrectDescription},
		{"📝 Descrição", models.StateAwaitingNewDescription, models.CorrectDescription},
		{"valor", models.StateAwaitingNewValue, models.CorrectValue},
		{"📅", models.StateAwaitingNewDate, models.CorrectDate},
		{"mudar a data", models.StateAwaitingNewDate, models.CorrectDate},
		{"3", models.StateAwaitingCategory, models.CorrectCategory},
		{"🏷️", models.StateAwaitingCategory, models.CorrectCategory},
		{"forma de pagamento", models.StateAwaitingPaymentMethod, models.CorrectPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.start(readyDraft())
			h.send(t, "corrigir")

			h.send(t, tt.message)

			f := h.flow(t)
			assert.Equal(t, tt.state, f.State)
			assert.Equal(t, tt.field, f.Correcting)
		})
	}
}

func TestConfirmation_DirectFieldSelector(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())

	reply := h.send(t, "📅")

	assert.Equal(t, msgAskNewDate, reply)
	assert.Equal(t, models.StateAwaitingNewDate, h.state(t))
}

func TestCorrection_SwitchFieldWhileEditing(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())
	h.send(t, "valor")
	require.Equal(t, models.StateAwaitingNewValue, h.state(t))

	h.send(t, "data")

	f := h.flow(t)
	assert.Equal(t, models.StateAwaitingNewDate, f.State)
	assert.Equal(t, models.CorrectDate, f.Correcting)

	h.send(t, "anteontem")
	f = h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, 16, f.Draft.ValueDate.Day())
}

func TestCorrection_RecoveryInfersTheField(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())
	h.send(t, "não")

	h.send(t, "37,95")

	f := h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, "37.95", f.Draft.Amount.StringFixed(2))
}

func TestCorrection_RecoveryUsesTheMarker(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())
	h.send(t, "descrição")
	require.Equal(t, models.StateAwaitingNewDescription, h.state(t))

	h.send(t, "corrigir")
	f := h.flow(t)
	require.Equal(t, models.StateAwaitingCorrection, f.State)
	require.Equal(t, models.CorrectDescription, f.Correcting)

	h.send(t, "Padaria do Zé")

	f = h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, "Padaria do Zé", f.Draft.Description)
	assert.Equal(t, models.CorrectNone, f.Correcting)
}

func TestCorrection_UnrecognizedReasks(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())
	h.send(t, "não")
	before := h.flow(t)

	reply := h.send(t, "banana")

	after := h.flow(t)
	assert.Contains(t, reply, "Não entendi.")
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Draft, after.Draft)
	assert.Equal(t, correctionOptions, h.keyboard.Peek(testConv))
}

func TestCorrection_ConfirmShowsPreviewAgain(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())
	h.send(t, "não")

	reply := h.send(t, "ok")

	assert.Contains(t, reply, "Confere o lançamento?")
	assert.Equal(t, models.StateAwaitingConfirmation, h.state(t))
	assert.Empty(t, h.dir.registered)
}

func TestCorrection_CategoryIsForcedToList(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())

	reply := h.send(t, "categoria")

	f := h.flow(t)
	assert.Equal(t, models.StateAwaitingCategory, f.State)
	assert.Contains(t, reply, "2. Lazer")
	assert.NotContains(t, reply, "Salário")

	h.send(t, "Lazer")
	f = h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, catLazer, *f.Draft.Category)
	assert.Equal(t, models.CorrectNone, f.Correcting)
}

func TestCorrection_CategoryListingFailureKeepsFlow(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())
	h.dir.categoriesErr = errBoom

	reply := h.send(t, "🏷️")

	assert.Equal(t, msgCategoriesUnavailable, reply)
	f := h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, models.CorrectNone, f.Correcting)
}

func TestCorrection_PaymentToCreditAsksCardAndInstallments(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(readyDraft())

	h.send(t, "💳")
	require.Equal(t, models.StateAwaitingPaymentMethod, h.state(t))

	h.send(t, "crédito")
	require.Equal(t, models.StateAwaitingCard, h.state(t))

	h.send(t, "2")
	require.Equal(t, models.StateAwaitingInstallments, h.state(t))

	reply := h.send(t, "à vista")

	f := h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, models.PaymentCredit, f.Draft.PaymentMethod)
	assert.Equal(t, "card-inter", f.Draft.CardID)
	assert.Equal(t, 1, f.Draft.Installments)
	assert.Equal(t, catMercado, *f.Draft.Category, "payment corrections keep the category")
	assert.Contains(t, reply, "Crédito (Inter) à vista")
}

func TestCorrection_PaymentFromCreditResetsInstallments(t *testing.T) {
	h := newHarness(t, Options{})
	draft := readyDraft()
	draft.PaymentMethod = models.PaymentCredit
	draft.CardID = "card-nu"
	draft.Installments = 4
	h.seed(draft, models.StateAwaitingConfirmation)

	h.send(t, "pagamento -> débito")

	f := h.flow(t)
	assert.Equal(t, models.PaymentDebit, f.Draft.PaymentMethod)
	assert.Equal(t, 1, f.Draft.Installments)
	assert.Empty(t, f.Draft.CardID)
}

func TestCorrection_IncomePaymentIsFixed(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(models.TransactionDraft{
		Amount: amount("5000"), Description: "Salário", Category: categoryPtr(catSalario),
		PaymentMethod: models.PaymentPix, Installments: 1, Kind: models.KindIncome,
	}, models.StateAwaitingConfirmation)

	h.send(t, "pagamento")

	f := h.flow(t)
	assert.Equal(t, models.StateAwaitingConfirmation, f.State)
	assert.Equal(t, models.PaymentPix, f.Draft.PaymentMethod)
}
