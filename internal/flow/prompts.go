package flow

import (
	"fmt"
	"strings"
	"time"

	"fjacquet/finchat/internal/currencyutils"
	"fjacquet/finchat/internal/dateutils"
	"fjacquet/finchat/internal/models"
)

const (
	msgInvalidAmount  = "Não consegui identificar um valor válido. Qual foi o valor? (ex.: 45,90)"
	msgFlowInProgress = "Você já tem um lançamento em andamento. Conclua ou digite *cancelar* antes de começar outro."
	msgCancelled      = "❌ Lançamento cancelado."
	msgLostTrack      = "Perdi o fio deste lançamento. Pode enviar de novo?"

	msgAskDescription   = "📝 Qual a descrição deste lançamento? (ex.: Mercado, Uber, Salário)"
	msgRetryDescription = "A descrição precisa ter pelo menos 2 letras e dizer o que foi. Qual a descrição?"

	msgCardsUnavailable      = "Desculpe, não consegui carregar seus cartões agora. Tente novamente em instantes."
	msgCategoriesUnavailable = "Desculpe, não consegui carregar suas categorias agora. Tente novamente em instantes."
	msgRegistrationFailed    = "Desculpe, não consegui registrar o lançamento. Nada foi confirmado; envie a transação novamente."

	msgNoCardGuidance = "Você ainda não tem cartão de crédito cadastrado. Cadastre um cartão no app e depois registre a compra de novo."

	msgRetryCard     = "Não encontrei esse cartão. Responda com o número ou o nome do cartão."
	msgRetryCategory = "Não entendi a categoria. Responda com o número, o nome de uma categoria ou um nome novo."
	msgRetryPayment  = "Não entendi a forma de pagamento. Responda *pix*, *débito* ou *crédito*."

	msgAskNewValue       = "💰 Qual o valor correto? (ex.: 37,95)"
	msgRetryNewValue     = "Não entendi o valor. Informe um número maior que zero, como 37,95."
	msgAskNewDate        = "📅 Qual a data correta? (ex.: ontem, 15/10, 15/10/2026)"
	msgRetryNewDate      = "Não entendi a data. Tente algo como *ontem*, *15/10* ou *15/10/2026*."
	msgAskNewDescription = "📝 Qual a descrição correta?"
)

var (
	paymentOptions    = []string{"Pix", "Débito", "Crédito"}
	paymentMenu       = []models.PaymentMethod{models.PaymentPix, models.PaymentDebit, models.PaymentCredit}
	confirmOptions    = []string{"✅ Confirmar", "✏️ Corrigir", "❌ Cancelar"}
	correctionOptions = []string{"📝 Descrição", "💰 Valor", "🏷️ Categoria", "💳 Pagamento", "📅 Data"}
	correctionMenu    = []models.CorrectionTarget{
		models.CorrectDescription,
		models.CorrectValue,
		models.CorrectCategory,
		models.CorrectPaymentMethod,
		models.CorrectDate,
	}
)

func promptPaymentMethod(cards []models.Card) string {
	var b strings.Builder
	b.WriteString("💳 Como você pagou?\n1. Pix\n2. Débito\n3. Crédito")
	if names := models.CardNames(cards); len(names) > 0 {
		fmt.Fprintf(&b, "\nCartões: %s", strings.Join(names, ", "))
	}
	return b.String()
}

func promptCard(cards []models.Card) string {
	var b strings.Builder
	b.WriteString("💳 Qual cartão você usou?")
	for i, c := range cards {
		fmt.Fprintf(&b, "\n%d. %s", i+1, c.Name)
	}
	return b.String()
}

func promptInstallments(max int) string {
	return fmt.Sprintf("Em quantas parcelas? Responda de 1 a %d (ex.: 3x ou *à vista*).", max)
}

func retryInstallments(max int) string {
	return fmt.Sprintf("Número de parcelas inválido. Informe de 1 a %d.", max)
}

func promptCategory(f *models.PendingFlow) (string, []string) {
	var b strings.Builder
	options := make([]string, 0, len(f.CandidateCategories)+1)

	if f.SuggestedCategory != nil {
		fmt.Fprintf(&b, "🏷️ Parece ser *%s*. Responda *sim* para usar essa categoria ou escolha outra:", f.SuggestedCategory.Name)
		options = append(options, "✅ "+f.SuggestedCategory.Name)
	} else {
		b.WriteString("🏷️ Em qual categoria?")
	}
	for i, c := range f.CandidateCategories {
		fmt.Fprintf(&b, "\n%d. %s", i+1, c.Name)
		options = append(options, c.Name)
	}
	if len(f.CandidateCategories) == 0 {
		b.WriteString("\nVocê ainda não tem categorias deste tipo. Digite o nome de uma nova.")
	} else {
		b.WriteString("\nOu digite o nome de uma nova categoria.")
	}
	return b.String(), options
}

func promptCorrection() string {
	return "✏️ O que você quer corrigir?\n1. Descrição\n2. Valor\n3. Categoria\n4. Pagamento\n5. Data"
}

// preview renders the draft for confirmation. card is nil when unknown.
func preview(d models.TransactionDraft, card *models.Card, now time.Time) string {
	var b strings.Builder
	b.WriteString("Confere o lançamento?\n")

	if d.IsIncome() {
		fmt.Fprintf(&b, "💵 Receita: %s\n", currencyutils.FormatBRL(d.Amount))
	} else {
		fmt.Fprintf(&b, "💸 Despesa: %s\n", currencyutils.FormatBRL(d.Amount))
	}
	fmt.Fprintf(&b, "📝 Descrição: %s\n", d.Description)

	category := models.CategoryDefault
	if d.Category != nil {
		category = d.Category.Name
	}
	fmt.Fprintf(&b, "🏷️ Categoria: %s\n", category)

	date := now
	if d.ValueDate != nil {
		date = *d.ValueDate
	}

	if !d.IsIncome() {
		fmt.Fprintf(&b, "💳 Pagamento: %s", d.PaymentMethod.Label())
		if d.PaymentMethod == models.PaymentCredit {
			if card != nil {
				fmt.Fprintf(&b, " (%s)", card.Name)
			}
			if d.Installments > 1 {
				fmt.Fprintf(&b, " em %dx de %s", d.Installments, currencyutils.FormatBRL(d.InstallmentValue()))
			} else {
				b.WriteString(" à vista")
			}
		}
		b.WriteString("\n")
		if d.PaymentMethod == models.PaymentCredit && card != nil && card.DueDay > 0 {
			due := dateutils.NextDueDate(card.DueDay, date)
			fmt.Fprintf(&b, "🗓️ 1ª parcela em %s\n", dateutils.FormatDate(due))
		}
	}

	fmt.Fprintf(&b, "📅 Data: %s\n", dateutils.DescribeDate(date, now))
	b.WriteString("\nResponda *sim* para salvar, *corrigir* para alterar ou *cancelar*.")
	return b.String()
}

// registered renders the confirmation of a committed entry.
func registered(p models.PersistedEntry) string {
	var b strings.Builder
	kind := "Despesa"
	if p.Entry.Kind == models.KindIncome {
		kind = "Receita"
	}
	fmt.Fprintf(&b, "✅ %s registrada: %s (%s)", kind, p.Entry.Description, currencyutils.FormatBRL(p.Entry.Amount))
	fmt.Fprintf(&b, "\n🏷️ %s", p.Category.Name)
	if p.Entry.Kind == models.KindExpense {
		fmt.Fprintf(&b, " · 💳 %s", p.Entry.PaymentMethod.Label())
		if p.Entry.Installments > 1 {
			fmt.Fprintf(&b, " em %dx", p.Entry.Installments)
		}
	}
	fmt.Fprintf(&b, " · 📅 %s", dateutils.FormatDate(p.Entry.ValueDate))
	return b.String()
}

func splitSummary(split models.SplitExpense, share string) string {
	return fmt.Sprintf("🧾 Conta de %s dividida entre %d pessoas: %s para cada.",
		currencyutils.FormatBRL(split.Total), split.Participants, share)
}

func invalidFieldValue(field models.CorrectionTarget) string {
	switch field {
	case models.CorrectValue:
		return msgRetryNewValue
	case models.CorrectDate:
		return msgRetryNewDate
	case models.CorrectDescription:
		return msgRetryDescription
	case models.CorrectPaymentMethod:
		return msgRetryPayment
	default:
		return msgRetryCategory
	}
}
