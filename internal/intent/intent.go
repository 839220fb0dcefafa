// Package intent recognizes what a short chat reply means: confirmation,
// cancellation, a correction request, a field selector, a field edit, a
// payment method or an installment count. Matchers return typed results so
// the flow dispatches on variants instead of raw strings.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"
)

// Kind is the variant of a matched reply.
type Kind int

const (
	Unrecognized Kind = iota
	Confirmed
	Cancelled
	Correct
	FieldSelected
)

func (k Kind) String() string {
	switch k {
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	case Correct:
		return "correct"
	case FieldSelected:
		return "field_selected"
	default:
		return "unrecognized"
	}
}

// Result is the typed outcome of Match.
type Result struct {
	Kind  Kind
	Field models.CorrectionTarget
}

// maxLooseWords bounds how long a reply may be for a leading keyword to count.
const maxLooseWords = 4

var (
	confirmWords = wordSet("sim", "s", "ss", "ok", "okay", "confirmar", "confirmo", "confirma", "confirmado",
		"pode", "salvar", "salva", "registrar", "registra", "isso", "certo", "correto", "beleza", "blz",
		"yes", "y", "fechado", "perfeito", "👍", "✅", "✔")

	// strongCancelWords are recognized in every state, even mid-description.
	strongCancelWords = wordSet("cancelar", "cancela", "cancele", "cancel", "desistir", "desisto",
		"esquece", "esqueca", "abortar", "❌", "✖", "🚫")

	cancelPhrases = wordSet("deixa pra la", "deixa para la", "nao quero mais", "pode cancelar")

	// words that may surround a cancel word without naming something else
	cancelCompanions = wordSet("nao", "n", "pode", "entao", "ja", "por", "favor", "pfv", "isso", "tudo",
		"o", "a", "esse", "essa", "este", "esta", "lancamento", "transacao", "registro", "operacao")

	correctWords = wordSet("nao", "n", "corrigir", "corrige", "corrija", "correcao", "editar", "edita",
		"edite", "alterar", "altera", "altere", "mudar", "muda", "mude", "trocar", "troca", "troque",
		"errado", "errada", "✏")

	fillerWords = wordSet("o", "a", "os", "as", "de", "da", "do", "quero", "preciso", "campo", "so", "só")

	fieldSynonyms = map[string]models.CorrectionTarget{
		"descricao":           models.CorrectDescription,
		"desc":                models.CorrectDescription,
		"nome":                models.CorrectDescription,
		"titulo":              models.CorrectDescription,
		"📝":                   models.CorrectDescription,
		"valor":               models.CorrectValue,
		"quantia":             models.CorrectValue,
		"preco":               models.CorrectValue,
		"montante":            models.CorrectValue,
		"💰":                   models.CorrectValue,
		"💵":                   models.CorrectValue,
		"💲":                   models.CorrectValue,
		"categoria":           models.CorrectCategory,
		"cat":                 models.CorrectCategory,
		"🏷":                   models.CorrectCategory,
		"📂":                   models.CorrectCategory,
		"pagamento":           models.CorrectPaymentMethod,
		"forma pagamento":     models.CorrectPaymentMethod,
		"metodo":              models.CorrectPaymentMethod,
		"metodo pagamento":    models.CorrectPaymentMethod,
		"meio pagamento":      models.CorrectPaymentMethod,
		"cartao":              models.CorrectPaymentMethod,
		"💳":                   models.CorrectPaymentMethod,
		"data":                models.CorrectDate,
		"dia":                 models.CorrectDate,
		"quando":              models.CorrectDate,
		"📅":                   models.CorrectDate,
		"📆":                   models.CorrectDate,
		"🗓":                   models.CorrectDate,
	}

	genericDescriptions = wordSet("despesa", "despesas", "gasto", "gastos", "compra", "compras", "pagamento",
		"receita", "entrada", "transacao", "lancamento", "expense", "purchase", "income", "payment",
		"outros", "outro", "algo", "coisa", "coisas", "diversos", "sem descricao")

	fieldEditPattern = regexp.MustCompile(`(?i)^\s*(.+?)\s*(?:\bpara\b|\bpra\b|:|=|->|→)\s*(.+?)\s*$`)
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Words folds text and splits it on whitespace and punctuation.
func Words(text string) []string {
	return textutils.Words(text)
}

// Match classifies a reply to the confirmation prompt.
func Match(text string) Result {
	words := Words(text)
	if len(words) == 0 {
		return Result{Kind: Unrecognized}
	}

	if IsCancel(text) {
		return Result{Kind: Cancelled}
	}
	if field, ok := MatchField(text); ok {
		return Result{Kind: FieldSelected, Field: field}
	}
	if len(words) > maxLooseWords {
		return Result{Kind: Unrecognized}
	}
	if _, ok := correctWords[words[0]]; ok {
		return Result{Kind: Correct}
	}
	if _, ok := confirmWords[words[0]]; ok {
		return Result{Kind: Confirmed}
	}
	return Result{Kind: Unrecognized}
}

// IsConfirmation reports whether text is a plain confirmation.
func IsConfirmation(text string) bool {
	return Match(text).Kind == Confirmed
}

// IsCancel recognizes the global cancel phrase. A cancel word only counts
// when the rest of the reply is made of companions such as "isso" or
// "não", so "Cancelar Netflix" stays a category or description answer.
func IsCancel(text string) bool {
	words := Words(text)
	if len(words) == 0 {
		return false
	}
	if _, ok := cancelPhrases[strings.Join(words, " ")]; ok {
		return true
	}
	if len(words) > maxLooseWords-1 {
		return false
	}
	found := false
	for _, w := range words {
		if _, ok := strongCancelWords[w]; ok {
			found = true
			continue
		}
		if _, ok := cancelCompanions[w]; !ok {
			return false
		}
	}
	return found
}

// MatchField recognizes a bare field selector such as "valor", "mudar a data",
// "forma de pagamento" or "📅".
func MatchField(text string) (models.CorrectionTarget, bool) {
	words := Words(text)
	if len(words) > 0 {
		if _, ok := correctWords[words[0]]; ok {
			words = words[1:]
		}
	}

	kept := words[:0:0]
	for _, w := range words {
		if _, filler := fillerWords[w]; filler {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return models.CorrectNone, false
	}

	if field, ok := fieldSynonyms[strings.Join(kept, " ")]; ok {
		return field, true
	}

	// keyboard labels such as "📝 Descrição" name the same field twice
	field := models.CorrectNone
	for _, w := range kept {
		f, ok := fieldSynonyms[w]
		if !ok || (field != models.CorrectNone && f != field) {
			return models.CorrectNone, false
		}
		field = f
	}
	return field, field != models.CorrectNone
}

// FieldEdit is a "field → value" instruction embedded in a reply.
type FieldEdit struct {
	Field models.CorrectionTarget
	Value string
}

// ParseFieldEdit recognizes replies like "valor para 37,95", "data: ontem",
// "mudar descrição para Padaria" or "pagamento -> pix". The value keeps its
// original spelling.
func ParseFieldEdit(text string) (FieldEdit, bool) {
	m := fieldEditPattern.FindStringSubmatch(text)
	if m == nil {
		return FieldEdit{}, false
	}

	field, ok := MatchField(m[1])
	if !ok {
		return FieldEdit{}, false
	}
	value := strings.TrimSpace(m[2])
	if value == "" {
		return FieldEdit{}, false
	}
	return FieldEdit{Field: field, Value: value}, true
}

// ParsePaymentMethod recognizes a payment method in a reply.
func ParsePaymentMethod(text string) (models.PaymentMethod, bool) {
	words := Words(text)
	found := models.PaymentUnset
	set := func(m models.PaymentMethod) bool {
		if found != models.PaymentUnset && found != m {
			return false
		}
		found = m
		return true
	}

	for _, w := range words {
		ok := true
		switch w {
		case "credito", "credit", "cc":
			ok = set(models.PaymentCredit)
		case "debito", "debit":
			ok = set(models.PaymentDebit)
		case "pix", "transferencia", "transf", "ted", "doc":
			ok = set(models.PaymentPix)
		}
		if !ok {
			return models.PaymentUnset, false
		}
	}

	if found == models.PaymentUnset && len(words) <= 2 && len(words) > 0 && words[len(words)-1] == "cartao" {
		found = models.PaymentCredit
	}
	return found, found != models.PaymentUnset
}

// IsGenericDescription reports whether a description is a placeholder that
// says nothing about the transaction ("despesa", "compra", ...).
func IsGenericDescription(text string) bool {
	_, ok := genericDescriptions[strings.Join(Words(text), " ")]
	return ok
}

// MenuIndex parses a 1-based menu choice such as "2", "2." or "opção 2".
func MenuIndex(text string) (int, bool) {
	words := Words(text)
	if len(words) == 2 && (words[0] == "opcao" || words[0] == "numero" || words[0] == "n") {
		words = words[1:]
	}
	if len(words) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(words[0])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
