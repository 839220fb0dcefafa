// Package quickentry extracts a transaction from a free-form chat message
// such as "gastei 45,90 no mercado", "uber 23 ontem no crédito" or
// "dividir 120 entre 3 pizza". It is a rule-based stand-in for a language
// model: it only fills what it recognizes and leaves the rest for the flow to
// ask.
package quickentry

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"fjacquet/finchat/internal/currencyutils"
	"fjacquet/finchat/internal/dateutils"
	"fjacquet/finchat/internal/intent"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"

	"github.com/shopspring/decimal"
)

var (
	amountPattern       = regexp.MustCompile(`^(?:r\$)?\d[\d.,]*$`)
	gluedInstallments   = regexp.MustCompile(`^\d{1,3}x$`)
	digitsPattern       = regexp.MustCompile(`^\d{1,3}$`)
	installmentSuffixes = wordSet("x", "vezes", "vez", "parcelas", "parcela", "prestacoes")

	splitVerbs        = wordSet("dividir", "divide", "dividi", "dividimos", "rachar", "racha", "rachei", "rachamos")
	participantWords  = wordSet("entre", "por", "para", "pra")
	incomeVerbs       = wordSet("recebi", "ganhei", "receita", "entrada", "entrou", "recebido", "caiu")
	incomeNouns       = wordSet("salario", "freela", "freelance", "reembolso", "rendimento", "dividendos")
	expenseVerbs      = wordSet("gastei", "paguei", "comprei", "despesa", "gasto", "pago")
	currencyWords     = wordSet("r$", "reais", "real", "brl")
	descriptionFiller = wordSet("de", "do", "da", "dos", "das", "no", "na", "nos", "nas", "em", "com", "por",
		"pelo", "pela", "o", "a", "os", "as", "um", "uma", "pra", "para", "e")
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func in(set map[string]struct{}, word string) bool {
	_, ok := set[word]
	return ok
}

// Result is what the parser recognized. Split is set for shared bills; Draft
// is meaningful otherwise.
type Result struct {
	Draft models.TransactionDraft
	Split *models.SplitExpense
}

// IsSplit reports whether the message described a shared bill.
func (r Result) IsSplit() bool {
	return r.Split != nil
}

// Parser turns messages into drafts.
type Parser struct {
	now             func() time.Time
	maxInstallments int
}

// NewParser creates a parser resolving relative dates against clock.
func NewParser(clock func() time.Time, maxInstallments int) *Parser {
	if clock == nil {
		clock = time.Now
	}
	if maxInstallments <= 0 {
		maxInstallments = intent.DefaultMaxInstallments
	}
	return &Parser{now: clock, maxInstallments: maxInstallments}
}

type message struct {
	raw      []string
	folded   []string
	consumed []bool
}

func (m *message) take(i int) {
	if i >= 0 && i < len(m.consumed) {
		m.consumed[i] = true
	}
}

func (m *message) free(i int) bool {
	return i >= 0 && i < len(m.consumed) && !m.consumed[i]
}

// Parse extracts a transaction from text. It returns false when the message
// carries no amount.
func (p *Parser) Parse(text string) (Result, bool) {
	m := &message{raw: strings.Fields(text)}
	if len(m.raw) == 0 {
		return Result{}, false
	}
	m.consumed = make([]bool, len(m.raw))
	for _, t := range m.raw {
		m.folded = append(m.folded, textutils.Fold(t))
	}

	split := in(splitVerbs, m.folded[0])
	if split {
		m.take(0)
	}

	draft := models.TransactionDraft{Kind: models.KindExpense}
	draft.ValueDate = p.date(m)
	participants := 0
	if split {
		participants = p.participants(m)
	}
	draft.Installments = p.installments(m)

	amount, ok := p.amount(m)
	if !ok {
		return Result{}, false
	}
	draft.Amount = amount
	draft.PaymentMethod = p.paymentMethod(m)
	if !split {
		draft.Kind = p.kind(m)
	}
	draft.Description = description(m)

	if split {
		return Result{Split: &models.SplitExpense{
			Total:         amount,
			Participants:  participants,
			Description:   draft.Description,
			PaymentMethod: draft.PaymentMethod,
			Installments:  draft.Installments,
		}}, true
	}
	return Result{Draft: draft}, true
}

// date consumes the first date phrase, preferring longer phrases.
func (p *Parser) date(m *message) *time.Time {
	now := p.now()
	for i := range m.raw {
		for n := 3; n >= 1; n-- {
			if i+n > len(m.raw) || !allFree(m, i, i+n) {
				continue
			}
			phrase := strings.Join(m.raw[i:i+n], " ")
			if !hasDateShape(phrase) {
				continue
			}
			d, err := dateutils.ParseDate(phrase, now)
			if err != nil {
				continue
			}
			for j := i; j < i+n; j++ {
				m.take(j)
			}
			return &d
		}
	}
	return nil
}

// hasDateShape rejects bare numbers, which are amounts.
func hasDateShape(phrase string) bool {
	return strings.IndexFunc(phrase, func(r rune) bool {
		return unicode.IsLetter(r) || r == '/' || r == '-'
	}) >= 0
}

// participants consumes "entre 3 (pessoas)" and returns the head count.
func (p *Parser) participants(m *message) int {
	for i := 0; i+1 < len(m.folded); i++ {
		if !m.free(i) || !m.free(i+1) || !in(participantWords, m.folded[i]) || !digitsPattern.MatchString(m.folded[i+1]) {
			continue
		}
		n, err := strconv.Atoi(m.folded[i+1])
		if err != nil {
			continue
		}
		m.take(i)
		m.take(i + 1)
		if m.free(i+2) && (m.folded[i+2] == "pessoas" || m.folded[i+2] == "pessoa") {
			m.take(i + 2)
		}
		return n
	}
	return 0
}

// installments consumes "3x", "em 3 vezes" or "à vista". Zero means unknown.
func (p *Parser) installments(m *message) int {
	for i := range m.folded {
		if !m.free(i) {
			continue
		}
		tok := m.folded[i]
		end := i
		switch {
		case gluedInstallments.MatchString(tok):
		case digitsPattern.MatchString(tok) && m.free(i+1) && in(installmentSuffixes, m.folded[i+1]):
			end = i + 1
		case (tok == "a" || tok == "avista") && (tok == "avista" || (m.free(i+1) && m.folded[i+1] == "vista")):
			if tok == "a" {
				m.take(i + 1)
			}
			m.take(i)
			return 1
		default:
			continue
		}

		n, err := intent.ParseInstallments(strings.Join(m.raw[i:end+1], " "), p.maxInstallments)
		if err != nil {
			continue
		}
		for j := i; j <= end; j++ {
			m.take(j)
		}
		if m.free(i-1) && m.folded[i-1] == "em" {
			m.take(i - 1)
		}
		return n
	}
	return 0
}

// amount consumes the first amount together with its currency words.
func (p *Parser) amount(m *message) (decimal.Decimal, bool) {
	for i, tok := range m.folded {
		if !m.free(i) || !amountPattern.MatchString(tok) {
			continue
		}
		value, err := currencyutils.ParsePositiveAmount(tok)
		if err != nil {
			continue
		}
		m.take(i)
		if m.free(i-1) && in(currencyWords, m.folded[i-1]) {
			m.take(i - 1)
		}
		if m.free(i+1) && in(currencyWords, m.folded[i+1]) {
			m.take(i + 1)
		}
		return value, true
	}
	return decimal.Zero, false
}

func (p *Parser) paymentMethod(m *message) models.PaymentMethod {
	for i, tok := range m.folded {
		if !m.free(i) {
			continue
		}
		if method, ok := intent.ParsePaymentMethod(tok); ok {
			m.take(i)
			return method
		}
	}
	return models.PaymentUnset
}

// kind consumes verbs such as "recebi" or "gastei". Income nouns like
// "salário" set the kind but stay in the description.
func (p *Parser) kind(m *message) models.TransactionKind {
	kind := models.KindExpense
	for i, tok := range m.folded {
		if !m.free(i) {
			continue
		}
		switch {
		case in(incomeVerbs, tok):
			m.take(i)
			kind = models.KindIncome
		case in(expenseVerbs, tok):
			m.take(i)
		case in(incomeNouns, tok):
			kind = models.KindIncome
		}
	}
	return kind
}

// description joins the words nothing else claimed, without filler words at
// either end.
func description(m *message) string {
	var words []string
	var folded []string
	for i, tok := range m.raw {
		if m.free(i) {
			words = append(words, tok)
			folded = append(folded, m.folded[i])
		}
	}
	for len(folded) > 0 && in(descriptionFiller, folded[0]) {
		words, folded = words[1:], folded[1:]
	}
	for len(folded) > 0 && in(descriptionFiller, folded[len(folded)-1]) {
		words, folded = words[:len(words)-1], folded[:len(folded)-1]
	}
	return strings.TrimFunc(strings.Join(words, " "), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",;:!?", r)
	})
}

func allFree(m *message, from, to int) bool {
	for i := from; i < to; i++ {
		if !m.free(i) {
			return false
		}
	}
	return true
}
