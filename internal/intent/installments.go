package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fjacquet/finchat/internal/flowerror"
)

// DefaultMaxInstallments is the largest installment count accepted when none is configured.
const DefaultMaxInstallments = 48

var installmentsPattern = regexp.MustCompile(`^(?:em\s+)?(\d{1,3})\s*(?:x|vezes|vez|parcelas?|prestacoes)?(?:\s+(?:sem|com)\s+juros)?$`)

var singlePayment = wordSet("a vista", "avista", "sem parcelar", "nao parcelado", "uma vez", "parcela unica")

// ParseInstallments parses an installment count such as "3", "3x", "3 x",
// "em 10 vezes" or "à vista" (1). Counts outside 1..max are rejected.
func ParseInstallments(text string, max int) (int, error) {
	if max <= 0 {
		max = DefaultMaxInstallments
	}

	phrase := strings.Join(Words(text), " ")
	if phrase == "" {
		return 0, flowerror.NewInputError("installments", text, flowerror.ErrEmptyInput)
	}
	if _, ok := singlePayment[phrase]; ok {
		return 1, nil
	}

	// "3x" stays one word, so the suffix may be glued to the digits
	m := installmentsPattern.FindStringSubmatch(phrase)
	if m == nil {
		return 0, flowerror.NewInputError("installments", text, fmt.Errorf("not an installment count"))
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, flowerror.NewInputError("installments", text, err)
	}
	if n < 1 || n > max {
		return 0, flowerror.NewInputError("installments", text, fmt.Errorf("%w: must be between 1 and %d", flowerror.ErrOutOfRange, max))
	}
	return n, nil
}
