// Package persistence checkpoints pending flows so a conversation survives a
// process restart. The Bridge turns a flow into a flat JSON record and back;
// repositories keep those records in memory or in PostgreSQL.
package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"fjacquet/finchat/internal/models"

	"github.com/shopspring/decimal"
)

// recordVersion is bumped whenever the record layout changes incompatibly.
const recordVersion = 1

// Snapshot is a serialized pending flow.
type Snapshot struct {
	ConversationID string          `json:"conversation_id"`
	UserID         string          `json:"user_id"`
	State          string          `json:"state"`
	Payload        json.RawMessage `json:"payload"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// record is the payload layout. Card and category lists are left out on
// purpose: they are re-fetched on hydration.
type record struct {
	Version         int         `json:"version"`
	UserID          string      `json:"user_id"`
	Origin          string      `json:"origin,omitempty"`
	State           string      `json:"state"`
	Correcting      string      `json:"correcting,omitempty"`
	AskInstallments bool        `json:"ask_installments,omitempty"`
	Draft           draftRecord `json:"draft"`
	StartedAt       time.Time   `json:"started_at"`
	LastTouched     time.Time   `json:"last_touched"`
}

type draftRecord struct {
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description,omitempty"`
	CategoryID     string          `json:"category_id,omitempty"`
	CategoryName   string          `json:"category_name,omitempty"`
	CategoryIncome bool            `json:"category_income,omitempty"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	CardID         string          `json:"card_id,omitempty"`
	Installments   int             `json:"installments"`
	Kind           string          `json:"kind"`
	ValueDate      *time.Time      `json:"value_date,omitempty"`
}

func encodeFlow(f models.PendingFlow) ([]byte, error) {
	d := f.Draft
	r := record{
		Version:         recordVersion,
		UserID:          f.UserID,
		Origin:          f.Origin,
		State:           string(f.State),
		Correcting:      string(f.Correcting),
		AskInstallments: f.AskInstallments,
		Draft: draftRecord{
			Amount:        d.Amount,
			Description:   d.Description,
			PaymentMethod: string(d.PaymentMethod),
			CardID:        d.CardID,
			Installments:  d.Installments,
			Kind:          string(d.Kind),
			ValueDate:     d.ValueDate,
		},
		StartedAt:   f.StartedAt,
		LastTouched: f.LastTouched,
	}
	if d.Category != nil {
		r.Draft.CategoryID = d.Category.ID
		r.Draft.CategoryName = d.Category.Name
		r.Draft.CategoryIncome = d.Category.IsIncome
	}
	return json.Marshal(r)
}

// decodeFlow parses a payload. Candidate lists and the suggestion are left
// empty for the caller to rebuild.
func decodeFlow(conversationID string, payload []byte) (models.PendingFlow, error) {
	var r record
	if err := json.Unmarshal(payload, &r); err != nil {
		return models.PendingFlow{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if r.Version != recordVersion {
		return models.PendingFlow{}, fmt.Errorf("unsupported snapshot version %d", r.Version)
	}
	if r.UserID == "" {
		return models.PendingFlow{}, fmt.Errorf("snapshot has no user id")
	}

	state, err := models.ParseFlowState(r.State)
	if err != nil {
		return models.PendingFlow{}, err
	}
	correcting, err := models.ParseCorrectionTarget(r.Correcting)
	if err != nil {
		return models.PendingFlow{}, err
	}
	method, err := models.ParsePaymentMethod(r.Draft.PaymentMethod)
	if err != nil {
		return models.PendingFlow{}, err
	}
	kind, err := models.ParseTransactionKind(r.Draft.Kind)
	if err != nil {
		return models.PendingFlow{}, err
	}

	draft := models.TransactionDraft{
		Amount:        r.Draft.Amount,
		Description:   r.Draft.Description,
		PaymentMethod: method,
		CardID:        r.Draft.CardID,
		Installments:  r.Draft.Installments,
		Kind:          kind,
		ValueDate:     r.Draft.ValueDate,
	}
	if r.Draft.CategoryID != "" || r.Draft.CategoryName != "" {
		draft.Category = &models.Category{ID: r.Draft.CategoryID, Name: r.Draft.CategoryName, IsIncome: r.Draft.CategoryIncome}
	}

	return models.PendingFlow{
		ConversationID:  conversationID,
		UserID:          r.UserID,
		Origin:          r.Origin,
		Draft:           draft,
		State:           state,
		Correcting:      correcting,
		AskInstallments: r.AskInstallments,
		StartedAt:       r.StartedAt,
		LastTouched:     r.LastTouched,
	}, nil
}
